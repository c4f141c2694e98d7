// Package documents renders official PDF artifacts: fee receipts with a
// verification QR code, admission offer letters, transcripts, and
// student ID cards.
package documents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Anuraj-dev/student-erp/internal/admissions"
	"github.com/Anuraj-dev/student-erp/internal/courses"
	"github.com/Anuraj-dev/student-erp/internal/exams"
	"github.com/Anuraj-dev/student-erp/internal/fees"
	"github.com/Anuraj-dev/student-erp/internal/students"
)

const instituteName = "Institute of Technology"

var rupees = message.NewPrinter(language.English)

// formatRupees renders an amount like "Rs. 45,000". The core PDF fonts
// are latin-1, so the rupee sign is spelled out.
func formatRupees(amount int64) string {
	return rupees.Sprintf("Rs. %d", amount)
}

func newDocument(title string) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, instituteName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "C", false, 0, "")
	pdf.Ln(4)
	return pdf
}

func labeledRow(pdf *fpdf.Fpdf, label, value string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(55, 7, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
}

func output(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// receiptQRPayload is the machine-verifiable content of a receipt QR.
type receiptQRPayload struct {
	ReceiptNumber string `json:"receipt_number"`
	StudentID     string `json:"student_id"`
	Amount        int64  `json:"amount"`
	PaidOn        string `json:"paid_on"`
}

// FeeReceiptPDF renders a paid fee's receipt. The embedded QR code holds
// the receipt number, student, amount and payment date for verification.
func FeeReceiptPDF(fee fees.Fee, student students.Student, course courses.Course) ([]byte, error) {
	if fee.Status != fees.StatusPaid {
		return nil, fmt.Errorf("receipt requires a paid fee, got %s", fee.Status)
	}
	if fee.PaymentDate == nil {
		return nil, fmt.Errorf("paid fee %d has no payment date", fee.ID)
	}

	pdf := newDocument("Fee Receipt")

	labeledRow(pdf, "Receipt Number", fee.ReceiptNumber)
	labeledRow(pdf, "Date", fee.PaymentDate.Format("02 Jan 2006"))
	labeledRow(pdf, "Student Name", student.Name)
	labeledRow(pdf, "Roll Number", student.RollNo)
	labeledRow(pdf, "Course", course.DisplayName())
	labeledRow(pdf, "Semester", fmt.Sprintf("%d", fee.Semester))
	labeledRow(pdf, "Academic Year", fee.AcademicYear)
	pdf.Ln(4)

	labeledRow(pdf, "Fee Type", string(fee.Type))
	labeledRow(pdf, "Base Amount", formatRupees(fee.Amount))
	if fee.LateFee > 0 {
		labeledRow(pdf, "Late Fee", formatRupees(fee.LateFee))
	}
	if fee.Discount > 0 {
		labeledRow(pdf, "Discount", formatRupees(fee.Discount))
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(55, 8, "Total Paid", "T", 0, "L", false, 0, "")
	pdf.CellFormat(0, 8, formatRupees(fee.TotalAmount()), "T", 1, "L", false, 0, "")
	pdf.Ln(2)

	labeledRow(pdf, "Payment Method", string(fee.Method))
	if fee.TransactionID != "" {
		labeledRow(pdf, "Transaction ID", fee.TransactionID)
	}

	payload, err := json.Marshal(receiptQRPayload{
		ReceiptNumber: fee.ReceiptNumber,
		StudentID:     student.RollNo,
		Amount:        fee.TotalAmount(),
		PaidOn:        fee.PaymentDate.Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal receipt payload: %w", err)
	}
	png, err := qrcode.Encode(string(payload), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode receipt qr: %w", err)
	}
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("receipt-qr", opts, bytes.NewReader(png))
	pdf.ImageOptions("receipt-qr", 160, 30, 35, 35, false, opts, 0, "")

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(0, 5, "This is a computer generated receipt. Scan the QR code to verify.", "", 1, "L", false, 0, "")

	return output(pdf)
}

// AdmissionLetterPDF renders the offer letter for an approved application.
func AdmissionLetterPDF(application admissions.Application, course courses.Course) ([]byte, error) {
	if application.Status != admissions.StatusApproved {
		return nil, fmt.Errorf("admission letter requires an approved application, got %s", application.Status)
	}

	pdf := newDocument("Admission Offer Letter")

	labeledRow(pdf, "Application Number", application.ApplicationID)
	labeledRow(pdf, "Applicant Name", application.Name)
	labeledRow(pdf, "Course", course.DisplayName())
	if application.StudentID != "" {
		labeledRow(pdf, "Roll Number", application.StudentID)
	}
	if application.ProcessedOn != nil {
		labeledRow(pdf, "Approved On", application.ProcessedOn.Format("02 Jan 2006"))
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 10)
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"We are pleased to inform you that your application for admission to %s has been approved. "+
			"Please report to the admissions office within 15 days of this letter with your original documents "+
			"and the first semester fee of %s.\n\n"+
			"Your login credentials have been sent to %s. Change the temporary password on first login.",
		application.Name, course.DisplayName(), formatRupees(course.FeesPerSemester), application.Email,
	)
	pdf.MultiCell(0, 6, body, "", "L", false)

	pdf.Ln(12)
	pdf.CellFormat(0, 6, "Admissions Office", "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, instituteName, "", 1, "L", false, 0, "")

	return output(pdf)
}

// TranscriptPDF renders the semester-wise academic record of a student.
func TranscriptPDF(student students.Student, course courses.Course, summaries []exams.SemesterSummary, cgpa float64) ([]byte, error) {
	pdf := newDocument("Academic Transcript")

	labeledRow(pdf, "Student Name", student.Name)
	labeledRow(pdf, "Roll Number", student.RollNo)
	labeledRow(pdf, "Course", course.DisplayName())
	labeledRow(pdf, "Admission Year", fmt.Sprintf("%d", student.AdmissionYear))
	pdf.Ln(4)

	for _, summary := range summaries {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 8, fmt.Sprintf("Semester %d", summary.Semester), "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(30, 7, "Subject", "1", 0, "L", false, 0, "")
		pdf.CellFormat(75, 7, "Name", "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, "Marks", "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 7, "Max", "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 7, "Grade", "1", 1, "C", false, 0, "")

		pdf.SetFont("Helvetica", "", 9)
		for _, result := range summary.Results {
			marks := "-"
			if result.MarksObtained != nil {
				marks = fmt.Sprintf("%d", *result.MarksObtained)
			}
			pdf.CellFormat(30, 7, result.SubjectCode, "1", 0, "L", false, 0, "")
			pdf.CellFormat(75, 7, result.SubjectName, "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 7, marks, "1", 0, "C", false, 0, "")
			pdf.CellFormat(25, 7, fmt.Sprintf("%d", result.MaxMarks), "1", 0, "C", false, 0, "")
			pdf.CellFormat(20, 7, string(result.Grade), "1", 1, "C", false, 0, "")
		}

		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(0, 7, fmt.Sprintf("SGPA: %.2f", summary.SGPA), "", 1, "R", false, 0, "")
		pdf.Ln(2)
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 10, fmt.Sprintf("CGPA: %.2f", cgpa), "", 1, "R", false, 0, "")

	return output(pdf)
}

// idCardQRPayload is the machine-verifiable content of an ID card QR.
type idCardQRPayload struct {
	RollNo     string `json:"roll_no"`
	Name       string `json:"name"`
	ValidUntil int    `json:"valid_until"`
}

// StudentIDCardPDF renders a CR80-sized ID card: details on the front
// page, a verification QR on the back. The card is valid until the end
// of the course duration counted from the admission year.
func StudentIDCardPDF(student students.Student, course courses.Course) ([]byte, error) {
	validUntil := student.AdmissionYear + course.DurationYears

	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "mm",
		Size:    fpdf.SizeType{Wd: 85.6, Ht: 54},
	})
	pdf.SetTitle("Student ID Card", true)
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 0)

	// Front.
	pdf.AddPage()
	pdf.SetFillColor(20, 60, 120)
	pdf.Rect(0, 0, 85.6, 12, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(0, 8, instituteName, "", 1, "C", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetY(15)
	cardRow := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 7)
		pdf.CellFormat(22, 5, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 7)
		pdf.CellFormat(0, 5, value, "", 1, "L", false, 0, "")
	}
	cardRow("Name", student.Name)
	cardRow("Roll Number", student.RollNo)
	cardRow("Course", course.DisplayName())
	cardRow("Admission Year", fmt.Sprintf("%d", student.AdmissionYear))

	pdf.SetY(48)
	pdf.SetFont("Helvetica", "I", 6)
	pdf.CellFormat(0, 4, fmt.Sprintf("Valid Until: %d", validUntil), "", 1, "L", false, 0, "")

	// Back.
	payload, err := json.Marshal(idCardQRPayload{
		RollNo:     student.RollNo,
		Name:       student.Name,
		ValidUntil: validUntil,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal id card payload: %w", err)
	}
	png, err := qrcode.Encode(string(payload), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode id card qr: %w", err)
	}
	pdf.AddPage()
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("id-card-qr", opts, bytes.NewReader(png))
	pdf.ImageOptions("id-card-qr", 27.8, 8, 30, 30, false, opts, 0, "")
	pdf.SetY(42)
	pdf.SetFont("Helvetica", "", 6)
	pdf.CellFormat(0, 4, "Scan to verify. If found, return to the institute office.", "", 1, "C", false, 0, "")

	return output(pdf)
}
