package mailer

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Email is a rendered subject and plain-text body.
type Email struct {
	Subject string
	Body    string
}

var rupees = message.NewPrinter(language.English)

// FormatRupees renders an amount like "₹45,000".
func FormatRupees(amount int64) string {
	return rupees.Sprintf("₹%d", amount)
}

var templates = template.Must(template.New("mail").Parse(`
{{define "welcome"}}Dear {{.Name}},

Welcome to the institute. Your enrollment is confirmed.

Roll Number: {{.RollNo}}
Course: {{.Course}}
Temporary Password: {{.TempPassword}}

Please log in and change your password on first use.

Regards,
Admissions Office{{end}}

{{define "admission_status"}}Dear {{.Name}},

The status of your application {{.ApplicationID}} has changed to: {{.Status}}.
{{if .Remarks}}
Remarks: {{.Remarks}}
{{end}}
Regards,
Admissions Office{{end}}

{{define "fee_reminder"}}Dear {{.Name}},

This is a reminder that your {{.FeeType}} fee of {{.Amount}} is due on {{.DueDate}}.
{{if .LateFee}}A late fee of {{.LateFee}} has accrued.{{end}}

Please pay at the earliest to avoid further charges.

Regards,
Accounts Office{{end}}

{{define "payment_receipt"}}Dear {{.Name}},

We have received your payment of {{.Amount}}.

Receipt Number: {{.ReceiptNumber}}
Payment Date: {{.PaidOn}}
Payment Method: {{.Method}}

Regards,
Accounts Office{{end}}

{{define "hostel_allocation"}}Dear {{.Name}},

You have been allocated hostel accommodation.

Hostel: {{.HostelName}}
Room: {{.RoomNumber}}
Monthly Rent: {{.Rent}}

Please report to the warden with this email.

Regards,
Hostel Office{{end}}
`))

func render(name string, data any) (string, error) {
	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(sb.String()) + "\n", nil
}

// WelcomeEmail greets a newly enrolled student with their credentials.
func WelcomeEmail(name, rollNo, course, tempPassword string) (Email, error) {
	body, err := render("welcome", map[string]string{
		"Name":         name,
		"RollNo":       rollNo,
		"Course":       course,
		"TempPassword": tempPassword,
	})
	if err != nil {
		return Email{}, err
	}
	return Email{Subject: "Welcome to the Institute - " + rollNo, Body: body}, nil
}

// AdmissionStatusEmail notifies an applicant of a status change.
func AdmissionStatusEmail(name, applicationID, status, remarks string) (Email, error) {
	body, err := render("admission_status", map[string]string{
		"Name":          name,
		"ApplicationID": applicationID,
		"Status":        status,
		"Remarks":       remarks,
	})
	if err != nil {
		return Email{}, err
	}
	return Email{Subject: "Application " + applicationID + " Update", Body: body}, nil
}

// FeeReminderEmail nudges a student about a pending or overdue fee.
func FeeReminderEmail(name, feeType string, amount, lateFee int64, dueDate time.Time) (Email, error) {
	data := map[string]string{
		"Name":    name,
		"FeeType": feeType,
		"Amount":  FormatRupees(amount),
		"DueDate": dueDate.Format("02 Jan 2006"),
	}
	if lateFee > 0 {
		data["LateFee"] = FormatRupees(lateFee)
	}
	body, err := render("fee_reminder", data)
	if err != nil {
		return Email{}, err
	}
	return Email{Subject: "Fee Payment Reminder", Body: body}, nil
}

// PaymentReceiptEmail confirms a received payment.
func PaymentReceiptEmail(name, receiptNumber, method string, amount int64, paidOn time.Time) (Email, error) {
	body, err := render("payment_receipt", map[string]string{
		"Name":          name,
		"ReceiptNumber": receiptNumber,
		"Method":        method,
		"Amount":        FormatRupees(amount),
		"PaidOn":        paidOn.Format("02 Jan 2006"),
	})
	if err != nil {
		return Email{}, err
	}
	return Email{Subject: "Payment Receipt " + receiptNumber, Body: body}, nil
}

// HostelAllocationEmail informs a student of their hostel assignment.
func HostelAllocationEmail(name, hostelName, roomNumber string, rent int64) (Email, error) {
	body, err := render("hostel_allocation", map[string]string{
		"Name":       name,
		"HostelName": hostelName,
		"RoomNumber": roomNumber,
		"Rent":       FormatRupees(rent),
	})
	if err != nil {
		return Email{}, err
	}
	return Email{Subject: "Hostel Allocation - " + hostelName, Body: body}, nil
}
