package server

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/Anuraj-dev/student-erp/internal/auth"
	"github.com/Anuraj-dev/student-erp/internal/dashboard"
	"github.com/Anuraj-dev/student-erp/internal/documents"
	"github.com/Anuraj-dev/student-erp/internal/fees"
	"github.com/Anuraj-dev/student-erp/internal/mailer"
	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
	"github.com/Anuraj-dev/student-erp/internal/platform/requestctx"
	"github.com/Anuraj-dev/student-erp/internal/students"
)

// demandDueDays is how long students get to settle a fresh demand.
const demandDueDays = 30

type demandRequest struct {
	CourseID     int64  `json:"course_id"`
	Semester     int    `json:"semester"`
	Type         string `json:"type"`
	Amount       int64  `json:"amount"` // zero means the course semester fee
	AcademicYear string `json:"academic_year"`
	Description  string `json:"description"`
}

// handleFeeDemand creates pending fee records for every active student
// of a course and semester. Students with an existing demand for the
// same period are skipped, so reruns are safe.
func (s *Server) handleFeeDemand(w http.ResponseWriter, r *http.Request) {
	var req demandRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	feeType := fees.Type(req.Type)
	if !feeType.Valid() {
		s.writeError(w, r, apperrors.New(apperrors.CodeFeeInvalid, "fee type is invalid"))
		return
	}
	if req.Semester < 1 {
		s.writeError(w, r, apperrors.New(apperrors.CodeFeeInvalid, "semester is invalid"))
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	course, err := s.stores.Courses.GetCourse(ctx, req.CourseID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	amount := req.Amount
	if amount <= 0 {
		amount = course.FeesPerSemester
	}
	now := s.now().UTC()
	academicYear := req.AcademicYear
	if academicYear == "" {
		academicYear = fees.FormatAcademicYear(now.Year())
	}

	var created, skipped int
	pageToken := ""
	for {
		page, err := s.stores.Students.ListStudents(ctx, students.ListFilter{
			CourseID:  req.CourseID,
			PageToken: pageToken,
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		for _, student := range page.Students {
			if student.CurrentSemester != req.Semester {
				continue
			}
			exists, err := s.stores.Fees.FeeExists(ctx, student.RollNo, req.Semester, academicYear, feeType)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			if exists {
				skipped++
				continue
			}
			fee := fees.Fee{
				StudentID:    student.RollNo,
				Type:         feeType,
				Amount:       amount,
				Semester:     req.Semester,
				AcademicYear: academicYear,
				Status:       fees.StatusPending,
				DueDate:      now.AddDate(0, 0, demandDueDays),
				Description:  req.Description,
				CreatedOn:    now,
				UpdatedOn:    now,
			}
			stored, err := s.stores.Fees.PutFee(ctx, fee)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			created++
			s.enqueueMail(ctx, student.Email,
				"fee-demand-"+strconv.FormatInt(stored.ID, 10),
				func() (mailer.Email, error) {
					return mailer.FeeReminderEmail(student.Name, string(feeType), amount, 0, stored.DueDate)
				})
		}
		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"created": created,
		"skipped": skipped,
	})
}

func (s *Server) handleFeeGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()
	fee, err := s.stores.Fees.GetFee(ctx, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	principal, _ := requestctx.PrincipalFromContext(r.Context())
	if !canViewStudent(principal, fee.StudentID) {
		s.writeError(w, r, apperrors.New(apperrors.CodeAuthForbidden, "insufficient privileges"))
		return
	}
	writeJSON(w, http.StatusOK, feeView(fee))
}

type paymentRequest struct {
	Method          string `json:"method"`
	TransactionID   string `json:"transaction_id"`
	ReferenceNumber string `json:"reference_number"`
}

func (s *Server) handleFeePay(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	fee, err := s.stores.Fees.GetFee(ctx, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	principal, _ := requestctx.PrincipalFromContext(r.Context())
	if !canViewStudent(principal, fee.StudentID) {
		s.writeError(w, r, apperrors.New(apperrors.CodeAuthForbidden, "insufficient privileges"))
		return
	}

	payment := fees.Payment{
		Method:          fees.Method(req.Method),
		TransactionID:   req.TransactionID,
		ReferenceNumber: req.ReferenceNumber,
	}
	if principal.Role != string(auth.RoleStudent) {
		if member, err := s.stores.Staff.GetStaffByEmployeeID(ctx, principal.Subject); err == nil {
			payment.ProcessedBy = &member.ID
		}
	}

	now := s.now().UTC()
	var stored fees.Fee
	for attempt := 0; ; attempt++ {
		serial, err := s.stores.Fees.NextReceiptSerial(ctx, now)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		paid := fee
		if err := paid.ApplyPayment(payment, fees.FormatReceiptNumber(now, serial), now); err != nil {
			s.writeError(w, r, err)
			return
		}
		stored, err = s.stores.Fees.PutFee(ctx, paid)
		if err == nil {
			break
		}
		// A concurrent payment can claim the same receipt serial; re-read
		// the counter and try again.
		if apperrors.CodeOf(err) == apperrors.CodeConflict && attempt < 2 {
			continue
		}
		s.writeError(w, r, err)
		return
	}

	if student, err := s.stores.Students.GetStudent(ctx, stored.StudentID); err == nil {
		s.enqueueMail(ctx, student.Email, "payment-"+stored.ReceiptNumber, func() (mailer.Email, error) {
			return mailer.PaymentReceiptEmail(student.Name, stored.ReceiptNumber, string(stored.Method), stored.TotalAmount(), now)
		})
	}
	s.hub.Broadcast(dashboard.NewEvent(dashboard.EventPaymentReceived, s.now(), map[string]any{
		"receipt_number": stored.ReceiptNumber,
		"student_id":     stored.StudentID,
		"amount":         stored.TotalAmount(),
	}))
	writeJSON(w, http.StatusOK, feeView(stored))
}

// handleFeeReceipt serves the PDF receipt by receipt number, or by
// transaction id via ?by=transaction_id.
func (s *Server) handleFeeReceipt(w http.ResponseWriter, r *http.Request) {
	reference := r.PathValue("receiptNumber")

	ctx, cancel := s.requestContext(r)
	defer cancel()
	var fee fees.Fee
	var err error
	if r.URL.Query().Get("by") == "transaction_id" {
		fee, err = s.stores.Fees.GetFeeByTransactionID(ctx, reference)
	} else {
		fee, err = s.stores.Fees.GetFeeByReceiptNumber(ctx, reference)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	principal, _ := requestctx.PrincipalFromContext(r.Context())
	if !canViewStudent(principal, fee.StudentID) {
		s.writeError(w, r, apperrors.New(apperrors.CodeAuthForbidden, "insufficient privileges"))
		return
	}

	student, err := s.stores.Students.GetStudent(ctx, fee.StudentID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	course, err := s.stores.Courses.GetCourse(ctx, student.CourseID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pdf, err := documents.FeeReceiptPDF(fee, student, course)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writePDF(w, "receipt-"+fee.ReceiptNumber+".pdf", pdf)
}

func (s *Server) handleFeeOverdueList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	overdue, err := s.stores.Fees.ListOverdueFees(ctx, s.now().UTC())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fees": feeViews(overdue)})
}

func (s *Server) handleFeeStatistics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	stats, err := s.stores.Fees.GetFeeStatistics(ctx, s.now().UTC())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count_by_status":          stats.CountByStatus,
		"total_collected":          stats.TotalCollected,
		"total_pending":            stats.TotalPending,
		"current_month_collection": stats.CurrentMonthCollection,
	})
}

// handleFeeReport exports paid fees for a period as CSV.
func (s *Server) handleFeeReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := fees.ListFilter{Status: fees.StatusPaid}
	if v := query.Get("from"); v != "" {
		from, err := parseDate(v)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		filter.From = from
	}
	if v := query.Get("to"); v != "" {
		to, err := parseDate(v)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		filter.To = to.AddDate(0, 0, 1) // inclusive end date
	}
	if v := query.Get("type"); v != "" {
		filter.Type = fees.Type(v)
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	records, err := s.stores.Fees.ListFees(ctx, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="fee-collections.csv"`)
	writer := csv.NewWriter(w)
	writer.Write([]string{"receipt_number", "student_id", "type", "semester", "academic_year", "amount", "late_fee", "discount", "total", "method", "transaction_id", "payment_date"})
	for _, fee := range records {
		paidOn := ""
		if fee.PaymentDate != nil {
			paidOn = fee.PaymentDate.UTC().Format(time.RFC3339)
		}
		writer.Write([]string{
			fee.ReceiptNumber,
			fee.StudentID,
			string(fee.Type),
			strconv.Itoa(fee.Semester),
			fee.AcademicYear,
			strconv.FormatInt(fee.Amount, 10),
			strconv.FormatInt(fee.LateFee, 10),
			strconv.FormatInt(fee.Discount, 10),
			strconv.FormatInt(fee.TotalAmount(), 10),
			string(fee.Method),
			fee.TransactionID,
			paidOn,
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		// Headers are already out, so the client may have received a
		// truncated report. Log it rather than pretend the write succeeded.
		s.logger.Printf("%s %s: write csv report: %v", r.Method, r.URL.Path, err)
	}
}
