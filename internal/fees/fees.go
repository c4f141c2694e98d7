// Package fees manages fee demands, payments, receipts, and late fees.
package fees

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
)

// ErrNotFound indicates a requested fee record is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "fee record not found")

// Status is a fee record's payment state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether the status value is recognized.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// Type classifies what a fee is charged for.
type Type string

const (
	TypeTuition       Type = "tuition"
	TypeHostel        Type = "hostel"
	TypeLibrary       Type = "library"
	TypeLaboratory    Type = "laboratory"
	TypeExam          Type = "exam"
	TypeMiscellaneous Type = "miscellaneous"
)

// Valid reports whether the fee type is recognized.
func (t Type) Valid() bool {
	switch t {
	case TypeTuition, TypeHostel, TypeLibrary, TypeLaboratory, TypeExam, TypeMiscellaneous:
		return true
	}
	return false
}

// Method is how a payment was made.
type Method string

const (
	MethodCash         Method = "cash"
	MethodOnline       Method = "online"
	MethodBankTransfer Method = "bank_transfer"
	MethodCheque       Method = "cheque"
	MethodDemandDraft  Method = "demand_draft"
)

// Valid reports whether the payment method is recognized.
func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodOnline, MethodBankTransfer, MethodCheque, MethodDemandDraft:
		return true
	}
	return false
}

// Fee is one charge against a student. Amounts are whole rupees.
type Fee struct {
	ID              int64
	StudentID       string // roll number
	Type            Type
	Amount          int64
	LateFee         int64
	Discount        int64
	Semester        int
	AcademicYear    string // e.g. 2025-26
	PaymentDate     *time.Time
	Method          Method
	TransactionID   string
	ReferenceNumber string
	Status          Status
	DueDate         time.Time
	Description     string
	ReceiptNumber   string
	ProcessedBy     *int64 // staff id
	Remarks         string
	CreatedOn       time.Time
	UpdatedOn       time.Time
}

// TotalAmount is the payable amount: base plus late fee minus discount.
func (f Fee) TotalAmount() int64 {
	return f.Amount + f.LateFee - f.Discount
}

// IsOverdue reports whether the fee is unpaid past its due date.
func (f Fee) IsOverdue(now time.Time) bool {
	if f.Status != StatusPending && f.Status != StatusOverdue {
		return false
	}
	return now.After(f.DueDate)
}

// DaysOverdue returns whole days elapsed since the due date, zero when the
// fee is not overdue.
func (f Fee) DaysOverdue(now time.Time) int {
	if !f.IsOverdue(now) {
		return 0
	}
	return int(now.Sub(f.DueDate).Hours() / 24)
}

// CalculateLateFee computes the accrued late fee: ₹50 per day for the first
// 30 days, ₹100 per day after, capped at 25% of the base amount.
func (f Fee) CalculateLateFee(now time.Time) int64 {
	days := f.DaysOverdue(now)
	if days <= 0 {
		return 0
	}
	var lateFee int64
	if days <= 30 {
		lateFee = int64(days) * 50
	} else {
		lateFee = 30*50 + int64(days-30)*100
	}
	cap := f.Amount / 4
	if lateFee > cap {
		lateFee = cap
	}
	return lateFee
}

// FormatReceiptNumber builds a receipt number: RCP + YYYYMM + 5-digit serial.
func FormatReceiptNumber(at time.Time, serial int) string {
	return fmt.Sprintf("RCP%d%02d%05d", at.Year(), int(at.Month()), serial)
}

// FormatAcademicYear renders the academic year spanning the given start
// year, e.g. 2025 -> "2025-26".
func FormatAcademicYear(startYear int) string {
	return fmt.Sprintf("%d-%02d", startYear, (startYear+1)%100)
}

// Payment captures payment details submitted for a pending fee.
type Payment struct {
	Method          Method
	TransactionID   string
	ReferenceNumber string
	ProcessedBy     *int64
}

// Validate checks payment inputs.
func (p Payment) Validate() error {
	if !p.Method.Valid() {
		return apperrors.New(apperrors.CodeFeeInvalid, "payment method is invalid")
	}
	if p.TransactionID == "" {
		return apperrors.New(apperrors.CodeFeeInvalid, "transaction id is required")
	}
	return nil
}

// ApplyPayment marks the fee paid. Only pending fees accept payment.
func (f *Fee) ApplyPayment(payment Payment, receiptNumber string, now time.Time) error {
	if err := payment.Validate(); err != nil {
		return err
	}
	if f.Status != StatusPending && f.Status != StatusOverdue {
		return apperrors.New(apperrors.CodeFeeNotPending, "fee is not awaiting payment")
	}
	paidAt := now.UTC()
	f.Status = StatusPaid
	f.PaymentDate = &paidAt
	f.Method = payment.Method
	f.TransactionID = payment.TransactionID
	f.ReferenceNumber = payment.ReferenceNumber
	f.ProcessedBy = payment.ProcessedBy
	f.ReceiptNumber = receiptNumber
	return nil
}

// Cancel voids a paid fee, recording the reason and acting staff member.
func (f *Fee) Cancel(reason string, staffID int64) error {
	if f.Status != StatusPaid {
		return apperrors.New(apperrors.CodeFeeNotPaid, "only paid fees can be cancelled")
	}
	f.Status = StatusCancelled
	f.Remarks = "Cancelled: " + reason
	f.ProcessedBy = &staffID
	return nil
}

// ApplyDiscount records a discount, bounded by the base amount.
func (f *Fee) ApplyDiscount(amount int64, reason string, staffID int64) error {
	if amount < 0 || amount > f.Amount {
		return apperrors.New(apperrors.CodeFeeDiscountExceedsBase, "discount cannot exceed fee amount")
	}
	f.Discount = amount
	f.Remarks = "Discount applied: " + reason
	f.ProcessedBy = &staffID
	return nil
}

// Statistics aggregates fee collection numbers for reporting.
type Statistics struct {
	CountByStatus          map[Status]int64
	TotalCollected         int64
	TotalPending           int64
	CurrentMonthCollection int64
}

// ListFilter narrows fee listings.
type ListFilter struct {
	StudentID    string
	Status       Status
	Type         Type
	Semester     int
	AcademicYear string
	From         time.Time
	To           time.Time
}

// Store persists fee records.
type Store interface {
	PutFee(ctx context.Context, fee Fee) (Fee, error)
	GetFee(ctx context.Context, id int64) (Fee, error)
	GetFeeByTransactionID(ctx context.Context, transactionID string) (Fee, error)
	GetFeeByReceiptNumber(ctx context.Context, receiptNumber string) (Fee, error)
	ListFees(ctx context.Context, filter ListFilter) ([]Fee, error)
	// FeeExists reports whether a demand already exists for the student,
	// semester, academic year, and fee type.
	FeeExists(ctx context.Context, studentID string, semester int, academicYear string, feeType Type) (bool, error)
	// NextReceiptSerial returns the next receipt serial for the month
	// containing at.
	NextReceiptSerial(ctx context.Context, at time.Time) (int, error)
	ListOverdueFees(ctx context.Context, now time.Time) ([]Fee, error)
	GetFeeStatistics(ctx context.Context, now time.Time) (Statistics, error)
}
