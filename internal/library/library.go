// Package library manages the book catalog and issue/return tracking.
package library

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
)

// ErrNotFound indicates a requested book or issue record is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "library record not found")

const (
	// LoanDays is the standard loan period.
	LoanDays = 14
	// MaxRenewals caps renewals per loan.
	MaxRenewals = 2
	// MaxActiveLoans caps concurrent loans per student.
	MaxActiveLoans = 3
	// LateFeePerDay is the per-day return penalty in rupees.
	LateFeePerDay = 5
)

// Book is one catalog entry, possibly with multiple physical copies.
type Book struct {
	BookID          string // LB + 4-digit serial
	Title           string
	Author          string
	ISBN            string
	Publisher       string
	PublicationYear int
	Category        string
	TotalCopies     int
	AvailableCopies int
	ShelfLocation   string
	Condition       string // Good, Fair, Poor, Damaged
	IsActive        bool
	AddedOn         time.Time
	UpdatedOn       time.Time
}

// FormatBookID builds a book ID: LB + 4-digit serial.
func FormatBookID(serial int) string {
	return fmt.Sprintf("LB%04d", serial)
}

// IssuedCopies is the number of copies currently out on loan.
func (b Book) IssuedCopies() int {
	return b.TotalCopies - b.AvailableCopies
}

// Available reports whether the book can be issued.
func (b Book) Available() bool {
	return b.IsActive && b.AvailableCopies > 0
}

// Validate checks book fields before persistence.
func (b Book) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return apperrors.New(apperrors.CodeLibraryInvalid, "title is required")
	}
	if strings.TrimSpace(b.Author) == "" {
		return apperrors.New(apperrors.CodeLibraryInvalid, "author is required")
	}
	if b.TotalCopies < 1 {
		return apperrors.New(apperrors.CodeLibraryInvalid, "total copies must be positive")
	}
	if b.AvailableCopies < 0 || b.AvailableCopies > b.TotalCopies {
		return apperrors.New(apperrors.CodeLibraryInvalid, "available copies out of range")
	}
	return nil
}

// Issue is one loan of a book copy to a student.
type Issue struct {
	ID           int64
	BookID       string
	StudentID    string // roll number
	IssueDate    time.Time
	DueDate      time.Time
	ReturnDate   *time.Time
	LateFee      int64
	DamageFee    int64
	Remarks      string
	RenewedCount int
}

// Returned reports whether the loan is closed.
func (i Issue) Returned() bool {
	return i.ReturnDate != nil
}

// IsOverdue reports whether an open loan is past its due date.
func (i Issue) IsOverdue(now time.Time) bool {
	return !i.Returned() && now.After(i.DueDate)
}

// DaysOverdue returns whole days past the due date for an open loan.
func (i Issue) DaysOverdue(now time.Time) int {
	if !i.IsOverdue(now) {
		return 0
	}
	return int(now.Sub(i.DueDate).Hours() / 24)
}

// ReturnLateFee computes the penalty owed at return time.
func (i Issue) ReturnLateFee(now time.Time) int64 {
	return int64(i.DaysOverdue(now)) * LateFeePerDay
}

// Renew extends an open, non-overdue loan by the standard period, up to
// MaxRenewals times.
func (i *Issue) Renew(now time.Time) error {
	if i.Returned() {
		return apperrors.New(apperrors.CodeLibraryNotIssued, "book already returned")
	}
	if i.RenewedCount >= MaxRenewals {
		return apperrors.New(apperrors.CodeLibraryRenewalLimit, "maximum renewal limit reached")
	}
	if i.IsOverdue(now) {
		return apperrors.New(apperrors.CodeLibraryOverdueRenewal, "cannot renew overdue loan")
	}
	i.DueDate = i.DueDate.AddDate(0, 0, LoanDays)
	i.RenewedCount++
	return nil
}

// SearchFilter narrows catalog searches.
type SearchFilter struct {
	Query         string // matches title, author, or ISBN
	Category      string
	AvailableOnly bool
}

// Statistics aggregates catalog and circulation numbers.
type Statistics struct {
	TotalBooks     int64
	AvailableBooks int64
	TotalIssues    int64
	ActiveIssues   int64
	OverdueIssues  int64
	MonthlyIssues  int64
	MonthlyReturns int64
}

// Store persists the catalog and loan records.
type Store interface {
	PutBook(ctx context.Context, book Book) error
	GetBook(ctx context.Context, bookID string) (Book, error)
	SearchBooks(ctx context.Context, filter SearchFilter) ([]Book, error)
	ListCategories(ctx context.Context) ([]string, error)
	// NextBookSerial returns the next catalog serial.
	NextBookSerial(ctx context.Context) (int, error)

	PutIssue(ctx context.Context, issue Issue) (Issue, error)
	GetIssue(ctx context.Context, id int64) (Issue, error)
	// GetOpenIssue finds the unreturned loan of a book to a student.
	GetOpenIssue(ctx context.Context, bookID, studentID string) (Issue, error)
	ListStudentIssues(ctx context.Context, studentID string, activeOnly bool) ([]Issue, error)
	CountOpenIssues(ctx context.Context, studentID string) (int, error)
	ListOverdueIssues(ctx context.Context, now time.Time) ([]Issue, error)
	GetLibraryStatistics(ctx context.Context, now time.Time) (Statistics, error)
}
