package library

import (
	"testing"
	"time"
)

func TestFormatBookID(t *testing.T) {
	if got := FormatBookID(1); got != "LB0001" {
		t.Fatalf("unexpected book id %q", got)
	}
	if got := FormatBookID(1234); got != "LB1234" {
		t.Fatalf("unexpected book id %q", got)
	}
}

func TestBookAvailability(t *testing.T) {
	book := Book{
		BookID:          "LB0001",
		Title:           "Structure and Interpretation",
		Author:          "Abelson",
		TotalCopies:     3,
		AvailableCopies: 1,
		IsActive:        true,
	}
	if !book.Available() {
		t.Fatal("expected book with free copies to be available")
	}
	if got := book.IssuedCopies(); got != 2 {
		t.Fatalf("expected 2 issued copies, got %d", got)
	}

	book.AvailableCopies = 0
	if book.Available() {
		t.Fatal("expected book with no free copies to be unavailable")
	}

	book.AvailableCopies = 1
	book.IsActive = false
	if book.Available() {
		t.Fatal("expected inactive book to be unavailable")
	}
}

func TestBookValidate(t *testing.T) {
	book := Book{Title: "T", Author: "A", TotalCopies: 2, AvailableCopies: 2}
	if err := book.Validate(); err != nil {
		t.Fatalf("expected valid book, got %v", err)
	}

	book.AvailableCopies = 3
	if err := book.Validate(); err == nil {
		t.Fatal("expected available above total to fail")
	}

	book = Book{Author: "A", TotalCopies: 1, AvailableCopies: 1}
	if err := book.Validate(); err == nil {
		t.Fatal("expected missing title to fail")
	}
}

func TestIssueOverdueAndLateFee(t *testing.T) {
	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	issue := Issue{BookID: "LB0001", StudentID: "2025CS0001", DueDate: due}

	now := due.AddDate(0, 0, -1)
	if issue.IsOverdue(now) {
		t.Fatal("expected loan before due date not to be overdue")
	}
	if got := issue.ReturnLateFee(now); got != 0 {
		t.Fatalf("expected no late fee, got %d", got)
	}

	now = due.AddDate(0, 0, 6)
	if !issue.IsOverdue(now) {
		t.Fatal("expected loan past due date to be overdue")
	}
	if got := issue.ReturnLateFee(now); got != 30 {
		t.Fatalf("expected late fee 30, got %d", got)
	}

	returned := now
	issue.ReturnDate = &returned
	if issue.IsOverdue(now.AddDate(0, 0, 10)) {
		t.Fatal("expected returned loan not to be overdue")
	}
}

func TestRenew(t *testing.T) {
	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	now := due.AddDate(0, 0, -2)
	issue := Issue{DueDate: due}

	if err := issue.Renew(now); err != nil {
		t.Fatalf("first renewal: %v", err)
	}
	if !issue.DueDate.Equal(due.AddDate(0, 0, LoanDays)) {
		t.Fatalf("expected due date extended by %d days, got %v", LoanDays, issue.DueDate)
	}
	if err := issue.Renew(now); err != nil {
		t.Fatalf("second renewal: %v", err)
	}
	if err := issue.Renew(now); err == nil {
		t.Fatal("expected third renewal to be rejected")
	}
}

func TestRenewRejectsOverdueAndReturned(t *testing.T) {
	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	issue := Issue{DueDate: due}
	if err := issue.Renew(due.AddDate(0, 0, 1)); err == nil {
		t.Fatal("expected overdue renewal to be rejected")
	}

	returned := due
	issue = Issue{DueDate: due, ReturnDate: &returned}
	if err := issue.Renew(due.AddDate(0, 0, -1)); err == nil {
		t.Fatal("expected renewal of returned loan to be rejected")
	}
}
