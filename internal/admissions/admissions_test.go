package admissions

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
	"github.com/Anuraj-dev/student-erp/internal/students"
)

func validApplication() Application {
	return Application{
		ApplicationID:     "ADM2025000123",
		Name:              "Ravi Kumar",
		Email:             "ravi@example.com",
		Phone:             "9812345678",
		DateOfBirth:       time.Date(2007, 3, 15, 0, 0, 0, 0, time.UTC),
		Gender:            students.GenderMale,
		CourseID:          1,
		TenthPercentage:   82,
		TwelfthPercentage: 75,
		Status:            StatusSubmitted,
	}
}

func TestFormatApplicationID(t *testing.T) {
	if got := FormatApplicationID(2025, 123); got != "ADM2025000123" {
		t.Fatalf("unexpected application id %q", got)
	}
}

func TestCheckEligibility(t *testing.T) {
	now := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	app := validApplication()
	if err := app.CheckEligibility(now); err != nil {
		t.Fatalf("expected eligible applicant, got %v", err)
	}

	app.DateOfBirth = time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	err := app.CheckEligibility(now)
	if !errors.Is(err, apperrors.New(apperrors.CodeAdmissionNotEligible, "")) {
		t.Fatalf("expected ineligible by age, got %v", err)
	}

	app = validApplication()
	app.TenthPercentage = 55
	if err := app.CheckEligibility(now); err == nil {
		t.Fatal("expected ineligible by 10th percentage")
	}

	app = validApplication()
	app.TwelfthPercentage = 45
	if err := app.CheckEligibility(now); err == nil {
		t.Fatal("expected ineligible by 12th percentage")
	}

	// Missing scores are not a rejection on their own.
	app = validApplication()
	app.TenthPercentage = 0
	app.TwelfthPercentage = 0
	if err := app.CheckEligibility(now); err != nil {
		t.Fatalf("expected missing scores to pass, got %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	app := validApplication()
	if err := app.CanTransition(StatusApproved); err != nil {
		t.Fatalf("expected submitted application to accept approval, got %v", err)
	}
	if err := app.CanTransition(StatusUnderReview); err != nil {
		t.Fatalf("expected submitted application to accept review, got %v", err)
	}
	if err := app.CanTransition(StatusSubmitted); err == nil {
		t.Fatal("expected transition back to submitted to be rejected")
	}
	if err := app.CanTransition(Status("bogus")); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}

	app.Status = StatusApproved
	err := app.CanTransition(StatusDeclined)
	if !errors.Is(err, apperrors.New(apperrors.CodeAdmissionAlreadyDecided, "")) {
		t.Fatalf("expected decided application to be immutable, got %v", err)
	}
}

func TestTemporaryPassword(t *testing.T) {
	app := validApplication()
	if got := app.TemporaryPassword(); got != "temp0123" {
		t.Fatalf("unexpected temporary password %q", got)
	}
}

func TestValidate(t *testing.T) {
	if err := validApplication().Validate(); err != nil {
		t.Fatalf("expected valid application, got %v", err)
	}

	app := validApplication()
	app.TenthPercentage = 101
	if err := app.Validate(); err == nil {
		t.Fatal("expected out-of-range percentage to fail")
	}

	app = validApplication()
	app.Email = "nope"
	if err := app.Validate(); err == nil {
		t.Fatal("expected invalid email to fail")
	}
}
