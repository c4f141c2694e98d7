// Package admissions manages application intake and the decision workflow.
package admissions

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
	"github.com/Anuraj-dev/student-erp/internal/students"
)

// ErrNotFound indicates a requested application is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "application not found")

// Status is an application's position in the admission workflow.
type Status string

const (
	StatusSubmitted        Status = "submitted"
	StatusUnderReview      Status = "under_review"
	StatusApproved         Status = "approved"
	StatusDeclined         Status = "declined"
	StatusWaitlisted       Status = "waitlisted"
	StatusDocumentsPending Status = "documents_pending"
)

// Valid reports whether the status value is recognized.
func (s Status) Valid() bool {
	switch s {
	case StatusSubmitted, StatusUnderReview, StatusApproved, StatusDeclined,
		StatusWaitlisted, StatusDocumentsPending:
		return true
	}
	return false
}

// Decided reports whether the status is terminal.
func (s Status) Decided() bool {
	return s == StatusApproved || s == StatusDeclined
}

// GeneratedBy records who filed the application.
type GeneratedBy string

const (
	GeneratedByStudent GeneratedBy = "student"
	GeneratedByStaff   GeneratedBy = "staff"
)

// DefaultRequiredDocuments is the standard admission document checklist.
var DefaultRequiredDocuments = []string{
	"10th Mark Sheet",
	"12th Mark Sheet",
	"Transfer Certificate",
	"Aadhar Card",
	"Passport Photo",
}

// Application is one admission application.
type Application struct {
	ID                int64
	ApplicationID     string // ADM + year + 6-digit serial
	Name              string
	Email             string
	Phone             string
	DateOfBirth       time.Time
	Gender            students.Gender
	Address           string
	City              string
	State             string
	Pincode           string
	FatherName        string
	MotherName        string
	GuardianName      string
	GuardianPhone     string
	GuardianEmail     string
	EmergencyContact  string
	MedicalConditions string
	PreviousEducation string
	CourseID          int64
	TenthPercentage   int
	TwelfthPercentage int
	EntranceExamScore int
	PasswordHash      string
	Status            Status
	GeneratedBy       GeneratedBy
	StaffID           *int64
	StudentID         string // roll number, set on approval
	Remarks           string
	RejectionReason   string
	ProcessedOn       *time.Time
	DocumentsRequired []string
	DocumentsVerified map[string]bool
	ApplicationDate   time.Time
	UpdatedOn         time.Time
}

// FormatApplicationID builds an application ID: ADM + year + 6-digit serial.
func FormatApplicationID(year int, serial int) string {
	return fmt.Sprintf("ADM%d%06d", year, serial)
}

// AgeAt returns the applicant's age in whole years at the given date.
func (a Application) AgeAt(at time.Time) int {
	years := at.Year() - a.DateOfBirth.Year()
	anniversary := time.Date(at.Year(), a.DateOfBirth.Month(), a.DateOfBirth.Day(), 0, 0, 0, 0, time.UTC)
	if at.Before(anniversary) {
		years--
	}
	return years
}

// Validate checks application fields at submission time.
func (a Application) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return apperrors.New(apperrors.CodeAdmissionInvalid, "name is required")
	}
	if _, err := mail.ParseAddress(a.Email); err != nil {
		return apperrors.New(apperrors.CodeAdmissionInvalid, "email is invalid")
	}
	if strings.TrimSpace(a.Phone) == "" {
		return apperrors.New(apperrors.CodeAdmissionInvalid, "phone is required")
	}
	if a.DateOfBirth.IsZero() {
		return apperrors.New(apperrors.CodeAdmissionInvalid, "date of birth is required")
	}
	if !a.Gender.Valid() {
		return apperrors.New(apperrors.CodeAdmissionInvalid, "gender is invalid")
	}
	if a.CourseID == 0 {
		return apperrors.New(apperrors.CodeAdmissionInvalid, "course is required")
	}
	if a.TenthPercentage < 0 || a.TenthPercentage > 100 {
		return apperrors.New(apperrors.CodeAdmissionInvalid, "10th percentage out of range")
	}
	if a.TwelfthPercentage < 0 || a.TwelfthPercentage > 100 {
		return apperrors.New(apperrors.CodeAdmissionInvalid, "12th percentage out of range")
	}
	return nil
}

// CheckEligibility enforces the admission criteria: applicant age between
// 17 and 25 at application time and at least 60% in 10th and 12th when the
// scores are present.
func (a Application) CheckEligibility(at time.Time) error {
	age := a.AgeAt(at)
	if age < 17 || age > 25 {
		return apperrors.WithMetadata(apperrors.CodeAdmissionNotEligible,
			"age not within eligible range",
			map[string]string{"Field": "date_of_birth"})
	}
	if a.TenthPercentage > 0 && a.TenthPercentage < 60 {
		return apperrors.WithMetadata(apperrors.CodeAdmissionNotEligible,
			"minimum 60% required in 10th standard",
			map[string]string{"Field": "tenth_percentage"})
	}
	if a.TwelfthPercentage > 0 && a.TwelfthPercentage < 60 {
		return apperrors.WithMetadata(apperrors.CodeAdmissionNotEligible,
			"minimum 60% required in 12th standard",
			map[string]string{"Field": "twelfth_percentage"})
	}
	return nil
}

// CanTransition reports whether the decision workflow allows moving the
// application from its current status to next. Decided applications are
// immutable.
func (a Application) CanTransition(next Status) error {
	if !next.Valid() {
		return apperrors.New(apperrors.CodeAdmissionInvalidDecision, "unknown application status")
	}
	if a.Status.Decided() {
		return apperrors.New(apperrors.CodeAdmissionAlreadyDecided, "application already decided")
	}
	if next == StatusSubmitted {
		return apperrors.New(apperrors.CodeAdmissionInvalidDecision, "cannot return application to submitted")
	}
	return nil
}

// TemporaryPassword derives the first-login password issued on approval
// from the application ID's trailing digits.
func (a Application) TemporaryPassword() string {
	id := a.ApplicationID
	if len(id) < 4 {
		return "temp" + id
	}
	return "temp" + id[len(id)-4:]
}

// Statistics aggregates per-status application counts.
type Statistics struct {
	ByStatus       map[Status]int64
	Total          int64
	ConversionRate float64
}

// ListFilter narrows application listings.
type ListFilter struct {
	Status    Status
	CourseID  int64
	PageSize  int
	PageToken string
}

// Page is one page of applications.
type Page struct {
	Applications  []Application
	NextPageToken string
}

// Store persists admission applications.
type Store interface {
	PutApplication(ctx context.Context, application Application) (Application, error)
	GetApplication(ctx context.Context, applicationID string) (Application, error)
	ListApplications(ctx context.Context, filter ListFilter) (Page, error)
	// NextApplicationSerial returns the next serial for the given year.
	NextApplicationSerial(ctx context.Context, year int) (int, error)
	GetAdmissionStatistics(ctx context.Context) (Statistics, error)
}
