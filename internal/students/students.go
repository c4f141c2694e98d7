// Package students defines enrolled student records and roll number rules.
package students

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
)

// ErrNotFound indicates a requested student is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "student not found")

// Gender is the student's recorded gender.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Valid reports whether the gender value is recognized.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Student is an enrolled student. The roll number is the primary key.
type Student struct {
	RollNo          string
	Name            string
	Email           string
	Phone           string
	DateOfBirth     time.Time
	Gender          Gender
	Address         string
	City            string
	State           string
	Pincode         string
	FatherName      string
	MotherName      string
	GuardianPhone   string
	GuardianEmail   string
	CourseID        int64
	AdmissionYear   int
	CurrentSemester int
	HostelID        *int64
	RoomNumber      string
	PasswordHash    string
	IsActive        bool
	LastLogin       *time.Time
	RegisteredOn    time.Time
	UpdatedOn       time.Time
}

// Age returns the student's age in whole years at the given date.
func (s Student) Age(at time.Time) int {
	years := at.Year() - s.DateOfBirth.Year()
	anniversary := time.Date(at.Year(), s.DateOfBirth.Month(), s.DateOfBirth.Day(), 0, 0, 0, 0, time.UTC)
	if at.Before(anniversary) {
		years--
	}
	return years
}

// Validate checks student fields before persistence.
func (s Student) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return apperrors.New(apperrors.CodeStudentInvalid, "name is required")
	}
	if _, err := mail.ParseAddress(s.Email); err != nil {
		return apperrors.New(apperrors.CodeStudentInvalid, "email is invalid")
	}
	if strings.TrimSpace(s.Phone) == "" {
		return apperrors.New(apperrors.CodeStudentInvalid, "phone is required")
	}
	if s.DateOfBirth.IsZero() {
		return apperrors.New(apperrors.CodeStudentInvalid, "date of birth is required")
	}
	if !s.Gender.Valid() {
		return apperrors.New(apperrors.CodeStudentInvalid, "gender is invalid")
	}
	if s.CourseID == 0 {
		return apperrors.New(apperrors.CodeStudentInvalid, "course is required")
	}
	if s.AdmissionYear < 1900 {
		return apperrors.New(apperrors.CodeStudentInvalid, "admission year is invalid")
	}
	if s.CurrentSemester < 1 {
		return apperrors.New(apperrors.CodeStudentInvalid, "semester must be positive")
	}
	return nil
}

// FormatRollNo builds a roll number from its parts: YEAR + COURSECODE +
// zero-padded 4-digit serial, e.g. 2025CS0001.
func FormatRollNo(admissionYear int, courseCode string, serial int) string {
	return fmt.Sprintf("%d%s%04d", admissionYear, strings.ToUpper(strings.TrimSpace(courseCode)), serial)
}

// Progress summarizes a student's position within their course.
type Progress struct {
	CurrentSemester    int
	TotalSemesters     int
	ProgressPercentage float64
	YearsCompleted     int
	IsFinalYear        bool
}

// AcademicProgress computes progress against the course duration in years.
func (s Student) AcademicProgress(durationYears int) Progress {
	total := durationYears * 2
	if total < 1 {
		total = 1
	}
	percentage := float64(s.CurrentSemester) / float64(total) * 100
	return Progress{
		CurrentSemester:    s.CurrentSemester,
		TotalSemesters:     total,
		ProgressPercentage: percentage,
		YearsCompleted:     (s.CurrentSemester - 1) / 2,
		IsFinalYear:        s.CurrentSemester >= total-1,
	}
}

// ListFilter narrows student listings.
type ListFilter struct {
	CourseID        int64
	AdmissionYear   int
	HostelID        int64
	Query           string // matches name, email, or roll number
	IncludeInactive bool
	PageSize        int
	PageToken       string
}

// Page is one page of student records.
type Page struct {
	Students      []Student
	NextPageToken string
}

// Statistics aggregates student counts for reporting.
type Statistics struct {
	TotalActive    int64
	TotalInactive  int64
	ByCourse       map[int64]int64
	ByYear         map[int]int64
	ByGender       map[Gender]int64
	HostelDwellers int64
}

// Store persists student records.
type Store interface {
	PutStudent(ctx context.Context, student Student) error
	GetStudent(ctx context.Context, rollNo string) (Student, error)
	GetStudentByEmail(ctx context.Context, email string) (Student, error)
	ListStudents(ctx context.Context, filter ListFilter) (Page, error)
	// NextRollSerial returns the next serial for a course and admission
	// year, counting existing students plus one.
	NextRollSerial(ctx context.Context, courseID int64, admissionYear int) (int, error)
	GetStudentStatistics(ctx context.Context) (Statistics, error)
}
