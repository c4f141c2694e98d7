// Package courses defines academic programs and their enrollment limits.
package courses

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
)

// ErrNotFound indicates a requested course is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "course not found")

// Course is an academic program students enroll into.
type Course struct {
	ID              int64
	ProgramLevel    string // Diploma, B.Tech, M.Tech
	DegreeName      string
	CourseName      string
	CourseCode      string // short unique code embedded in roll numbers
	DurationYears   int
	Description     string
	FeesPerSemester int64 // rupees
	TotalSeats      int
	IsActive        bool
	CreatedOn       time.Time
	UpdatedOn       time.Time
}

// DisplayName is the full program name, e.g. "B.Tech in Computer Science".
func (c Course) DisplayName() string {
	return c.ProgramLevel + " in " + c.CourseName
}

// TotalSemesters returns the semester count over the course duration.
func (c Course) TotalSemesters() int {
	return c.DurationYears * 2
}

// Validate checks course fields before persistence.
func (c Course) Validate() error {
	if strings.TrimSpace(c.CourseName) == "" {
		return apperrors.New(apperrors.CodeCourseInvalid, "course name is required")
	}
	if strings.TrimSpace(c.CourseCode) == "" {
		return apperrors.New(apperrors.CodeCourseInvalid, "course code is required")
	}
	if strings.TrimSpace(c.ProgramLevel) == "" {
		return apperrors.New(apperrors.CodeCourseInvalid, "program level is required")
	}
	if c.DurationYears < 1 || c.DurationYears > 6 {
		return apperrors.New(apperrors.CodeCourseInvalid, "duration must be between 1 and 6 years")
	}
	if c.FeesPerSemester < 0 {
		return apperrors.New(apperrors.CodeCourseInvalid, "fees per semester cannot be negative")
	}
	if c.TotalSeats < 1 {
		return apperrors.New(apperrors.CodeCourseInvalid, "total seats must be positive")
	}
	return nil
}

// Enrollment pairs a course with its active student count.
type Enrollment struct {
	Course   Course
	Enrolled int
}

// AvailableSeats returns the seats still open for admission.
func (e Enrollment) AvailableSeats() int {
	remaining := e.Course.TotalSeats - e.Enrolled
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AcceptingApplications reports whether the course can take new admissions.
func (e Enrollment) AcceptingApplications() bool {
	return e.Course.IsActive && e.AvailableSeats() > 0
}

// Store persists course records.
type Store interface {
	PutCourse(ctx context.Context, course Course) (Course, error)
	GetCourse(ctx context.Context, id int64) (Course, error)
	GetCourseByCode(ctx context.Context, code string) (Course, error)
	ListCourses(ctx context.Context, activeOnly bool) ([]Course, error)
	CountEnrollment(ctx context.Context, courseID int64) (int, error)
}
