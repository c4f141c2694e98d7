// Package staff defines administrative, clerical, and faculty accounts.
package staff

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
)

// ErrNotFound indicates a requested staff member is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "staff member not found")

// Role orders staff permission levels from least to most privileged.
type Role string

const (
	RoleFaculty Role = "faculty"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role value is recognized.
func (r Role) Valid() bool {
	switch r {
	case RoleFaculty, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// level returns the numeric rank used for permission comparisons.
func (r Role) level() int {
	switch r {
	case RoleFaculty:
		return 1
	case RoleStaff:
		return 2
	case RoleAdmin:
		return 3
	}
	return 0
}

// AtLeast reports whether the role meets the required permission level.
func (r Role) AtLeast(required Role) bool {
	return r.level() >= required.level()
}

// employeePrefix maps roles to the prefix embedded in employee IDs.
func employeePrefix(role Role) string {
	switch role {
	case RoleAdmin:
		return "ADM"
	case RoleFaculty:
		return "FAC"
	default:
		return "STF"
	}
}

// FormatEmployeeID builds an employee ID: YEAR + role prefix + 4-digit serial.
func FormatEmployeeID(year int, role Role, serial int) string {
	return fmt.Sprintf("%d%s%04d", year, employeePrefix(role), serial)
}

// Member is one staff account.
type Member struct {
	ID            int64
	Name          string
	Email         string
	Phone         string
	Gender        string
	PasswordHash  string
	Role          Role
	Department    string
	EmployeeID    string
	IsActive      bool
	LastLogin     *time.Time
	Address       string
	DateOfJoining time.Time
	RegisteredOn  time.Time
	UpdatedOn     time.Time
}

// Validate checks staff fields before persistence.
func (m Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return apperrors.New(apperrors.CodeStaffInvalid, "name is required")
	}
	if _, err := mail.ParseAddress(m.Email); err != nil {
		return apperrors.New(apperrors.CodeStaffInvalid, "email is invalid")
	}
	if strings.TrimSpace(m.Phone) == "" {
		return apperrors.New(apperrors.CodeStaffInvalid, "phone is required")
	}
	if !m.Role.Valid() {
		return apperrors.New(apperrors.CodeStaffInvalid, "role is invalid")
	}
	return nil
}

// Store persists staff records.
type Store interface {
	PutStaff(ctx context.Context, member Member) (Member, error)
	GetStaff(ctx context.Context, id int64) (Member, error)
	GetStaffByEmail(ctx context.Context, email string) (Member, error)
	GetStaffByEmployeeID(ctx context.Context, employeeID string) (Member, error)
	ListStaff(ctx context.Context, role Role, activeOnly bool) ([]Member, error)
	// NextEmployeeSerial returns the next serial for a role.
	NextEmployeeSerial(ctx context.Context, role Role) (int, error)
}
