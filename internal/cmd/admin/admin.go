// Package admin wires the bootstrap command that seeds the first
// administrator account so the API has a login to start from.
package admin

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/Anuraj-dev/student-erp/internal/auth"
	platformcmd "github.com/Anuraj-dev/student-erp/internal/platform/cmd"
	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
	"github.com/Anuraj-dev/student-erp/internal/staff"
	"github.com/Anuraj-dev/student-erp/internal/storage/sqlite"
)

// Config holds the bootstrap command configuration.
type Config struct {
	DBPath     string `env:"STUDENT_ERP_DB_PATH" envDefault:"erp.db"`
	Name       string `env:"STUDENT_ERP_ADMIN_NAME"`
	Email      string `env:"STUDENT_ERP_ADMIN_EMAIL"`
	Phone      string `env:"STUDENT_ERP_ADMIN_PHONE"`
	Password   string `env:"STUDENT_ERP_ADMIN_PASSWORD"`
	Department string `env:"STUDENT_ERP_ADMIN_DEPARTMENT" envDefault:"Administration"`
}

// ParseConfig loads env defaults and parses flags into a Config. The
// password is env-only so it never appears in process listings.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{}
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the sqlite database file")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "Administrator full name")
	fs.StringVar(&cfg.Email, "email", cfg.Email, "Administrator email")
	fs.StringVar(&cfg.Phone, "phone", cfg.Phone, "Administrator phone")
	fs.StringVar(&cfg.Department, "department", cfg.Department, "Administrator department")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run creates the administrator account unless one already exists for the
// configured email, in which case it reports the existing employee ID.
func Run(ctx context.Context, cfg Config, report func(format string, args ...any)) error {
	if report == nil {
		report = func(string, ...any) {}
	}
	email := strings.ToLower(strings.TrimSpace(cfg.Email))
	if email == "" {
		return errors.New("administrator email is required")
	}
	if err := auth.ValidatePasswordPolicy(cfg.Password); err != nil {
		return err
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	existing, err := store.GetStaffByEmail(ctx, email)
	if err == nil {
		report("administrator already exists: %s (%s)", existing.Email, existing.EmployeeID)
		return nil
	}
	if apperrors.CodeOf(err) != apperrors.CodeNotFound {
		return err
	}

	hash, err := auth.HashPassword(cfg.Password)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	serial, err := store.NextEmployeeSerial(ctx, staff.RoleAdmin)
	if err != nil {
		return err
	}
	member := staff.Member{
		Name:          strings.TrimSpace(cfg.Name),
		Email:         email,
		Phone:         strings.TrimSpace(cfg.Phone),
		PasswordHash:  hash,
		Role:          staff.RoleAdmin,
		Department:    cfg.Department,
		EmployeeID:    staff.FormatEmployeeID(now.Year(), staff.RoleAdmin, serial),
		IsActive:      true,
		DateOfJoining: now,
		RegisteredOn:  now,
		UpdatedOn:     now,
	}
	if err := member.Validate(); err != nil {
		return err
	}
	created, err := store.PutStaff(ctx, member)
	if err != nil {
		return err
	}
	report("administrator created: %s (%s)", created.Email, created.EmployeeID)
	return nil
}
