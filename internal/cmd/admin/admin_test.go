package admin

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Anuraj-dev/student-erp/internal/auth"
	"github.com/Anuraj-dev/student-erp/internal/storage/sqlite"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "erp.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.Department != "Administration" {
		t.Fatalf("expected default department, got %q", cfg.Department)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("STUDENT_ERP_ADMIN_PASSWORD", "S3cret!Pass")

	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	args := []string{"-email", "root@example.edu", "-name", "Root Admin"}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Email != "root@example.edu" {
		t.Fatalf("expected flag email, got %q", cfg.Email)
	}
	if cfg.Password != "S3cret!Pass" {
		t.Fatalf("expected env password, got %q", cfg.Password)
	}
}

func TestRunCreatesAdministratorOnce(t *testing.T) {
	cfg := Config{
		DBPath:     filepath.Join(t.TempDir(), "erp.db"),
		Name:       "Asha Verma",
		Email:      "Asha@Example.edu",
		Phone:      "9876543210",
		Password:   "Sup3r$ecret",
		Department: "Administration",
	}

	var reports []string
	report := func(format string, args ...any) {
		reports = append(reports, fmt.Sprintf(format, args...))
	}
	ctx := context.Background()
	if err := Run(ctx, cfg, report); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(reports) != 1 || !strings.Contains(reports[0], "created") {
		t.Fatalf("expected creation report, got %v", reports)
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	member, err := store.GetStaffByEmail(ctx, "asha@example.edu")
	if err != nil {
		t.Fatalf("get staff: %v", err)
	}
	if !strings.Contains(member.EmployeeID, "ADM") {
		t.Fatalf("expected admin employee id, got %q", member.EmployeeID)
	}
	if !auth.CheckPassword(member.PasswordHash, cfg.Password) {
		t.Fatal("expected stored hash to verify configured password")
	}

	// Second run must not duplicate the account.
	if err := Run(ctx, cfg, report); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if len(reports) != 2 || !strings.Contains(reports[1], "already exists") {
		t.Fatalf("expected existing report, got %v", reports)
	}
}

func TestRunRejectsWeakPassword(t *testing.T) {
	cfg := Config{
		DBPath:   filepath.Join(t.TempDir(), "erp.db"),
		Name:     "Asha Verma",
		Email:    "asha@example.edu",
		Phone:    "9876543210",
		Password: "short",
	}
	if err := Run(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected weak password to be rejected")
	}
}
