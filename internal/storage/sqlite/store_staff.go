package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
	"github.com/Anuraj-dev/student-erp/internal/staff"
)

const staffColumns = `id, name, email, phone, gender, password_hash, role,
department, employee_id, is_active, last_login, address, date_of_joining,
registered_on, updated_on`

func scanStaff(row interface{ Scan(...any) error }) (staff.Member, error) {
	var m staff.Member
	var lastLogin sql.NullInt64
	var joining, registeredOn, updatedOn int64
	err := row.Scan(
		&m.ID, &m.Name, &m.Email, &m.Phone, &m.Gender, &m.PasswordHash,
		&m.Role, &m.Department, &m.EmployeeID, &m.IsActive, &lastLogin,
		&m.Address, &joining, &registeredOn, &updatedOn,
	)
	if err != nil {
		return staff.Member{}, err
	}
	m.LastLogin = fromMillisPtr(lastLogin)
	m.DateOfJoining = fromMillis(joining)
	m.RegisteredOn = fromMillis(registeredOn)
	m.UpdatedOn = fromMillis(updatedOn)
	return m, nil
}

// PutStaff inserts or updates a staff member and returns the stored record.
func (s *Store) PutStaff(ctx context.Context, member staff.Member) (staff.Member, error) {
	if err := ctx.Err(); err != nil {
		return staff.Member{}, err
	}
	if member.ID == 0 {
		result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO staff (name, email, phone, gender, password_hash, role, department,
	employee_id, is_active, last_login, address, date_of_joining,
	registered_on, updated_on)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			member.Name, member.Email, member.Phone, member.Gender,
			member.PasswordHash, string(member.Role), member.Department,
			member.EmployeeID, member.IsActive, toMillisPtr(member.LastLogin),
			member.Address, toMillis(member.DateOfJoining),
			toMillis(member.RegisteredOn), toMillis(member.UpdatedOn),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return staff.Member{}, apperrors.New(apperrors.CodeStaffEmailTaken, "email or employee id already in use")
			}
			return staff.Member{}, fmt.Errorf("insert staff: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return staff.Member{}, fmt.Errorf("staff insert id: %w", err)
		}
		member.ID = id
		return member, nil
	}

	_, err := s.sqlDB.ExecContext(ctx, `
UPDATE staff SET name = ?, email = ?, phone = ?, gender = ?, password_hash = ?,
	role = ?, department = ?, is_active = ?, last_login = ?, address = ?,
	updated_on = ?
WHERE id = ?`,
		member.Name, member.Email, member.Phone, member.Gender,
		member.PasswordHash, string(member.Role), member.Department,
		member.IsActive, toMillisPtr(member.LastLogin), member.Address,
		toMillis(member.UpdatedOn), member.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return staff.Member{}, apperrors.New(apperrors.CodeStaffEmailTaken, "email already in use")
		}
		return staff.Member{}, fmt.Errorf("update staff: %w", err)
	}
	return member, nil
}

// GetStaff fetches a staff member by ID.
func (s *Store) GetStaff(ctx context.Context, id int64) (staff.Member, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+staffColumns+" FROM staff WHERE id = ?", id)
	member, err := scanStaff(row)
	if errors.Is(err, sql.ErrNoRows) {
		return staff.Member{}, staff.ErrNotFound
	}
	if err != nil {
		return staff.Member{}, fmt.Errorf("get staff: %w", err)
	}
	return member, nil
}

// GetStaffByEmail fetches a staff member by email.
func (s *Store) GetStaffByEmail(ctx context.Context, email string) (staff.Member, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+staffColumns+" FROM staff WHERE email = ?", email)
	member, err := scanStaff(row)
	if errors.Is(err, sql.ErrNoRows) {
		return staff.Member{}, staff.ErrNotFound
	}
	if err != nil {
		return staff.Member{}, fmt.Errorf("get staff by email: %w", err)
	}
	return member, nil
}

// GetStaffByEmployeeID fetches a staff member by employee ID.
func (s *Store) GetStaffByEmployeeID(ctx context.Context, employeeID string) (staff.Member, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+staffColumns+" FROM staff WHERE employee_id = ?", employeeID)
	member, err := scanStaff(row)
	if errors.Is(err, sql.ErrNoRows) {
		return staff.Member{}, staff.ErrNotFound
	}
	if err != nil {
		return staff.Member{}, fmt.Errorf("get staff by employee id: %w", err)
	}
	return member, nil
}

// ListStaff returns staff ordered by employee ID, optionally by role.
func (s *Store) ListStaff(ctx context.Context, role staff.Role, activeOnly bool) ([]staff.Member, error) {
	query := "SELECT " + staffColumns + " FROM staff WHERE 1=1"
	var args []any
	if role != "" {
		query += " AND role = ?"
		args = append(args, string(role))
	}
	if activeOnly {
		query += " AND is_active = 1"
	}
	query += " ORDER BY employee_id"

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()

	var out []staff.Member
	for rows.Next() {
		member, err := scanStaff(rows)
		if err != nil {
			return nil, fmt.Errorf("scan staff: %w", err)
		}
		out = append(out, member)
	}
	return out, rows.Err()
}

// NextEmployeeSerial returns the next serial for a staff role.
func (s *Store) NextEmployeeSerial(ctx context.Context, role staff.Role) (int, error) {
	var count int
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM staff WHERE role = ?", string(role),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("next employee serial: %w", err)
	}
	return count + 1, nil
}
