package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Anuraj-dev/student-erp/internal/hostel"
	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
	"github.com/Anuraj-dev/student-erp/internal/students"
)

const hostelColumns = `id, name, kind, warden_name, warden_phone, total_beds,
occupied_beds, address, facilities, mess_facility, wifi_available,
monthly_rent, security_deposit, is_active, created_on, updated_on`

func scanHostel(row interface{ Scan(...any) error }) (hostel.Hostel, error) {
	var h hostel.Hostel
	var createdOn, updatedOn int64
	err := row.Scan(
		&h.ID, &h.Name, &h.Kind, &h.WardenName, &h.WardenPhone, &h.TotalBeds,
		&h.OccupiedBeds, &h.Address, &h.Facilities, &h.MessFacility,
		&h.WifiAvailable, &h.MonthlyRent, &h.SecurityDeposit, &h.IsActive,
		&createdOn, &updatedOn,
	)
	if err != nil {
		return hostel.Hostel{}, err
	}
	h.CreatedOn = fromMillis(createdOn)
	h.UpdatedOn = fromMillis(updatedOn)
	return h, nil
}

// PutHostel inserts or updates a hostel and returns the stored record.
func (s *Store) PutHostel(ctx context.Context, h hostel.Hostel) (hostel.Hostel, error) {
	if err := ctx.Err(); err != nil {
		return hostel.Hostel{}, err
	}
	if h.ID == 0 {
		result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO hostels (name, kind, warden_name, warden_phone, total_beds,
	occupied_beds, address, facilities, mess_facility, wifi_available,
	monthly_rent, security_deposit, is_active, created_on, updated_on)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			h.Name, string(h.Kind), h.WardenName, h.WardenPhone, h.TotalBeds,
			h.OccupiedBeds, h.Address, h.Facilities, h.MessFacility,
			h.WifiAvailable, h.MonthlyRent, h.SecurityDeposit, h.IsActive,
			toMillis(h.CreatedOn), toMillis(h.UpdatedOn),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return hostel.Hostel{}, apperrors.New(apperrors.CodeHostelNameTaken, "hostel name already in use")
			}
			return hostel.Hostel{}, fmt.Errorf("insert hostel: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return hostel.Hostel{}, fmt.Errorf("hostel insert id: %w", err)
		}
		h.ID = id
		return h, nil
	}

	_, err := s.sqlDB.ExecContext(ctx, `
UPDATE hostels SET name = ?, kind = ?, warden_name = ?, warden_phone = ?,
	total_beds = ?, occupied_beds = ?, address = ?, facilities = ?,
	mess_facility = ?, wifi_available = ?, monthly_rent = ?,
	security_deposit = ?, is_active = ?, updated_on = ?
WHERE id = ?`,
		h.Name, string(h.Kind), h.WardenName, h.WardenPhone, h.TotalBeds,
		h.OccupiedBeds, h.Address, h.Facilities, h.MessFacility,
		h.WifiAvailable, h.MonthlyRent, h.SecurityDeposit, h.IsActive,
		toMillis(h.UpdatedOn), h.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return hostel.Hostel{}, apperrors.New(apperrors.CodeHostelNameTaken, "hostel name already in use")
		}
		return hostel.Hostel{}, fmt.Errorf("update hostel: %w", err)
	}
	return h, nil
}

// GetHostel fetches a hostel by ID.
func (s *Store) GetHostel(ctx context.Context, id int64) (hostel.Hostel, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+hostelColumns+" FROM hostels WHERE id = ?", id)
	h, err := scanHostel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return hostel.Hostel{}, hostel.ErrNotFound
	}
	if err != nil {
		return hostel.Hostel{}, fmt.Errorf("get hostel: %w", err)
	}
	return h, nil
}

// GetHostelByName fetches a hostel by its unique name.
func (s *Store) GetHostelByName(ctx context.Context, name string) (hostel.Hostel, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+hostelColumns+" FROM hostels WHERE name = ?", name)
	h, err := scanHostel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return hostel.Hostel{}, hostel.ErrNotFound
	}
	if err != nil {
		return hostel.Hostel{}, fmt.Errorf("get hostel by name: %w", err)
	}
	return h, nil
}

// ListHostels returns active hostels ordered by name, optionally only
// those with free beds matching the given gender.
func (s *Store) ListHostels(ctx context.Context, gender students.Gender, availableOnly bool) ([]hostel.Hostel, error) {
	query := "SELECT " + hostelColumns + " FROM hostels WHERE is_active = 1"
	var args []any
	if availableOnly {
		query += " AND occupied_beds < total_beds"
	}
	if gender != "" {
		switch gender {
		case students.GenderMale:
			query += " AND kind IN (?, ?)"
			args = append(args, string(hostel.KindBoys), string(hostel.KindMixed))
		case students.GenderFemale:
			query += " AND kind IN (?, ?)"
			args = append(args, string(hostel.KindGirls), string(hostel.KindMixed))
		default:
			query += " AND kind = ?"
			args = append(args, string(hostel.KindMixed))
		}
	}
	query += " ORDER BY name"

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list hostels: %w", err)
	}
	defer rows.Close()

	var out []hostel.Hostel
	for rows.Next() {
		h, err := scanHostel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hostel: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
