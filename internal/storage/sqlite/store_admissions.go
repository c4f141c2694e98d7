package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/Anuraj-dev/student-erp/internal/admissions"
)

const admissionColumns = `id, application_id, name, email, phone, date_of_birth,
gender, address, city, state, pincode, father_name, mother_name, guardian_name,
guardian_phone, guardian_email, emergency_contact, medical_conditions,
previous_education, course_id, tenth_percentage, twelfth_percentage,
entrance_exam_score, password_hash, status, generated_by, staff_id, student_id,
remarks, rejection_reason, processed_on, documents_required,
documents_verified, application_date, updated_on`

func scanApplication(row interface{ Scan(...any) error }) (admissions.Application, error) {
	var a admissions.Application
	var dob, applicationDate, updatedOn int64
	var processedOn, staffID sql.NullInt64
	var docsRequired, docsVerified string
	err := row.Scan(
		&a.ID, &a.ApplicationID, &a.Name, &a.Email, &a.Phone, &dob, &a.Gender,
		&a.Address, &a.City, &a.State, &a.Pincode, &a.FatherName, &a.MotherName,
		&a.GuardianName, &a.GuardianPhone, &a.GuardianEmail, &a.EmergencyContact,
		&a.MedicalConditions, &a.PreviousEducation, &a.CourseID,
		&a.TenthPercentage, &a.TwelfthPercentage, &a.EntranceExamScore,
		&a.PasswordHash, &a.Status, &a.GeneratedBy, &staffID, &a.StudentID,
		&a.Remarks, &a.RejectionReason, &processedOn, &docsRequired,
		&docsVerified, &applicationDate, &updatedOn,
	)
	if err != nil {
		return admissions.Application{}, err
	}
	a.DateOfBirth = fromMillis(dob)
	if staffID.Valid {
		a.StaffID = &staffID.Int64
	}
	a.ProcessedOn = fromMillisPtr(processedOn)
	a.ApplicationDate = fromMillis(applicationDate)
	a.UpdatedOn = fromMillis(updatedOn)
	if err := json.Unmarshal([]byte(docsRequired), &a.DocumentsRequired); err != nil {
		return admissions.Application{}, fmt.Errorf("decode documents required: %w", err)
	}
	if err := json.Unmarshal([]byte(docsVerified), &a.DocumentsVerified); err != nil {
		return admissions.Application{}, fmt.Errorf("decode documents verified: %w", err)
	}
	return a, nil
}

// PutApplication inserts or updates an application and returns the stored
// record.
func (s *Store) PutApplication(ctx context.Context, application admissions.Application) (admissions.Application, error) {
	if err := ctx.Err(); err != nil {
		return admissions.Application{}, err
	}
	docsRequired, err := json.Marshal(application.DocumentsRequired)
	if err != nil {
		return admissions.Application{}, fmt.Errorf("encode documents required: %w", err)
	}
	if application.DocumentsVerified == nil {
		application.DocumentsVerified = map[string]bool{}
	}
	docsVerified, err := json.Marshal(application.DocumentsVerified)
	if err != nil {
		return admissions.Application{}, fmt.Errorf("encode documents verified: %w", err)
	}
	var staffID any
	if application.StaffID != nil {
		staffID = *application.StaffID
	}

	if application.ID == 0 {
		result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO admissions (application_id, name, email, phone, date_of_birth,
	gender, address, city, state, pincode, father_name, mother_name,
	guardian_name, guardian_phone, guardian_email, emergency_contact,
	medical_conditions, previous_education, course_id, tenth_percentage,
	twelfth_percentage, entrance_exam_score, password_hash, status,
	generated_by, staff_id, student_id, remarks, rejection_reason,
	processed_on, documents_required, documents_verified, application_date,
	updated_on)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			application.ApplicationID, application.Name, application.Email,
			application.Phone, toMillis(application.DateOfBirth),
			string(application.Gender), application.Address, application.City,
			application.State, application.Pincode, application.FatherName,
			application.MotherName, application.GuardianName,
			application.GuardianPhone, application.GuardianEmail,
			application.EmergencyContact, application.MedicalConditions,
			application.PreviousEducation, application.CourseID,
			application.TenthPercentage, application.TwelfthPercentage,
			application.EntranceExamScore, application.PasswordHash,
			string(application.Status), string(application.GeneratedBy),
			staffID, application.StudentID, application.Remarks,
			application.RejectionReason, toMillisPtr(application.ProcessedOn),
			string(docsRequired), string(docsVerified),
			toMillis(application.ApplicationDate), toMillis(application.UpdatedOn),
		)
		if err != nil {
			return admissions.Application{}, fmt.Errorf("insert application: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return admissions.Application{}, fmt.Errorf("application insert id: %w", err)
		}
		application.ID = id
		return application, nil
	}

	_, err = s.sqlDB.ExecContext(ctx, `
UPDATE admissions SET status = ?, staff_id = ?, student_id = ?, remarks = ?,
	rejection_reason = ?, processed_on = ?, password_hash = ?,
	documents_required = ?, documents_verified = ?, updated_on = ?
WHERE id = ?`,
		string(application.Status), staffID, application.StudentID,
		application.Remarks, application.RejectionReason,
		toMillisPtr(application.ProcessedOn), application.PasswordHash,
		string(docsRequired), string(docsVerified),
		toMillis(application.UpdatedOn), application.ID,
	)
	if err != nil {
		return admissions.Application{}, fmt.Errorf("update application: %w", err)
	}
	return application, nil
}

// GetApplication fetches an application by its public application ID.
func (s *Store) GetApplication(ctx context.Context, applicationID string) (admissions.Application, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+admissionColumns+" FROM admissions WHERE application_id = ?", applicationID)
	application, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return admissions.Application{}, admissions.ErrNotFound
	}
	if err != nil {
		return admissions.Application{}, fmt.Errorf("get application: %w", err)
	}
	return application, nil
}

// ListApplications returns a filtered page of applications ordered newest
// first. The page token is the numeric row ID of the last item.
func (s *Store) ListApplications(ctx context.Context, filter admissions.ListFilter) (admissions.Page, error) {
	query := "SELECT " + admissionColumns + " FROM admissions WHERE 1=1"
	var args []any
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.CourseID != 0 {
		query += " AND course_id = ?"
		args = append(args, filter.CourseID)
	}
	if filter.PageToken != "" {
		lastID, err := strconv.ParseInt(filter.PageToken, 10, 64)
		if err != nil {
			return admissions.Page{}, fmt.Errorf("invalid page token %q", filter.PageToken)
		}
		query += " AND id < ?"
		args = append(args, lastID)
	}
	query += " ORDER BY id DESC"

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	query += " LIMIT " + strconv.Itoa(pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return admissions.Page{}, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var page admissions.Page
	for rows.Next() {
		application, err := scanApplication(rows)
		if err != nil {
			return admissions.Page{}, fmt.Errorf("scan application: %w", err)
		}
		page.Applications = append(page.Applications, application)
	}
	if err := rows.Err(); err != nil {
		return admissions.Page{}, err
	}
	if len(page.Applications) > pageSize {
		page.Applications = page.Applications[:pageSize]
		page.NextPageToken = strconv.FormatInt(page.Applications[pageSize-1].ID, 10)
	}
	return page, nil
}

// NextApplicationSerial returns the next serial for the given year.
func (s *Store) NextApplicationSerial(ctx context.Context, year int) (int, error) {
	prefix := fmt.Sprintf("ADM%d", year)
	var count int
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM admissions WHERE application_id LIKE ?", prefix+"%",
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("next application serial: %w", err)
	}
	return count + 1, nil
}

// GetAdmissionStatistics aggregates per-status application counts.
func (s *Store) GetAdmissionStatistics(ctx context.Context) (admissions.Statistics, error) {
	stats := admissions.Statistics{ByStatus: make(map[admissions.Status]int64)}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM admissions GROUP BY status")
	if err != nil {
		return admissions.Statistics{}, fmt.Errorf("admission statistics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status admissions.Status
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return admissions.Statistics{}, fmt.Errorf("scan statistics: %w", err)
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return admissions.Statistics{}, err
	}
	if stats.Total > 0 {
		stats.ConversionRate = float64(stats.ByStatus[admissions.StatusApproved]) / float64(stats.Total) * 100
	}
	return stats, nil
}
