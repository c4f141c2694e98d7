package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
	"github.com/Anuraj-dev/student-erp/internal/students"
)

const studentColumns = `roll_no, name, email, phone, date_of_birth, gender,
address, city, state, pincode, father_name, mother_name, guardian_phone,
guardian_email, course_id, admission_year, current_semester, hostel_id,
room_number, password_hash, is_active, last_login, registered_on, updated_on`

func scanStudent(row interface{ Scan(...any) error }) (students.Student, error) {
	var st students.Student
	var dob, registeredOn, updatedOn int64
	var hostelID sql.NullInt64
	var lastLogin sql.NullInt64
	err := row.Scan(
		&st.RollNo, &st.Name, &st.Email, &st.Phone, &dob, &st.Gender,
		&st.Address, &st.City, &st.State, &st.Pincode, &st.FatherName,
		&st.MotherName, &st.GuardianPhone, &st.GuardianEmail, &st.CourseID,
		&st.AdmissionYear, &st.CurrentSemester, &hostelID, &st.RoomNumber,
		&st.PasswordHash, &st.IsActive, &lastLogin, &registeredOn, &updatedOn,
	)
	if err != nil {
		return students.Student{}, err
	}
	st.DateOfBirth = fromMillis(dob)
	if hostelID.Valid {
		st.HostelID = &hostelID.Int64
	}
	st.LastLogin = fromMillisPtr(lastLogin)
	st.RegisteredOn = fromMillis(registeredOn)
	st.UpdatedOn = fromMillis(updatedOn)
	return st, nil
}

// PutStudent inserts or replaces a student record keyed by roll number.
func (s *Store) PutStudent(ctx context.Context, student students.Student) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var hostelID any
	if student.HostelID != nil {
		hostelID = *student.HostelID
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO students (roll_no, name, email, phone, date_of_birth, gender,
	address, city, state, pincode, father_name, mother_name, guardian_phone,
	guardian_email, course_id, admission_year, current_semester, hostel_id,
	room_number, password_hash, is_active, last_login, registered_on, updated_on)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(roll_no) DO UPDATE SET
	name = excluded.name, email = excluded.email, phone = excluded.phone,
	date_of_birth = excluded.date_of_birth, gender = excluded.gender,
	address = excluded.address, city = excluded.city, state = excluded.state,
	pincode = excluded.pincode, father_name = excluded.father_name,
	mother_name = excluded.mother_name, guardian_phone = excluded.guardian_phone,
	guardian_email = excluded.guardian_email, course_id = excluded.course_id,
	admission_year = excluded.admission_year,
	current_semester = excluded.current_semester, hostel_id = excluded.hostel_id,
	room_number = excluded.room_number, password_hash = excluded.password_hash,
	is_active = excluded.is_active, last_login = excluded.last_login,
	updated_on = excluded.updated_on`,
		student.RollNo, student.Name, student.Email, student.Phone,
		toMillis(student.DateOfBirth), string(student.Gender),
		student.Address, student.City, student.State, student.Pincode,
		student.FatherName, student.MotherName, student.GuardianPhone,
		student.GuardianEmail, student.CourseID, student.AdmissionYear,
		student.CurrentSemester, hostelID, student.RoomNumber,
		student.PasswordHash, student.IsActive, toMillisPtr(student.LastLogin),
		toMillis(student.RegisteredOn), toMillis(student.UpdatedOn),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.New(apperrors.CodeStudentEmailTaken, "email already in use")
		}
		return fmt.Errorf("put student: %w", err)
	}
	return nil
}

// GetStudent fetches a student by roll number.
func (s *Store) GetStudent(ctx context.Context, rollNo string) (students.Student, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+studentColumns+" FROM students WHERE roll_no = ?", rollNo)
	student, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return students.Student{}, students.ErrNotFound
	}
	if err != nil {
		return students.Student{}, fmt.Errorf("get student: %w", err)
	}
	return student, nil
}

// GetStudentByEmail fetches a student by email.
func (s *Store) GetStudentByEmail(ctx context.Context, email string) (students.Student, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+studentColumns+" FROM students WHERE email = ?", email)
	student, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return students.Student{}, students.ErrNotFound
	}
	if err != nil {
		return students.Student{}, fmt.Errorf("get student by email: %w", err)
	}
	return student, nil
}

// ListStudents returns a filtered page of students ordered by roll number.
// The page token is the last roll number of the previous page.
func (s *Store) ListStudents(ctx context.Context, filter students.ListFilter) (students.Page, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE 1=1"
	var args []any
	if !filter.IncludeInactive {
		query += " AND is_active = 1"
	}
	if filter.CourseID != 0 {
		query += " AND course_id = ?"
		args = append(args, filter.CourseID)
	}
	if filter.AdmissionYear != 0 {
		query += " AND admission_year = ?"
		args = append(args, filter.AdmissionYear)
	}
	if filter.HostelID != 0 {
		query += " AND hostel_id = ?"
		args = append(args, filter.HostelID)
	}
	if filter.Query != "" {
		query += " AND (name LIKE ? OR email LIKE ? OR roll_no LIKE ?)"
		like := "%" + filter.Query + "%"
		args = append(args, like, like, like)
	}
	if filter.PageToken != "" {
		query += " AND roll_no > ?"
		args = append(args, filter.PageToken)
	}
	query += " ORDER BY roll_no"

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	query += " LIMIT " + strconv.Itoa(pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return students.Page{}, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var page students.Page
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return students.Page{}, fmt.Errorf("scan student: %w", err)
		}
		page.Students = append(page.Students, student)
	}
	if err := rows.Err(); err != nil {
		return students.Page{}, err
	}
	if len(page.Students) > pageSize {
		page.Students = page.Students[:pageSize]
		page.NextPageToken = page.Students[pageSize-1].RollNo
	}
	return page, nil
}

// NextRollSerial returns the next roll serial for a course and year.
func (s *Store) NextRollSerial(ctx context.Context, courseID int64, admissionYear int) (int, error) {
	var count int
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM students WHERE course_id = ? AND admission_year = ?",
		courseID, admissionYear,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("next roll serial: %w", err)
	}
	return count + 1, nil
}

// GetStudentStatistics aggregates student counts for reporting.
func (s *Store) GetStudentStatistics(ctx context.Context) (students.Statistics, error) {
	stats := students.Statistics{
		ByCourse: make(map[int64]int64),
		ByYear:   make(map[int]int64),
		ByGender: make(map[students.Gender]int64),
	}

	err := s.sqlDB.QueryRowContext(ctx, `
SELECT
	COUNT(CASE WHEN is_active = 1 THEN 1 END),
	COUNT(CASE WHEN is_active = 0 THEN 1 END),
	COUNT(CASE WHEN is_active = 1 AND hostel_id IS NOT NULL THEN 1 END)
FROM students`,
	).Scan(&stats.TotalActive, &stats.TotalInactive, &stats.HostelDwellers)
	if err != nil {
		return students.Statistics{}, fmt.Errorf("student totals: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT course_id, admission_year, gender, COUNT(*)
FROM students WHERE is_active = 1
GROUP BY course_id, admission_year, gender`)
	if err != nil {
		return students.Statistics{}, fmt.Errorf("student breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var courseID int64
		var year int
		var gender students.Gender
		var count int64
		if err := rows.Scan(&courseID, &year, &gender, &count); err != nil {
			return students.Statistics{}, fmt.Errorf("scan breakdown: %w", err)
		}
		stats.ByCourse[courseID] += count
		stats.ByYear[year] += count
		stats.ByGender[gender] += count
	}
	return stats, rows.Err()
}
