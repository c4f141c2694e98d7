package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Anuraj-dev/student-erp/internal/courses"
	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
)

const courseColumns = `id, program_level, degree_name, course_name, course_code,
duration_years, description, fees_per_semester, total_seats, is_active,
created_on, updated_on`

func scanCourse(row interface{ Scan(...any) error }) (courses.Course, error) {
	var c courses.Course
	var createdOn, updatedOn int64
	err := row.Scan(
		&c.ID, &c.ProgramLevel, &c.DegreeName, &c.CourseName, &c.CourseCode,
		&c.DurationYears, &c.Description, &c.FeesPerSemester, &c.TotalSeats,
		&c.IsActive, &createdOn, &updatedOn,
	)
	if err != nil {
		return courses.Course{}, err
	}
	c.CreatedOn = fromMillis(createdOn)
	c.UpdatedOn = fromMillis(updatedOn)
	return c, nil
}

// PutCourse inserts or updates a course and returns the stored record.
func (s *Store) PutCourse(ctx context.Context, course courses.Course) (courses.Course, error) {
	if err := ctx.Err(); err != nil {
		return courses.Course{}, err
	}
	if course.ID == 0 {
		result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO courses (program_level, degree_name, course_name, course_code,
	duration_years, description, fees_per_semester, total_seats, is_active,
	created_on, updated_on)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			course.ProgramLevel, course.DegreeName, course.CourseName, course.CourseCode,
			course.DurationYears, course.Description, course.FeesPerSemester,
			course.TotalSeats, course.IsActive,
			toMillis(course.CreatedOn), toMillis(course.UpdatedOn),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return courses.Course{}, apperrors.New(apperrors.CodeCourseCodeTaken, "course code already in use")
			}
			return courses.Course{}, fmt.Errorf("insert course: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return courses.Course{}, fmt.Errorf("course insert id: %w", err)
		}
		course.ID = id
		return course, nil
	}

	_, err := s.sqlDB.ExecContext(ctx, `
UPDATE courses SET program_level = ?, degree_name = ?, course_name = ?,
	course_code = ?, duration_years = ?, description = ?, fees_per_semester = ?,
	total_seats = ?, is_active = ?, updated_on = ?
WHERE id = ?`,
		course.ProgramLevel, course.DegreeName, course.CourseName, course.CourseCode,
		course.DurationYears, course.Description, course.FeesPerSemester,
		course.TotalSeats, course.IsActive, toMillis(course.UpdatedOn), course.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return courses.Course{}, apperrors.New(apperrors.CodeCourseCodeTaken, "course code already in use")
		}
		return courses.Course{}, fmt.Errorf("update course: %w", err)
	}
	return course, nil
}

// GetCourse fetches a course by ID.
func (s *Store) GetCourse(ctx context.Context, id int64) (courses.Course, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+courseColumns+" FROM courses WHERE id = ?", id)
	course, err := scanCourse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return courses.Course{}, courses.ErrNotFound
	}
	if err != nil {
		return courses.Course{}, fmt.Errorf("get course: %w", err)
	}
	return course, nil
}

// GetCourseByCode fetches a course by its short code.
func (s *Store) GetCourseByCode(ctx context.Context, code string) (courses.Course, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+courseColumns+" FROM courses WHERE course_code = ?", code)
	course, err := scanCourse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return courses.Course{}, courses.ErrNotFound
	}
	if err != nil {
		return courses.Course{}, fmt.Errorf("get course by code: %w", err)
	}
	return course, nil
}

// ListCourses returns courses ordered by code.
func (s *Store) ListCourses(ctx context.Context, activeOnly bool) ([]courses.Course, error) {
	query := "SELECT " + courseColumns + " FROM courses"
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY course_code"

	rows, err := s.sqlDB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	var out []courses.Course
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		out = append(out, course)
	}
	return out, rows.Err()
}

// CountEnrollment counts active students enrolled in a course.
func (s *Store) CountEnrollment(ctx context.Context, courseID int64) (int, error) {
	var count int
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM students WHERE course_id = ? AND is_active = 1", courseID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count enrollment: %w", err)
	}
	return count, nil
}
