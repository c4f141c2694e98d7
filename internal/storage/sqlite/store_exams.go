package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Anuraj-dev/student-erp/internal/exams"
	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
)

const resultColumns = `id, student_id, semester, exam_type, subject_code,
subject_name, max_marks, marks_obtained, internal_marks, external_marks,
grade, is_absent, is_malpractice, declared, declared_by, declared_on,
remarks, created_on, updated_on`

func scanResult(row interface{ Scan(...any) error }) (exams.Result, error) {
	var r exams.Result
	var marks sql.NullInt64
	var declaredOn sql.NullInt64
	var createdOn, updatedOn int64
	err := row.Scan(
		&r.ID, &r.StudentID, &r.Semester, &r.ExamType, &r.SubjectCode,
		&r.SubjectName, &r.MaxMarks, &marks, &r.InternalMarks,
		&r.ExternalMarks, &r.Grade, &r.IsAbsent, &r.IsMalpractice,
		&r.Declared, &r.DeclaredBy, &declaredOn, &r.Remarks,
		&createdOn, &updatedOn,
	)
	if err != nil {
		return exams.Result{}, err
	}
	if marks.Valid {
		value := int(marks.Int64)
		r.MarksObtained = &value
	}
	r.DeclaredOn = fromMillisPtr(declaredOn)
	r.CreatedOn = fromMillis(createdOn)
	r.UpdatedOn = fromMillis(updatedOn)
	return r, nil
}

// PutResult inserts or updates an exam result and returns the stored
// record.
func (s *Store) PutResult(ctx context.Context, result exams.Result) (exams.Result, error) {
	if err := ctx.Err(); err != nil {
		return exams.Result{}, err
	}
	var marks any
	if result.MarksObtained != nil {
		marks = *result.MarksObtained
	}

	if result.ID == 0 {
		row, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO exam_results (student_id, semester, exam_type, subject_code,
	subject_name, max_marks, marks_obtained, internal_marks, external_marks,
	grade, is_absent, is_malpractice, declared, declared_by, declared_on,
	remarks, created_on, updated_on)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.StudentID, result.Semester, string(result.ExamType),
			result.SubjectCode, result.SubjectName, result.MaxMarks, marks,
			result.InternalMarks, result.ExternalMarks,
			string(result.Grade), result.IsAbsent, result.IsMalpractice,
			result.Declared, result.DeclaredBy, toMillisPtr(result.DeclaredOn),
			result.Remarks, toMillis(result.CreatedOn), toMillis(result.UpdatedOn),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return exams.Result{}, apperrors.New(apperrors.CodeConflict, "result already exists for subject and exam")
			}
			return exams.Result{}, fmt.Errorf("insert result: %w", err)
		}
		id, err := row.LastInsertId()
		if err != nil {
			return exams.Result{}, fmt.Errorf("result insert id: %w", err)
		}
		result.ID = id
		return result, nil
	}

	_, err := s.sqlDB.ExecContext(ctx, `
UPDATE exam_results SET marks_obtained = ?, internal_marks = ?,
	external_marks = ?, grade = ?, is_absent = ?, is_malpractice = ?,
	declared = ?, declared_by = ?, declared_on = ?, remarks = ?,
	updated_on = ?
WHERE id = ?`,
		marks, result.InternalMarks, result.ExternalMarks,
		string(result.Grade), result.IsAbsent, result.IsMalpractice,
		result.Declared, result.DeclaredBy, toMillisPtr(result.DeclaredOn),
		result.Remarks, toMillis(result.UpdatedOn), result.ID,
	)
	if err != nil {
		return exams.Result{}, fmt.Errorf("update result: %w", err)
	}
	return result, nil
}

// GetResult fetches an exam result by ID.
func (s *Store) GetResult(ctx context.Context, id int64) (exams.Result, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+resultColumns+" FROM exam_results WHERE id = ?", id)
	result, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return exams.Result{}, exams.ErrNotFound
	}
	if err != nil {
		return exams.Result{}, fmt.Errorf("get result: %w", err)
	}
	return result, nil
}

// GetStudentResult returns the result for one student, subject, semester
// and exam type.
func (s *Store) GetStudentResult(ctx context.Context, studentID, subjectCode string, semester int, examType exams.Type) (exams.Result, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+resultColumns+` FROM exam_results
WHERE student_id = ? AND subject_code = ? AND semester = ? AND exam_type = ?`,
		studentID, subjectCode, semester, string(examType))
	result, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return exams.Result{}, exams.ErrNotFound
	}
	if err != nil {
		return exams.Result{}, fmt.Errorf("get student result: %w", err)
	}
	return result, nil
}

// ListResults returns exam results matching the filter ordered by
// student, semester, then subject.
func (s *Store) ListResults(ctx context.Context, filter exams.ListFilter) ([]exams.Result, error) {
	query := "SELECT " + resultColumns + " FROM exam_results WHERE 1=1"
	var args []any
	if filter.StudentID != "" {
		query += " AND student_id = ?"
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != 0 {
		query += " AND student_id IN (SELECT roll_no FROM students WHERE course_id = ?)"
		args = append(args, filter.CourseID)
	}
	if filter.Semester != 0 {
		query += " AND semester = ?"
		args = append(args, filter.Semester)
	}
	if filter.ExamType != "" {
		query += " AND exam_type = ?"
		args = append(args, string(filter.ExamType))
	}
	if filter.SubjectCode != "" {
		query += " AND subject_code = ?"
		args = append(args, filter.SubjectCode)
	}
	if filter.Declared != nil {
		query += " AND declared = ?"
		args = append(args, *filter.Declared)
	}
	query += " ORDER BY student_id, semester, subject_code"

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []exams.Result
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, result)
	}
	return out, rows.Err()
}

// ListStudentResults returns all results for a student ordered by
// semester then subject.
func (s *Store) ListStudentResults(ctx context.Context, studentID string) ([]exams.Result, error) {
	return s.ListResults(ctx, exams.ListFilter{StudentID: studentID})
}
