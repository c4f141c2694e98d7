package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Anuraj-dev/student-erp/internal/fees"
	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
)

const feeColumns = `id, student_id, fee_type, amount, late_fee, discount,
semester, academic_year, payment_date, method, transaction_id,
reference_number, status, due_date, description, receipt_number,
processed_by, remarks, created_on, updated_on`

// feeUniqueCode maps fee unique index violations to their error codes.
// Receipt numbers and transaction IDs are distinct constraints and get
// distinct codes, so callers can retry one and reject the other.
func feeUniqueCode(err error) (error, bool) {
	switch {
	case violatesUnique(err, "fees.receipt_number"):
		return apperrors.New(apperrors.CodeConflict, "receipt number already assigned"), true
	case isUniqueViolation(err):
		return apperrors.New(apperrors.CodeFeeTransactionIDTaken, "transaction id already recorded"), true
	}
	return nil, false
}

func scanFee(row interface{ Scan(...any) error }) (fees.Fee, error) {
	var f fees.Fee
	var paymentDate, processedBy sql.NullInt64
	var dueDate, createdOn, updatedOn int64
	err := row.Scan(
		&f.ID, &f.StudentID, &f.Type, &f.Amount, &f.LateFee, &f.Discount,
		&f.Semester, &f.AcademicYear, &paymentDate, &f.Method, &f.TransactionID,
		&f.ReferenceNumber, &f.Status, &dueDate, &f.Description,
		&f.ReceiptNumber, &processedBy, &f.Remarks, &createdOn, &updatedOn,
	)
	if err != nil {
		return fees.Fee{}, err
	}
	f.PaymentDate = fromMillisPtr(paymentDate)
	if processedBy.Valid {
		f.ProcessedBy = &processedBy.Int64
	}
	f.DueDate = fromMillis(dueDate)
	f.CreatedOn = fromMillis(createdOn)
	f.UpdatedOn = fromMillis(updatedOn)
	return f, nil
}

// PutFee inserts or updates a fee record and returns the stored record.
func (s *Store) PutFee(ctx context.Context, fee fees.Fee) (fees.Fee, error) {
	if err := ctx.Err(); err != nil {
		return fees.Fee{}, err
	}
	var processedBy any
	if fee.ProcessedBy != nil {
		processedBy = *fee.ProcessedBy
	}

	if fee.ID == 0 {
		result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO fees (student_id, fee_type, amount, late_fee, discount, semester,
	academic_year, payment_date, method, transaction_id, reference_number,
	status, due_date, description, receipt_number, processed_by, remarks,
	created_on, updated_on)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			fee.StudentID, string(fee.Type), fee.Amount, fee.LateFee,
			fee.Discount, fee.Semester, fee.AcademicYear,
			toMillisPtr(fee.PaymentDate), string(fee.Method), fee.TransactionID,
			fee.ReferenceNumber, string(fee.Status), toMillis(fee.DueDate),
			fee.Description, fee.ReceiptNumber, processedBy, fee.Remarks,
			toMillis(fee.CreatedOn), toMillis(fee.UpdatedOn),
		)
		if err != nil {
			if code, ok := feeUniqueCode(err); ok {
				return fees.Fee{}, code
			}
			return fees.Fee{}, fmt.Errorf("insert fee: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fees.Fee{}, fmt.Errorf("fee insert id: %w", err)
		}
		fee.ID = id
		return fee, nil
	}

	_, err := s.sqlDB.ExecContext(ctx, `
UPDATE fees SET late_fee = ?, discount = ?, payment_date = ?, method = ?,
	transaction_id = ?, reference_number = ?, status = ?, receipt_number = ?,
	processed_by = ?, remarks = ?, updated_on = ?
WHERE id = ?`,
		fee.LateFee, fee.Discount, toMillisPtr(fee.PaymentDate),
		string(fee.Method), fee.TransactionID, fee.ReferenceNumber,
		string(fee.Status), fee.ReceiptNumber, processedBy, fee.Remarks,
		toMillis(fee.UpdatedOn), fee.ID,
	)
	if err != nil {
		if code, ok := feeUniqueCode(err); ok {
			return fees.Fee{}, code
		}
		return fees.Fee{}, fmt.Errorf("update fee: %w", err)
	}
	return fee, nil
}

func (s *Store) getFeeBy(ctx context.Context, where string, arg any) (fees.Fee, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+feeColumns+" FROM fees WHERE "+where, arg)
	fee, err := scanFee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return fees.Fee{}, fees.ErrNotFound
	}
	if err != nil {
		return fees.Fee{}, fmt.Errorf("get fee: %w", err)
	}
	return fee, nil
}

// GetFee fetches a fee record by ID.
func (s *Store) GetFee(ctx context.Context, id int64) (fees.Fee, error) {
	return s.getFeeBy(ctx, "id = ?", id)
}

// GetFeeByTransactionID fetches a fee by its payment transaction ID.
func (s *Store) GetFeeByTransactionID(ctx context.Context, transactionID string) (fees.Fee, error) {
	return s.getFeeBy(ctx, "transaction_id = ?", transactionID)
}

// GetFeeByReceiptNumber fetches a fee by its receipt number.
func (s *Store) GetFeeByReceiptNumber(ctx context.Context, receiptNumber string) (fees.Fee, error) {
	return s.getFeeBy(ctx, "receipt_number = ?", receiptNumber)
}

// ListFees returns fee records matching the filter, newest first.
func (s *Store) ListFees(ctx context.Context, filter fees.ListFilter) ([]fees.Fee, error) {
	query := "SELECT " + feeColumns + " FROM fees WHERE 1=1"
	var args []any
	if filter.StudentID != "" {
		query += " AND student_id = ?"
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		query += " AND fee_type = ?"
		args = append(args, string(filter.Type))
	}
	if filter.Semester != 0 {
		query += " AND semester = ?"
		args = append(args, filter.Semester)
	}
	if filter.AcademicYear != "" {
		query += " AND academic_year = ?"
		args = append(args, filter.AcademicYear)
	}
	if !filter.From.IsZero() {
		query += " AND created_on >= ?"
		args = append(args, toMillis(filter.From))
	}
	if !filter.To.IsZero() {
		query += " AND created_on < ?"
		args = append(args, toMillis(filter.To))
	}
	query += " ORDER BY id DESC"

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list fees: %w", err)
	}
	defer rows.Close()

	var out []fees.Fee
	for rows.Next() {
		fee, err := scanFee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fee: %w", err)
		}
		out = append(out, fee)
	}
	return out, rows.Err()
}

// FeeExists reports whether a live demand already exists for the student,
// semester, academic year, and fee type.
func (s *Store) FeeExists(ctx context.Context, studentID string, semester int, academicYear string, feeType fees.Type) (bool, error) {
	var found int
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT 1 FROM fees
WHERE student_id = ? AND semester = ? AND academic_year = ? AND fee_type = ?
	AND status != ?
LIMIT 1`,
		studentID, semester, academicYear, string(feeType), string(fees.StatusCancelled),
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fee exists: %w", err)
	}
	return true, nil
}

// NextReceiptSerial returns the next receipt serial for the month
// containing at.
func (s *Store) NextReceiptSerial(ctx context.Context, at time.Time) (int, error) {
	prefix := "RCP" + at.Format("200601")
	var count int
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM fees WHERE receipt_number LIKE ?", prefix+"%",
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("next receipt serial: %w", err)
	}
	return count + 1, nil
}

// ListOverdueFees returns pending fees whose due date has passed.
func (s *Store) ListOverdueFees(ctx context.Context, now time.Time) ([]fees.Fee, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+feeColumns+" FROM fees WHERE status IN (?, ?) AND due_date < ? ORDER BY due_date",
		string(fees.StatusPending), string(fees.StatusOverdue), toMillis(now),
	)
	if err != nil {
		return nil, fmt.Errorf("list overdue fees: %w", err)
	}
	defer rows.Close()

	var out []fees.Fee
	for rows.Next() {
		fee, err := scanFee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan overdue fee: %w", err)
		}
		out = append(out, fee)
	}
	return out, rows.Err()
}

// GetFeeStatistics aggregates fee collection numbers for reporting.
func (s *Store) GetFeeStatistics(ctx context.Context, now time.Time) (fees.Statistics, error) {
	stats := fees.Statistics{CountByStatus: make(map[fees.Status]int64)}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM fees GROUP BY status")
	if err != nil {
		return fees.Statistics{}, fmt.Errorf("fee status counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status fees.Status
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return fees.Statistics{}, fmt.Errorf("scan status count: %w", err)
		}
		stats.CountByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return fees.Statistics{}, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	err = s.sqlDB.QueryRowContext(ctx, `
SELECT
	COALESCE(SUM(CASE WHEN status = ?1 THEN amount + late_fee - discount END), 0),
	COALESCE(SUM(CASE WHEN status IN (?2, ?3) THEN amount + late_fee - discount END), 0),
	COALESCE(SUM(CASE WHEN status = ?1 AND payment_date >= ?4 THEN amount + late_fee - discount END), 0)
FROM fees`,
		string(fees.StatusPaid), string(fees.StatusPending),
		string(fees.StatusOverdue), toMillis(monthStart),
	).Scan(&stats.TotalCollected, &stats.TotalPending, &stats.CurrentMonthCollection)
	if err != nil {
		return fees.Statistics{}, fmt.Errorf("fee totals: %w", err)
	}
	return stats, nil
}
