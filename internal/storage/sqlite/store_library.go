package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Anuraj-dev/student-erp/internal/library"
)

const bookColumns = `book_id, title, author, isbn, publisher, publication_year,
category, total_copies, available_copies, shelf_location, condition,
is_active, added_on, updated_on`

const issueColumns = `id, book_id, student_id, issue_date, due_date,
return_date, late_fee, damage_fee, remarks, renewed_count`

func scanBook(row interface{ Scan(...any) error }) (library.Book, error) {
	var b library.Book
	var addedOn, updatedOn int64
	err := row.Scan(
		&b.BookID, &b.Title, &b.Author, &b.ISBN, &b.Publisher,
		&b.PublicationYear, &b.Category, &b.TotalCopies, &b.AvailableCopies,
		&b.ShelfLocation, &b.Condition, &b.IsActive, &addedOn, &updatedOn,
	)
	if err != nil {
		return library.Book{}, err
	}
	b.AddedOn = fromMillis(addedOn)
	b.UpdatedOn = fromMillis(updatedOn)
	return b, nil
}

func scanIssue(row interface{ Scan(...any) error }) (library.Issue, error) {
	var i library.Issue
	var issueDate, dueDate int64
	var returnDate sql.NullInt64
	err := row.Scan(
		&i.ID, &i.BookID, &i.StudentID, &issueDate, &dueDate, &returnDate,
		&i.LateFee, &i.DamageFee, &i.Remarks, &i.RenewedCount,
	)
	if err != nil {
		return library.Issue{}, err
	}
	i.IssueDate = fromMillis(issueDate)
	i.DueDate = fromMillis(dueDate)
	i.ReturnDate = fromMillisPtr(returnDate)
	return i, nil
}

// PutBook inserts or replaces a catalog entry keyed by book ID.
func (s *Store) PutBook(ctx context.Context, book library.Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO books (book_id, title, author, isbn, publisher, publication_year,
	category, total_copies, available_copies, shelf_location, condition,
	is_active, added_on, updated_on)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(book_id) DO UPDATE SET
	title = excluded.title, author = excluded.author, isbn = excluded.isbn,
	publisher = excluded.publisher, publication_year = excluded.publication_year,
	category = excluded.category, total_copies = excluded.total_copies,
	available_copies = excluded.available_copies,
	shelf_location = excluded.shelf_location, condition = excluded.condition,
	is_active = excluded.is_active, updated_on = excluded.updated_on`,
		book.BookID, book.Title, book.Author, book.ISBN, book.Publisher,
		book.PublicationYear, book.Category, book.TotalCopies,
		book.AvailableCopies, book.ShelfLocation, book.Condition,
		book.IsActive, toMillis(book.AddedOn), toMillis(book.UpdatedOn),
	)
	if err != nil {
		return fmt.Errorf("put book: %w", err)
	}
	return nil
}

// GetBook fetches a catalog entry by book ID.
func (s *Store) GetBook(ctx context.Context, bookID string) (library.Book, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+bookColumns+" FROM books WHERE book_id = ?", bookID)
	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return library.Book{}, library.ErrNotFound
	}
	if err != nil {
		return library.Book{}, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// SearchBooks returns active catalog entries matching the filter.
func (s *Store) SearchBooks(ctx context.Context, filter library.SearchFilter) ([]library.Book, error) {
	query := "SELECT " + bookColumns + " FROM books WHERE is_active = 1"
	var args []any
	if filter.Query != "" {
		query += " AND (title LIKE ? OR author LIKE ? OR isbn LIKE ?)"
		like := "%" + filter.Query + "%"
		args = append(args, like, like, like)
	}
	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
	}
	if filter.AvailableOnly {
		query += " AND available_copies > 0"
	}
	query += " ORDER BY book_id"

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	defer rows.Close()

	var out []library.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		out = append(out, book)
	}
	return out, rows.Err()
}

// ListCategories returns distinct non-empty catalog categories.
func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT DISTINCT category FROM books WHERE category != '' ORDER BY category")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, category)
	}
	return out, rows.Err()
}

// NextBookSerial returns the next catalog serial.
func (s *Store) NextBookSerial(ctx context.Context) (int, error) {
	var count int
	err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM books").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("next book serial: %w", err)
	}
	return count + 1, nil
}

// PutIssue inserts or updates a loan record and returns the stored record.
func (s *Store) PutIssue(ctx context.Context, issue library.Issue) (library.Issue, error) {
	if err := ctx.Err(); err != nil {
		return library.Issue{}, err
	}
	if issue.ID == 0 {
		result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO book_issues (book_id, student_id, issue_date, due_date,
	return_date, late_fee, damage_fee, remarks, renewed_count)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			issue.BookID, issue.StudentID, toMillis(issue.IssueDate),
			toMillis(issue.DueDate), toMillisPtr(issue.ReturnDate),
			issue.LateFee, issue.DamageFee, issue.Remarks, issue.RenewedCount,
		)
		if err != nil {
			return library.Issue{}, fmt.Errorf("insert issue: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return library.Issue{}, fmt.Errorf("issue insert id: %w", err)
		}
		issue.ID = id
		return issue, nil
	}

	_, err := s.sqlDB.ExecContext(ctx, `
UPDATE book_issues SET due_date = ?, return_date = ?, late_fee = ?,
	damage_fee = ?, remarks = ?, renewed_count = ?
WHERE id = ?`,
		toMillis(issue.DueDate), toMillisPtr(issue.ReturnDate), issue.LateFee,
		issue.DamageFee, issue.Remarks, issue.RenewedCount, issue.ID,
	)
	if err != nil {
		return library.Issue{}, fmt.Errorf("update issue: %w", err)
	}
	return issue, nil
}

// GetIssue fetches a loan record by ID.
func (s *Store) GetIssue(ctx context.Context, id int64) (library.Issue, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+issueColumns+" FROM book_issues WHERE id = ?", id)
	issue, err := scanIssue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return library.Issue{}, library.ErrNotFound
	}
	if err != nil {
		return library.Issue{}, fmt.Errorf("get issue: %w", err)
	}
	return issue, nil
}

// GetOpenIssue finds the unreturned loan of a book to a student.
func (s *Store) GetOpenIssue(ctx context.Context, bookID, studentID string) (library.Issue, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+issueColumns+" FROM book_issues WHERE book_id = ? AND student_id = ? AND return_date IS NULL",
		bookID, studentID)
	issue, err := scanIssue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return library.Issue{}, library.ErrNotFound
	}
	if err != nil {
		return library.Issue{}, fmt.Errorf("get open issue: %w", err)
	}
	return issue, nil
}

// ListStudentIssues returns a student's loans, newest first.
func (s *Store) ListStudentIssues(ctx context.Context, studentID string, activeOnly bool) ([]library.Issue, error) {
	query := "SELECT " + issueColumns + " FROM book_issues WHERE student_id = ?"
	if activeOnly {
		query += " AND return_date IS NULL"
	}
	query += " ORDER BY id DESC"

	rows, err := s.sqlDB.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("list student issues: %w", err)
	}
	defer rows.Close()

	var out []library.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		out = append(out, issue)
	}
	return out, rows.Err()
}

// CountOpenIssues counts a student's unreturned loans.
func (s *Store) CountOpenIssues(ctx context.Context, studentID string) (int, error) {
	var count int
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM book_issues WHERE student_id = ? AND return_date IS NULL",
		studentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open issues: %w", err)
	}
	return count, nil
}

// ListOverdueIssues returns open loans past their due date.
func (s *Store) ListOverdueIssues(ctx context.Context, now time.Time) ([]library.Issue, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+issueColumns+" FROM book_issues WHERE return_date IS NULL AND due_date < ? ORDER BY due_date",
		toMillis(now),
	)
	if err != nil {
		return nil, fmt.Errorf("list overdue issues: %w", err)
	}
	defer rows.Close()

	var out []library.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan overdue issue: %w", err)
		}
		out = append(out, issue)
	}
	return out, rows.Err()
}

// GetLibraryStatistics aggregates catalog and circulation numbers.
func (s *Store) GetLibraryStatistics(ctx context.Context, now time.Time) (library.Statistics, error) {
	var stats library.Statistics

	err := s.sqlDB.QueryRowContext(ctx, `
SELECT COALESCE(SUM(total_copies), 0), COALESCE(SUM(available_copies), 0)
FROM books WHERE is_active = 1`,
	).Scan(&stats.TotalBooks, &stats.AvailableBooks)
	if err != nil {
		return library.Statistics{}, fmt.Errorf("book totals: %w", err)
	}

	monthStart := toMillis(time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC))
	err = s.sqlDB.QueryRowContext(ctx, `
SELECT
	COUNT(*),
	COUNT(CASE WHEN return_date IS NULL THEN 1 END),
	COUNT(CASE WHEN return_date IS NULL AND due_date < ?1 THEN 1 END),
	COUNT(CASE WHEN issue_date >= ?2 THEN 1 END),
	COUNT(CASE WHEN return_date >= ?2 THEN 1 END)
FROM book_issues`,
		toMillis(now), monthStart,
	).Scan(&stats.TotalIssues, &stats.ActiveIssues, &stats.OverdueIssues,
		&stats.MonthlyIssues, &stats.MonthlyReturns)
	if err != nil {
		return library.Statistics{}, fmt.Errorf("issue totals: %w", err)
	}
	return stats, nil
}
