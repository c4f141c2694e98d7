package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/Anuraj-dev/student-erp/internal/mailer"
)

const outboxColumns = `id, recipient, subject, body, dedupe_key, status,
attempt_count, next_attempt_at, last_error, created_at, updated_at`

func scanMessage(row interface{ Scan(...any) error }) (mailer.Message, error) {
	var m mailer.Message
	var nextAttemptAt, createdAt, updatedAt int64
	err := row.Scan(
		&m.ID, &m.Recipient, &m.Subject, &m.Body, &m.DedupeKey, &m.Status,
		&m.AttemptCount, &nextAttemptAt, &m.LastError, &createdAt, &updatedAt,
	)
	if err != nil {
		return mailer.Message{}, err
	}
	m.NextAttemptAt = fromMillis(nextAttemptAt)
	m.CreatedAt = fromMillis(createdAt)
	m.UpdatedAt = fromMillis(updatedAt)
	return m, nil
}

// EnqueueMessage inserts a pending message. Messages with a dedupe key
// already present are silently dropped.
func (s *Store) EnqueueMessage(ctx context.Context, message mailer.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO mail_outbox (id, recipient, subject, body, dedupe_key, status,
	attempt_count, next_attempt_at, last_error, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		message.ID, message.Recipient, message.Subject, message.Body,
		message.DedupeKey, string(message.Status), message.AttemptCount,
		toMillis(message.NextAttemptAt), message.LastError,
		toMillis(message.CreatedAt), toMillis(message.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("enqueue message: %w", err)
	}
	return nil
}

// ClaimDueMessages returns up to limit pending messages whose next
// attempt time has passed, oldest first.
func (s *Store) ClaimDueMessages(ctx context.Context, now time.Time, limit int) ([]mailer.Message, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+outboxColumns+` FROM mail_outbox
WHERE status = ? AND next_attempt_at <= ?
ORDER BY next_attempt_at LIMIT ?`,
		string(mailer.StatusPending), toMillis(now), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim due messages: %w", err)
	}
	defer rows.Close()

	var out []mailer.Message
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, message)
	}
	return out, rows.Err()
}

// MarkMessageSent finalizes a delivered message.
func (s *Store) MarkMessageSent(ctx context.Context, messageID string, at time.Time) error {
	_, err := s.sqlDB.ExecContext(ctx,
		"UPDATE mail_outbox SET status = ?, updated_at = ? WHERE id = ?",
		string(mailer.StatusSent), toMillis(at), messageID,
	)
	if err != nil {
		return fmt.Errorf("mark message sent: %w", err)
	}
	return nil
}

// MarkMessageFailed records a delivery failure, keeping the message
// pending until the attempt budget is spent.
func (s *Store) MarkMessageFailed(ctx context.Context, messageID string, attemptCount int, nextAttemptAt time.Time, lastError string) error {
	status := mailer.StatusPending
	if attemptCount >= mailer.MaxAttempts {
		status = mailer.StatusFailed
	}
	_, err := s.sqlDB.ExecContext(ctx, `
UPDATE mail_outbox SET status = ?, attempt_count = ?, next_attempt_at = ?,
	last_error = ?, updated_at = ?
WHERE id = ?`,
		string(status), attemptCount, toMillis(nextAttemptAt), lastError,
		toMillis(time.Now()), messageID,
	)
	if err != nil {
		return fmt.Errorf("mark message failed: %w", err)
	}
	return nil
}

// OutboxStatistics reports per-status message counts.
func (s *Store) OutboxStatistics(ctx context.Context) (mailer.Statistics, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM mail_outbox GROUP BY status")
	if err != nil {
		return mailer.Statistics{}, fmt.Errorf("outbox statistics: %w", err)
	}
	defer rows.Close()

	var stats mailer.Statistics
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return mailer.Statistics{}, fmt.Errorf("scan outbox statistics: %w", err)
		}
		switch mailer.Status(status) {
		case mailer.StatusPending:
			stats.Pending = count
		case mailer.StatusSent:
			stats.Sent = count
		case mailer.StatusFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}
