package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Journal is the bridge's durable local record: every captured message
// submitted to OWS and every outbound notice posted into a group. The
// notice table is what keeps a restarted process from double-posting;
// the capture table exists for audit and the status endpoint.
type Journal struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS captures (
	message_id   TEXT PRIMARY KEY,
	group_name   TEXT NOT NULL,
	sender       TEXT NOT NULL,
	submitted_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS posted_notices (
	notice_id  TEXT PRIMARY KEY,
	group_name TEXT NOT NULL,
	posted_at  TIMESTAMP NOT NULL
);
`

// Open opens (and if needed initializes) the journal database.
func Open(dsn string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordCapture records that a message was submitted to OWS. Recording
// the same message twice is not an error.
func (j *Journal) RecordCapture(ctx context.Context, messageID, group, sender string) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO captures (message_id, group_name, sender, submitted_at) VALUES (?, ?, ?, ?)`,
		messageID, group, sender, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record capture: %w", err)
	}
	return nil
}

// CaptureCount returns the total number of recorded captures.
func (j *Journal) CaptureCount(ctx context.Context) (int64, error) {
	var count int64
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM captures`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count captures: %w", err)
	}
	return count, nil
}

// NoticePosted reports whether an outbound notice id has already been
// posted into a group.
func (j *Journal) NoticePosted(ctx context.Context, noticeID string) (bool, error) {
	var one int
	err := j.db.QueryRowContext(ctx,
		`SELECT 1 FROM posted_notices WHERE notice_id = ?`, noticeID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up notice: %w", err)
	}
	return true, nil
}

// MarkNoticePosted records that an outbound notice was posted.
func (j *Journal) MarkNoticePosted(ctx context.Context, noticeID, group string) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO posted_notices (notice_id, group_name, posted_at) VALUES (?, ?, ?)`,
		noticeID, group, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark notice posted: %w", err)
	}
	return nil
}
