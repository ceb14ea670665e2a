package history

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Source records whether a decision came from a fresh artifact or a queue replay.
type Source string

const (
	SourceFresh Source = "fresh"
	SourceQueue Source = "queue"
)

// Entry is one journaled delivery decision.
type Entry struct {
	ID             int64     `json:"id"`
	RecordedAt     time.Time `json:"recorded_at"`
	BatchID        string    `json:"batch_id,omitempty"`
	Source         Source    `json:"source"`
	FileName       string    `json:"file_name"`
	Series         string    `json:"series,omitempty"`
	Kind           string    `json:"kind,omitempty"`
	Outcome        string    `json:"outcome"`
	Reason         string    `json:"reason,omitempty"`
	SizeBytes      int64     `json:"size_bytes"`
	AvailableBytes int64     `json:"available_bytes"`
	MountPath      string    `json:"mount_path,omitempty"`
}

// ListOptions filters List results. Zero values select everything.
type ListOptions struct {
	FileName string
	Outcome  string
	Limit    int
}

// Record appends entry and returns its row ID. A zero RecordedAt is stamped
// with the current time.
func (s *Store) Record(ctx context.Context, entry Entry) (int64, error) {
	if strings.TrimSpace(entry.FileName) == "" {
		return 0, fmt.Errorf("history entry requires a file name")
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}
	var id int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `INSERT INTO deliveries
			(recorded_at, batch_id, source, file_name, series, kind, outcome, reason, size_bytes, available_bytes, mount_path)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.RecordedAt.UTC().Format(time.RFC3339Nano),
			entry.BatchID,
			string(entry.Source),
			entry.FileName,
			entry.Series,
			entry.Kind,
			entry.Outcome,
			entry.Reason,
			entry.SizeBytes,
			entry.AvailableBytes,
			entry.MountPath,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("record delivery: %w", err)
	}
	return id, nil
}

// List returns entries newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	query := `SELECT id, recorded_at, batch_id, source, file_name, series, kind, outcome, reason,
		size_bytes, available_bytes, mount_path FROM deliveries`
	var (
		clauses []string
		args    []any
	)
	if name := strings.TrimSpace(opts.FileName); name != "" {
		clauses = append(clauses, "file_name = ?")
		args = append(args, name)
	}
	if outcome := strings.TrimSpace(opts.Outcome); outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, outcome)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry    Entry
			recorded string
			source   string
		)
		if err := rows.Scan(&entry.ID, &recorded, &entry.BatchID, &source, &entry.FileName, &entry.Series,
			&entry.Kind, &entry.Outcome, &entry.Reason, &entry.SizeBytes, &entry.AvailableBytes, &entry.MountPath); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		entry.Source = Source(source)
		if ts, err := time.Parse(time.RFC3339Nano, recorded); err == nil {
			entry.RecordedAt = ts
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return entries, nil
}

// Prune deletes entries recorded before cutoff and returns the count removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM deliveries WHERE recorded_at < ?", cutoff.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune deliveries: %w", err)
	}
	return removed, nil
}
