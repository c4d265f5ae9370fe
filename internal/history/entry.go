package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/druidq/internal/query"
	"github.com/roach88/druidq/internal/wire"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("history entry not found")

// Outcome is the result of one execution.
type Outcome string

const (
	OutcomeOK    Outcome = "ok"
	OutcomeError Outcome = "error"
)

// Entry is one recorded request.
type Entry struct {
	ID          string
	Seq         int64
	Fingerprint string
	Shape       query.Shape
	DataSource  string
	// Request is the canonical JSON request, without the queryId the
	// broker client adds.
	Request    string
	Outcome    Outcome
	Error      string
	Duration   time.Duration
	RecordedAt time.Time
}

// NewEntry describes q. Outcome and timing are filled in by the caller.
func NewEntry(q query.Query) (Entry, error) {
	req := q.Wire()
	canonical, err := wire.MarshalCanonical(req)
	if err != nil {
		return Entry{}, fmt.Errorf("new entry: %w", err)
	}
	fingerprint, err := wire.Fingerprint(req)
	if err != nil {
		return Entry{}, fmt.Errorf("new entry: %w", err)
	}
	return Entry{
		Fingerprint: fingerprint,
		Shape:       q.Shape(),
		DataSource:  q.DataSource().String(),
		Request:     string(canonical),
	}, nil
}

// Finish sets the outcome from err and the duration.
func (e Entry) Finish(err error, d time.Duration) Entry {
	e.Outcome = OutcomeOK
	e.Error = ""
	if err != nil {
		e.Outcome = OutcomeError
		e.Error = err.Error()
	}
	e.Duration = d
	return e
}

// Record appends e and returns it with ID (when empty) and Seq assigned.
// Seq is one more than the largest recorded seq.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.Outcome != OutcomeOK && e.Outcome != OutcomeError {
		return Entry{}, fmt.Errorf("record: invalid outcome %q", e.Outcome)
	}
	if e.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Entry{}, fmt.Errorf("record: %w", err)
		}
		e.ID = id.String()
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("record: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM requests`).Scan(&e.Seq); err != nil {
		return Entry{}, fmt.Errorf("record: next seq: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO requests
		(id, seq, fingerprint, shape, datasource, request, outcome, error, duration_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.Seq,
		e.Fingerprint,
		string(e.Shape),
		e.DataSource,
		e.Request,
		string(e.Outcome),
		e.Error,
		e.Duration.Milliseconds(),
		e.RecordedAt.UnixMilli(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("record: commit: %w", err)
	}
	e.Duration = time.Duration(e.Duration.Milliseconds()) * time.Millisecond
	e.RecordedAt = time.UnixMilli(e.RecordedAt.UnixMilli())
	return e, nil
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Shape       query.Shape
	Fingerprint string
	Outcome     Outcome
	// Limit caps the number of entries; <= 0 means no cap.
	Limit int
}

const selectColumns = `SELECT id, seq, fingerprint, shape, datasource, request, outcome, error, duration_ms, recorded_at FROM requests`

// List returns matching entries, newest first (seq DESC). It returns an
// empty slice, never nil.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.Shape != "" {
		where = append(where, "shape = ?")
		args = append(args, string(f.Shape))
	}
	if f.Fingerprint != "" {
		where = append(where, "fingerprint = ?")
		args = append(args, f.Fingerprint)
	}
	if f.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, string(f.Outcome))
	}

	stmt := selectColumns
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY seq DESC"
	if f.Limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return entries, nil
}

// Get returns the entry with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e          Entry
		shape      string
		outcome    string
		durationMS int64
		recordedAt int64
	)
	err := row.Scan(&e.ID, &e.Seq, &e.Fingerprint, &shape, &e.DataSource, &e.Request, &outcome, &e.Error, &durationMS, &recordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, err
	}
	if err != nil {
		return Entry{}, fmt.Errorf("scan request: %w", err)
	}
	e.Shape = query.Shape(shape)
	e.Outcome = Outcome(outcome)
	e.Duration = time.Duration(durationMS) * time.Millisecond
	e.RecordedAt = time.UnixMilli(recordedAt)
	return e, nil
}
