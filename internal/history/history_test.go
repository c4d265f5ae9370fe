package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/druidq/internal/datasource"
	"github.com/roach88/druidq/internal/query"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func buildQuery(t *testing.T, table string, aggregate bool) query.Query {
	t.Helper()
	b := query.New(datasource.Table{Name: table})
	require.NoError(t, b.Interval("2024-01-01", "2024-01-02"))
	b.Select("page", "")
	if aggregate {
		b.Count("rows")
	}
	q, err := b.Build()
	require.NoError(t, err)
	return q
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "open %d", i)
		require.NoError(t, s.Close())
	}
	_, err := os.Stat(path)
	require.NoError(t, err)

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/history.db")
	assert.Error(t, err)
}

func TestClose_NilDB(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())
}

func TestNewEntry(t *testing.T) {
	q := buildQuery(t, "wikipedia", false)
	e, err := NewEntry(q)
	require.NoError(t, err)

	assert.Equal(t, query.ShapeScan, e.Shape)
	assert.Equal(t, "wikipedia", e.DataSource)
	assert.Len(t, e.Fingerprint, 64)
	assert.Contains(t, e.Request, `"queryType":"scan"`)

	again, err := NewEntry(buildQuery(t, "wikipedia", false))
	require.NoError(t, err)
	assert.Equal(t, e.Fingerprint, again.Fingerprint)
	assert.Equal(t, e.Request, again.Request)
}

func TestFinish(t *testing.T) {
	var e Entry
	ok := e.Finish(nil, 1500*time.Millisecond)
	assert.Equal(t, OutcomeOK, ok.Outcome)
	assert.Empty(t, ok.Error)
	assert.Equal(t, 1500*time.Millisecond, ok.Duration)

	failed := ok.Finish(errors.New("boom"), time.Second)
	assert.Equal(t, OutcomeError, failed.Outcome)
	assert.Equal(t, "boom", failed.Error)
}

func TestRecord_AssignsSequence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		e, err := NewEntry(buildQuery(t, "wikipedia", false))
		require.NoError(t, err)
		got, err := s.Record(ctx, e.Finish(nil, time.Duration(i)*time.Millisecond))
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), got.Seq)
		assert.NotEmpty(t, got.ID)
		ids = append(ids, got.ID)
	}
	assert.NotEqual(t, ids[0], ids[1])
}

func TestRecord_RejectsMissingOutcome(t *testing.T) {
	s := openTestStore(t)
	e, err := NewEntry(buildQuery(t, "wikipedia", false))
	require.NoError(t, err)

	_, err = s.Record(context.Background(), e)
	assert.ErrorContains(t, err, "invalid outcome")
}

func TestRecord_DuplicateID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	e, err := NewEntry(buildQuery(t, "wikipedia", false))
	require.NoError(t, err)
	e = e.Finish(nil, 0)
	e.ID = "fixed"

	_, err = s.Record(ctx, e)
	require.NoError(t, err)
	_, err = s.Record(ctx, e)
	assert.Error(t, err)
}

func TestGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	e, err := NewEntry(buildQuery(t, "wikipedia", true))
	require.NoError(t, err)
	recorded, err := s.Record(ctx, e.Finish(errors.New("druid: status 500: boom"), 250*time.Millisecond))
	require.NoError(t, err)

	got, err := s.Get(ctx, recorded.ID)
	require.NoError(t, err)
	assert.Equal(t, recorded.ID, got.ID)
	assert.Equal(t, recorded.Seq, got.Seq)
	assert.Equal(t, query.ShapeGroupBy, got.Shape)
	assert.Equal(t, OutcomeError, got.Outcome)
	assert.Equal(t, "druid: status 500: boom", got.Error)
	assert.Equal(t, 250*time.Millisecond, got.Duration)
	assert.Equal(t, recorded.Request, got.Request)
	assert.True(t, recorded.RecordedAt.Equal(got.RecordedAt))

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	record := func(table string, aggregate bool, err error) Entry {
		e, nerr := NewEntry(buildQuery(t, table, aggregate))
		require.NoError(t, nerr)
		got, rerr := s.Record(ctx, e.Finish(err, 0))
		require.NoError(t, rerr)
		return got
	}
	first := record("wikipedia", false, nil)
	record("wikipedia", true, errors.New("boom"))
	third := record("edits", false, nil)

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{all[0].Seq, all[1].Seq, all[2].Seq})

	scans, err := s.List(ctx, Filter{Shape: query.ShapeScan})
	require.NoError(t, err)
	require.Len(t, scans, 2)
	assert.Equal(t, third.ID, scans[0].ID)

	failed, err := s.List(ctx, Filter{Outcome: OutcomeError})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, query.ShapeGroupBy, failed[0].Shape)

	same, err := s.List(ctx, Filter{Fingerprint: first.Fingerprint})
	require.NoError(t, err)
	require.Len(t, same, 1)
	assert.Equal(t, first.ID, same[0].ID)

	latest, err := s.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, third.ID, latest[0].ID)

	none, err := s.List(ctx, Filter{Shape: query.ShapeTopN})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
