package vectorindex

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cnss-digital/rag-service/internal/testutil"
)

// fakeBatchResults implements pgx.BatchResults, failing after failAt
// successful Execs when failAt >= 0.
type fakeBatchResults struct {
	remaining int
	failAt    int
	execCount int
	closed    bool
}

func (f *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	if f.failAt >= 0 && f.execCount == f.failAt {
		return pgconn.CommandTag{}, errors.New("constraint violation")
	}
	f.execCount++
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeBatchResults) Query() (pgx.Rows, error) { return nil, errors.New("not implemented") }
func (f *fakeBatchResults) QueryRow() pgx.Row        { return nil }
func (f *fakeBatchResults) Close() error {
	f.closed = true
	return nil
}

// fakeDB implements DB, recording batches sent and Exec calls.
type fakeDB struct {
	batches    []*pgx.Batch
	results    []*fakeBatchResults
	execSQL    []string
	execErr    error
	execTag    pgconn.CommandTag
	batchFails int // fail Exec in the Nth batch (0-based), -1 to disable
}

func newFakeDB() *fakeDB {
	return &fakeDB{batchFails: -1, execTag: pgconn.NewCommandTag("DELETE 3")}
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return f.execTag, nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (f *fakeDB) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	f.batches = append(f.batches, b)
	failAt := -1
	if f.batchFails == len(f.batches)-1 {
		failAt = 0
	}
	res := &fakeBatchResults{remaining: b.Len(), failAt: failAt}
	f.results = append(f.results, res)
	return res
}

func makeRecords(n int) []Record {
	docID := uuid.New()
	records := make([]Record, n)
	for i := range records {
		records[i] = Record{
			ID:         uuid.New(),
			DocumentID: docID,
			Content:    "contenu",
			Embedding:  []float32{0.1, 0.2, 0.3},
			Metadata:   map[string]any{"chunk_index": i},
		}
	}
	return records
}

func TestUpsert_BatchesOfOneHundred(t *testing.T) {
	db := newFakeDB()
	idx := New(db, testutil.NewNopLogger())

	if err := idx.Upsert(context.Background(), makeRecords(250)); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	if len(db.batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(db.batches))
	}
	wantSizes := []int{100, 100, 50}
	for i, b := range db.batches {
		if b.Len() != wantSizes[i] {
			t.Errorf("batch %d size = %d, want %d", i, b.Len(), wantSizes[i])
		}
	}
	for i, res := range db.results {
		if !res.closed {
			t.Errorf("batch %d results not closed", i)
		}
	}
}

func TestUpsert_EmptyInput(t *testing.T) {
	db := newFakeDB()
	idx := New(db, testutil.NewNopLogger())

	if err := idx.Upsert(context.Background(), nil); err != nil {
		t.Fatalf("Upsert(nil) error: %v", err)
	}
	if len(db.batches) != 0 {
		t.Errorf("sent %d batches for empty input", len(db.batches))
	}
}

func TestUpsert_BatchError(t *testing.T) {
	db := newFakeDB()
	db.batchFails = 1
	idx := New(db, testutil.NewNopLogger())

	err := idx.Upsert(context.Background(), makeRecords(150))
	if !errors.Is(err, ErrIndex) {
		t.Errorf("error = %v, want ErrIndex", err)
	}
	if len(db.batches) != 2 {
		t.Errorf("got %d batches, want 2 (stop on failure)", len(db.batches))
	}
	// Results of the failing batch must still be closed.
	if !db.results[1].closed {
		t.Error("failing batch results not closed")
	}
}

func TestDeleteByDocument(t *testing.T) {
	db := newFakeDB()
	idx := New(db, testutil.NewNopLogger())

	deleted, err := idx.DeleteByDocument(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("DeleteByDocument() error: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3 from command tag", deleted)
	}
	if len(db.execSQL) != 1 {
		t.Fatalf("exec calls = %d, want 1", len(db.execSQL))
	}
}

func TestDeleteByDocument_Error(t *testing.T) {
	db := newFakeDB()
	db.execErr = errors.New("connection reset")
	idx := New(db, testutil.NewNopLogger())

	_, err := idx.DeleteByDocument(context.Background(), uuid.New())
	if !errors.Is(err, ErrIndex) {
		t.Errorf("error = %v, want ErrIndex", err)
	}
}

func TestClampSimilarity(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-0.0001, 0},
		{0, 0},
		{0.75, 0.75},
		{1, 1},
		{1.0001, 1},
	}
	for _, tt := range tests {
		if got := clampSimilarity(tt.in); got != tt.want {
			t.Errorf("clampSimilarity(%g) = %g, want %g", tt.in, got, tt.want)
		}
	}
}
