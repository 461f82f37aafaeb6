package retention

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/igamenovoer/my-litellm-proxy/pkg/evidence"
	"github.com/igamenovoer/my-litellm-proxy/pkg/evidence/storage"
)

var now = time.Date(2026, 6, 15, 3, 0, 0, 0, time.UTC)

func seed(t *testing.T, s evidence.Storage, ages ...time.Duration) {
	t.Helper()
	for i, age := range ages {
		r := &evidence.EvidenceRecord{
			ID:          string(rune('a' + i)),
			RequestID:   "req",
			RequestTime: now.Add(-age),
		}
		if err := s.Store(context.Background(), r); err != nil {
			t.Fatalf("Store() error = %v", err)
		}
	}
}

func newTestPruner(s evidence.Storage, cfg Config) *Pruner {
	p := NewPruner(s, cfg, nil)
	p.now = func() time.Time { return now }
	return p
}

func TestPruner_Prune(t *testing.T) {
	tests := []struct {
		name          string
		retentionDays int
		wantDeleted   int64
		wantRemaining int
	}{
		{"keeps records inside the window", 30, 0, 3},
		{"deletes records older than a week", 7, 1, 2},
		{"deletes everything older than a day", 1, 2, 1},
		{"zero keeps everything", 0, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := storage.NewMemoryStorage()
			seed(t, mem, 10*24*time.Hour, 3*24*time.Hour, time.Hour)

			deleted, err := newTestPruner(mem, Config{RetentionDays: tt.retentionDays}).Prune(context.Background())
			if err != nil {
				t.Fatalf("Prune() error = %v", err)
			}
			if deleted != tt.wantDeleted {
				t.Errorf("deleted = %d, want %d", deleted, tt.wantDeleted)
			}
			if mem.Size() != tt.wantRemaining {
				t.Errorf("remaining = %d, want %d", mem.Size(), tt.wantRemaining)
			}
		})
	}
}

func TestPruner_ArchivesBeforeDelete(t *testing.T) {
	mem := storage.NewMemoryStorage()
	seed(t, mem, 10*24*time.Hour, 9*24*time.Hour, time.Hour)
	dir := filepath.Join(t.TempDir(), "archive")

	deleted, err := newTestPruner(mem, Config{RetentionDays: 7, ArchiveDir: dir}).Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted = %d, want 2", deleted)
	}

	files, err := filepath.Glob(filepath.Join(dir, "evidence-*.json"))
	if err != nil || len(files) != 1 {
		t.Fatalf("archive files = %v (err %v), want exactly one", files, err)
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var archived []*evidence.EvidenceRecord
	if err := json.Unmarshal(data, &archived); err != nil {
		t.Fatalf("archive is not a JSON array: %v", err)
	}
	if len(archived) != 2 || archived[0].ID != "a" {
		t.Errorf("archived = %d records, first %q; want 2 records, oldest first", len(archived), archived[0].ID)
	}
}

func TestPruner_NoArchiveWhenNothingExpired(t *testing.T) {
	mem := storage.NewMemoryStorage()
	seed(t, mem, time.Hour)
	dir := filepath.Join(t.TempDir(), "archive")

	if _, err := newTestPruner(mem, Config{RetentionDays: 7, ArchiveDir: dir}).Prune(context.Background()); err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("archive directory should not be created, stat err = %v", err)
	}
}

type brokenStorage struct{ *storage.MemoryStorage }

func (brokenStorage) Delete(context.Context, *evidence.Query) (int64, error) {
	return 0, errors.New("database is locked")
}

func TestPruner_StorageError(t *testing.T) {
	p := newTestPruner(brokenStorage{storage.NewMemoryStorage()}, Config{RetentionDays: 7})

	_, err := p.Prune(context.Background())
	var rerr *evidence.RetentionError
	if !errors.As(err, &rerr) {
		t.Fatalf("error = %v, want *evidence.RetentionError", err)
	}
	if rerr.RetentionDays != 7 {
		t.Errorf("RetentionDays = %d, want 7", rerr.RetentionDays)
	}
}
