package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igamenovoer/my-litellm-proxy/pkg/evidence"
)

func TestParseDatabaseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		dialect string
		dsn     string
		memory  bool
		wantErr bool
	}{
		{
			name:    "bare path",
			url:     "data/audit.db",
			dialect: "sqlite",
			dsn:     "data/audit.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		},
		{
			name:    "sqlite scheme",
			url:     "sqlite:///var/lib/llmproxy/audit.db",
			dialect: "sqlite",
			dsn:     "/var/lib/llmproxy/audit.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		},
		{
			name:    "sqlite keeps existing params",
			url:     "sqlite://audit.db?cache=shared",
			dialect: "sqlite",
			dsn:     "audit.db?cache=shared&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		},
		{
			name:    "sqlite3 scheme",
			url:     "sqlite3://audit.db",
			dialect: "sqlite3",
			dsn:     "audit.db?_journal_mode=WAL&_busy_timeout=5000",
		},
		{
			name:    "postgres",
			url:     "postgres://proxy:secret@db:5432/audit?sslmode=disable",
			dialect: "postgres",
			dsn:     "postgres://proxy:secret@db:5432/audit?sslmode=disable",
		},
		{
			name:    "postgresql alias",
			url:     "postgresql://db/audit",
			dialect: "postgres",
			dsn:     "postgresql://db/audit",
		},
		{name: "memory", url: "memory://", memory: true},
		{name: "empty", url: "", wantErr: true},
		{name: "sqlite without path", url: "sqlite://", wantErr: true},
		{name: "unknown scheme", url: "mysql://db/audit", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDatabaseURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, evidence.ErrUnsupportedDatabase)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.memory, got.Memory)
			if !tt.memory {
				assert.Equal(t, tt.dialect, got.Dialect.Name)
				assert.Equal(t, tt.dsn, got.DSN)
			}
		})
	}
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(context.Background(), "memory://", Options{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, s)
}

func TestOpen_Unsupported(t *testing.T) {
	_, err := Open(context.Background(), "mongodb://db", Options{})
	assert.ErrorIs(t, err, evidence.ErrUnsupportedDatabase)
}

func TestDialect_Placeholder(t *testing.T) {
	assert.Equal(t, "?", SQLite.Placeholder(3))
	assert.Equal(t, "?", SQLite3.Placeholder(1))
	assert.Equal(t, "$3", Postgres.Placeholder(3))
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "postgres://proxy:xxxxx@db/audit", redactURL("postgres://proxy:secret@db/audit"))
	assert.Equal(t, "audit.db", redactURL("audit.db"))
}
