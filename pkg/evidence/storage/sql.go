package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/igamenovoer/my-litellm-proxy/pkg/evidence"
	"github.com/igamenovoer/my-litellm-proxy/pkg/evidence/query"
)

// SQLStorage implements the Storage interface on database/sql. The same code
// serves SQLite and PostgreSQL; Dialect covers the differences.
type SQLStorage struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
	now     func() time.Time
}

// New wraps an open database and creates the schema if needed.
func New(ctx context.Context, db *sql.DB, dialect Dialect, logger *slog.Logger) (*SQLStorage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SQLStorage{
		db:      db,
		dialect: dialect,
		logger:  logger.With("component", "evidence.storage", "backend", dialect.Name),
		now:     time.Now,
	}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStorage) migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return s.fail("create_schema", err)
		}
	}

	insert := fmt.Sprintf(
		"INSERT INTO schema_version (version, applied_at) VALUES (%s, %s) ON CONFLICT (version) DO NOTHING",
		s.dialect.Placeholder(1), s.dialect.Placeholder(2))
	if _, err := s.db.ExecContext(ctx, insert, SchemaVersion, s.now().UnixMilli()); err != nil {
		return s.fail("insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRowContext(ctx, getSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return s.fail("get_schema_version", err)
	}
	if version != SchemaVersion {
		return s.fail("schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Store persists an evidence record.
func (s *SQLStorage) Store(ctx context.Context, record *evidence.EvidenceRecord) error {
	attempts, err := json.Marshal(record.Attempts)
	if err != nil {
		return s.fail("store", err)
	}
	if record.Attempts == nil {
		attempts = []byte("[]")
	}

	placeholders := make([]string, 16)
	for i := range placeholders {
		placeholders[i] = s.dialect.Placeholder(i + 1)
	}
	stmt := "INSERT INTO evidence (" + evidenceColumns + ") VALUES (" + strings.Join(placeholders, ", ") + ")"

	_, err = s.db.ExecContext(ctx, stmt,
		record.ID, record.RequestID,
		record.RequestTime.UnixMilli(), record.RecordedTime.UnixMilli(),
		record.Operation, record.Model, record.ModelGroup,
		record.Stream, record.KeyAlias, record.Deployment,
		record.Status, string(attempts), record.UpstreamAttempts,
		record.Latency.Milliseconds(),
		nullString(record.Error), nullString(record.ErrorType),
	)
	if err != nil {
		return s.fail("store", err)
	}
	return nil
}

// Query retrieves evidence records matching the query filters.
func (s *SQLStorage) Query(ctx context.Context, q *evidence.Query) ([]*evidence.EvidenceRecord, error) {
	if err := query.Validate(q); err != nil {
		return nil, err
	}
	qq := *q
	query.ApplyDefaults(&qq)

	where, args := s.buildWhereClause(&qq)
	stmt := "SELECT " + evidenceColumns + " FROM evidence" + where +
		fmt.Sprintf(" ORDER BY %s %s LIMIT %d", query.SortColumns[qq.SortBy], strings.ToUpper(qq.SortOrder), qq.Limit)
	if qq.Offset > 0 {
		stmt += " OFFSET " + strconv.Itoa(qq.Offset)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, s.fail("query", err)
	}
	defer rows.Close()

	records := []*evidence.EvidenceRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, s.fail("scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("query", err)
	}
	return records, nil
}

// Count returns the number of evidence records matching the query filters.
func (s *SQLStorage) Count(ctx context.Context, q *evidence.Query) (int64, error) {
	if err := query.Validate(q); err != nil {
		return 0, err
	}
	where, args := s.buildWhereClause(q)

	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM evidence"+where, args...).Scan(&count); err != nil {
		return 0, s.fail("count", err)
	}
	return count, nil
}

// Delete removes evidence records matching the query filters.
func (s *SQLStorage) Delete(ctx context.Context, q *evidence.Query) (int64, error) {
	if err := query.Validate(q); err != nil {
		return 0, err
	}
	where, args := s.buildWhereClause(q)

	result, err := s.db.ExecContext(ctx, "DELETE FROM evidence"+where, args...)
	if err != nil {
		return 0, s.fail("delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, s.fail("delete", err)
	}
	return count, nil
}

// PingContext checks the database connection.
func (s *SQLStorage) PingContext(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return s.fail("ping", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return s.fail("close", err)
	}
	s.logger.Info("evidence storage closed")
	return nil
}

func (s *SQLStorage) fail(op string, err error) error {
	return evidence.NewStorageError(s.dialect.Name, op, err)
}

// buildWhereClause returns " WHERE ..." (or "") and its arguments.
func (s *SQLStorage) buildWhereClause(q *evidence.Query) (string, []any) {
	var conditions []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, cond+" "+s.dialect.Placeholder(len(args)))
	}

	if q.StartTime != nil {
		add("request_time >=", q.StartTime.UnixMilli())
	}
	if q.EndTime != nil {
		add("request_time <", q.EndTime.UnixMilli())
	}
	if q.RequestID != "" {
		add("request_id =", q.RequestID)
	}
	if q.Model != "" {
		add("model =", q.Model)
	}
	if q.ModelGroup != "" {
		add("model_group =", q.ModelGroup)
	}
	if q.KeyAlias != "" {
		add("key_alias =", q.KeyAlias)
	}
	if q.Deployment != "" {
		add("deployment =", q.Deployment)
	}

	switch q.Status {
	case "success":
		conditions = append(conditions, "error IS NULL")
	case "error":
		conditions = append(conditions, "error IS NOT NULL")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanRecord(rows *sql.Rows) (*evidence.EvidenceRecord, error) {
	var (
		record                 evidence.EvidenceRecord
		requestMS, recordedMS  int64
		latencyMS              int64
		attempts               string
		errorVal, errorTypeVal sql.NullString
	)
	err := rows.Scan(
		&record.ID, &record.RequestID, &requestMS, &recordedMS,
		&record.Operation, &record.Model, &record.ModelGroup,
		&record.Stream, &record.KeyAlias, &record.Deployment,
		&record.Status, &attempts, &record.UpstreamAttempts, &latencyMS,
		&errorVal, &errorTypeVal,
	)
	if err != nil {
		return nil, err
	}

	record.RequestTime = time.UnixMilli(requestMS).UTC()
	record.RecordedTime = time.UnixMilli(recordedMS).UTC()
	record.Latency = time.Duration(latencyMS) * time.Millisecond
	record.Error = errorVal.String
	record.ErrorType = errorTypeVal.String
	if attempts != "" {
		if err := json.Unmarshal([]byte(attempts), &record.Attempts); err != nil {
			return nil, fmt.Errorf("decode attempts: %w", err)
		}
	}
	return &record, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
