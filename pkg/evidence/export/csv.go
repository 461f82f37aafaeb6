package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/igamenovoer/my-litellm-proxy/pkg/evidence"
)

// CSVExporter exports evidence records to CSV format.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{
		IncludeHeader: includeHeader,
	}
}

// Header is the CSV column order.
var Header = []string{
	"id", "request_id", "request_time", "recorded_time",
	"operation", "model", "model_group", "stream", "key_alias",
	"deployment", "status", "upstream_attempts", "latency_ms",
	"attempts", "error", "error_type",
}

// Export writes evidence records to w in CSV format. The attempt history is
// written as a JSON array in a single column.
func (e *CSVExporter) Export(ctx context.Context, records []*evidence.EvidenceRecord, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(Header); err != nil {
			return evidence.NewExportError("csv", len(records), err)
		}
	}

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := recordToRow(record)
		if err != nil {
			return evidence.NewExportError("csv", len(records), err)
		}
		if err := writer.Write(row); err != nil {
			return evidence.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return evidence.NewExportError("csv", len(records), err)
	}
	return nil
}

func recordToRow(record *evidence.EvidenceRecord) ([]string, error) {
	formatTime := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339Nano)
	}

	attempts := record.Attempts
	if attempts == nil {
		attempts = []evidence.AttemptRecord{}
	}
	attemptsJSON, err := json.Marshal(attempts)
	if err != nil {
		return nil, err
	}

	return []string{
		record.ID,
		record.RequestID,
		formatTime(record.RequestTime),
		formatTime(record.RecordedTime),
		record.Operation,
		record.Model,
		record.ModelGroup,
		strconv.FormatBool(record.Stream),
		record.KeyAlias,
		record.Deployment,
		strconv.Itoa(record.Status),
		strconv.Itoa(record.UpstreamAttempts),
		strconv.FormatInt(record.Latency.Milliseconds(), 10),
		string(attemptsJSON),
		record.Error,
		record.ErrorType,
	}, nil
}

// ForFormat returns the exporter for "json" or "csv".
func ForFormat(format string, pretty bool) (evidence.Exporter, bool) {
	switch format {
	case "json":
		return NewJSONExporter(pretty), true
	case "csv":
		return NewCSVExporter(true), true
	}
	return nil, false
}
