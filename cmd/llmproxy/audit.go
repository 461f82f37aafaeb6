package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/igamenovoer/my-litellm-proxy/pkg/cli"
	"github.com/igamenovoer/my-litellm-proxy/pkg/config"
	"github.com/igamenovoer/my-litellm-proxy/pkg/evidence"
	"github.com/igamenovoer/my-litellm-proxy/pkg/evidence/export"
	"github.com/igamenovoer/my-litellm-proxy/pkg/evidence/query"
	"github.com/igamenovoer/my-litellm-proxy/pkg/evidence/retention"
	"github.com/igamenovoer/my-litellm-proxy/pkg/evidence/storage"
	"github.com/igamenovoer/my-litellm-proxy/pkg/telemetry/logging"
)

var auditFlags struct {
	database   string
	since      string
	until      string
	requestID  string
	model      string
	group      string
	key        string
	deployment string
	status     string
	limit      int
	format     string
	pretty     bool
	output     string
	days       int
	archiveDir string
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect and maintain the audit log",
	Long: `Inspect and maintain the request audit log.

The database is audit.database_url, falling back to
general_settings.database_url; --database overrides both.

Subcommands:
  export  - Write matching records as JSON or CSV
  count   - Count matching records by outcome
  prune   - Delete records older than the retention period`,
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit records",
	Long: `Export audit records as JSON or CSV, oldest first.

--since and --until take an RFC3339 time, a date (2006-01-02) or a duration
counted back from now (24h, 90m).

Examples:
  # Everything from the last day as CSV
  llmproxy audit export --since 24h --format csv --output audit.csv

  # Failed requests of one key
  llmproxy audit export --key team-a --status error --pretty`,
	Args: cobra.NoArgs,
	RunE: exportAudit,
}

var auditCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count audit records",
	Args:  cobra.NoArgs,
	RunE:  countAudit,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old audit records",
	Long: `Delete audit records older than --days (default audit.retention_days).

With --archive-dir (default audit.archive_dir) the records are written to a
JSON file in that directory before they are deleted.

Examples:
  llmproxy audit prune --days 30
  llmproxy audit prune --days 90 --archive-dir /var/backups/llmproxy`,
	Args: cobra.NoArgs,
	RunE: pruneAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditExportCmd, auditCountCmd, auditPruneCmd)

	auditCmd.PersistentFlags().StringVar(&auditFlags.database, "database", "", "database URL (overrides the config)")

	for _, cmd := range []*cobra.Command{auditExportCmd, auditCountCmd} {
		cmd.Flags().StringVar(&auditFlags.since, "since", "", "only records at or after this time")
		cmd.Flags().StringVar(&auditFlags.until, "until", "", "only records before this time")
		cmd.Flags().StringVar(&auditFlags.requestID, "request-id", "", "filter by request id")
		cmd.Flags().StringVar(&auditFlags.model, "model", "", "filter by requested model")
		cmd.Flags().StringVar(&auditFlags.group, "group", "", "filter by model group")
		cmd.Flags().StringVar(&auditFlags.key, "key", "", "filter by key alias")
		cmd.Flags().StringVar(&auditFlags.deployment, "deployment", "", "filter by serving deployment")
	}
	auditExportCmd.Flags().StringVar(&auditFlags.status, "status", "", "filter by outcome: success, error")
	auditExportCmd.Flags().IntVar(&auditFlags.limit, "limit", 0, "max records (default: all)")
	auditExportCmd.Flags().StringVar(&auditFlags.format, "format", "json", "output format: json, csv")
	auditExportCmd.Flags().BoolVar(&auditFlags.pretty, "pretty", false, "indent JSON output")
	auditExportCmd.Flags().StringVarP(&auditFlags.output, "output", "o", "", "output file (default: stdout)")

	auditPruneCmd.Flags().IntVar(&auditFlags.days, "days", 0, "retention period in days (default audit.retention_days)")
	auditPruneCmd.Flags().StringVar(&auditFlags.archiveDir, "archive-dir", "", "archive directory (default audit.archive_dir)")
}

// openAuditStore opens the audit database for a one-off command.
func openAuditStore(ctx context.Context) (evidence.Storage, *config.Config, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := logging.New(cfg.Telemetry.Logging, logging.Options{Debug: verbose})
	if err != nil {
		return nil, nil, nil, cli.NewConfigError("telemetry.logging", err)
	}

	url := auditFlags.database
	if url == "" {
		url = auditDatabaseURL(cfg)
	}
	if url == "" {
		return nil, nil, nil, cli.NewConfigError("audit.database_url",
			errors.New("no audit database configured (set audit.database_url or pass --database)"))
	}

	store, err := storage.Open(ctx, url, storage.Options{
		ConnectTimeout: cfg.Audit.ConnectTimeout,
		Logger:         logger,
	})
	if err != nil {
		return nil, nil, nil, cli.NewCommandError("audit", err)
	}
	return store, cfg, logger, nil
}

// auditQuery builds the filter shared by export and count.
func auditQuery(now time.Time) (*evidence.Query, error) {
	q := &evidence.Query{
		RequestID:  auditFlags.requestID,
		Model:      auditFlags.model,
		ModelGroup: auditFlags.group,
		KeyAlias:   auditFlags.key,
		Deployment: auditFlags.deployment,
		Status:     auditFlags.status,
		SortBy:     "request_time",
		SortOrder:  "asc",
	}
	var err error
	if q.StartTime, err = parseTimeFlag("since", auditFlags.since, now); err != nil {
		return nil, err
	}
	if q.EndTime, err = parseTimeFlag("until", auditFlags.until, now); err != nil {
		return nil, err
	}
	return q, nil
}

// parseTimeFlag accepts RFC3339, a date or a duration back from now.
func parseTimeFlag(name, value string, now time.Time) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		t := now.Add(-d)
		return &t, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid --%s %q: want RFC3339, YYYY-MM-DD or a duration", name, value)
}

func exportAudit(cmd *cobra.Command, args []string) error {
	exporter, ok := export.ForFormat(auditFlags.format, auditFlags.pretty)
	if !ok {
		return fmt.Errorf("unsupported export format %q (want json or csv)", auditFlags.format)
	}
	q, err := auditQuery(time.Now())
	if err != nil {
		return err
	}
	if err := query.Validate(q); err != nil {
		return err
	}

	ctx := cmd.Context()
	store, _, _, err := openAuditStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := fetchRecords(ctx, store, q, auditFlags.limit)
	if err != nil {
		return cli.NewCommandError("audit export", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if auditFlags.output != "" {
		f, err := os.Create(auditFlags.output)
		if err != nil {
			return cli.NewCommandError("audit export", err)
		}
		defer f.Close()
		w = f
	}
	if err := exporter.Export(ctx, records, w); err != nil {
		return cli.NewCommandError("audit export", err)
	}
	if auditFlags.output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported %d records to %s\n", len(records), auditFlags.output)
	}
	return nil
}

// fetchRecords pages through q. A limit of zero fetches everything.
func fetchRecords(ctx context.Context, store evidence.Storage, q *evidence.Query, limit int) ([]*evidence.EvidenceRecord, error) {
	var all []*evidence.EvidenceRecord
	page := *q
	for {
		page.Limit = query.MaxLimit
		if limit > 0 && limit-len(all) < page.Limit {
			page.Limit = limit - len(all)
		}
		records, err := store.Query(ctx, &page)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
		if len(records) < page.Limit || (limit > 0 && len(all) >= limit) {
			return all, nil
		}
		page.Offset += len(records)
	}
}

func countAudit(cmd *cobra.Command, args []string) error {
	q, err := auditQuery(time.Now())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, _, _, err := openAuditStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	table := &cli.Table{Headers: []string{"STATUS", "COUNT"}}
	for _, status := range []string{"success", "error", ""} {
		sq := *q
		sq.Status = status
		n, err := store.Count(ctx, &sq)
		if err != nil {
			return cli.NewCommandError("audit count", err)
		}
		label := status
		if label == "" {
			label = "total"
		}
		table.Append(label, strconv.FormatInt(n, 10))
	}
	return cli.NewFormatter(cli.FormatText).FormatTo(cmd.OutOrStdout(), table)
}

func pruneAudit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, cfg, logger, err := openAuditStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	days := auditFlags.days
	if days == 0 {
		days = cfg.Audit.RetentionDays
	}
	if days <= 0 {
		return errors.New("nothing to prune: pass --days or set audit.retention_days")
	}
	archiveDir := auditFlags.archiveDir
	if archiveDir == "" {
		archiveDir = cfg.Audit.ArchiveDir
	}

	pruner := retention.NewPruner(store, retention.Config{
		RetentionDays: days,
		ArchiveDir:    archiveDir,
	}, logger)
	deleted, err := pruner.Prune(ctx)
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d records older than %d days\n", deleted, days)
	return nil
}
