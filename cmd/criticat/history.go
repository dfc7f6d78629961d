package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/FarDust/criticat/internal/config"
	"github.com/FarDust/criticat/internal/database"
	"github.com/FarDust/criticat/internal/model"
	"github.com/FarDust/criticat/internal/report"
)

// Trend of a review relative to the previous review of the same document.
const (
	trendWorsened  = "worsened"
	trendImproved  = "improved"
	trendUnchanged = "unchanged"
	trendFirst     = "first"
	noIssuesText   = "No issues"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [pdf-path]",
		Short: "Show past reviews of a document",
		Long: `History lists the reviews recorded for a document, newest first, and
whether each one improved or worsened on the review before it.

Reviews are recorded by 'criticat review' unless --no-db is given. The
database lives in the XDG data directory.

Examples:
  # Review history of a document
  criticat history thesis.pdf

  # Only the last five reviews, as JSON
  criticat history thesis.pdf -n 5 --json

  # Print a stored review as Markdown
  criticat history --show 12

  # List every reviewed document
  criticat history --list-documents`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-documents", "L", false, "List all reviewed documents")
	cmd.Flags().Int64P("show", "s", 0, "Print the stored review with this ID as Markdown")
	cmd.Flags().IntP("limit", "n", 0, "Show at most this many reviews (0 shows all)")
	cmd.Flags().BoolP("json", "j", false, "Output history in JSON format")
	cmd.Flags().String("db-dir", "", "History database directory (default: XDG data directory)")

	return cmd
}

// historyOptions are the parsed flags of the history command.
type historyOptions struct {
	document      string
	listDocuments bool
	showID        int64
	limit         int
	jsonOutput    bool
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	var opts historyOptions
	var err error
	if opts.listDocuments, err = flags.GetBool("list-documents"); err != nil {
		return err
	}
	if opts.showID, err = flags.GetInt64("show"); err != nil {
		return err
	}
	if opts.limit, err = flags.GetInt("limit"); err != nil {
		return err
	}
	if opts.jsonOutput, err = flags.GetBool("json"); err != nil {
		return err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	// Validate arguments before opening the database.
	if len(args) > 0 {
		opts.document = filepath.Clean(args[0])
	}
	if !opts.listDocuments && opts.showID == 0 && opts.document == "" {
		return errors.New("pdf path is required (use --list-documents to see reviewed documents)")
	}
	if opts.limit < 0 {
		return fmt.Errorf("invalid limit %d: must not be negative", opts.limit)
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			fmt.Fprintln(cmd.OutOrStdout(), "No reviews recorded yet.")
			fmt.Fprintln(cmd.OutOrStdout(), "\nUse 'criticat review <pdf>' to review a document.")
			return nil
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return runHistory(cmd.Context(), cmd.OutOrStdout(), db, opts)
}

// runHistory writes the history selected by opts to out.
func runHistory(ctx context.Context, out io.Writer, db *database.ReviewDB, opts historyOptions) error {
	switch {
	case opts.listDocuments:
		return listDocuments(ctx, out, db)
	case opts.showID > 0:
		return showReview(ctx, out, db, opts.showID)
	default:
		return listHistory(ctx, out, db, opts)
	}
}

// listDocuments lists every document with recorded reviews.
func listDocuments(ctx context.Context, out io.Writer, db *database.ReviewDB) error {
	documents, err := db.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(documents) == 0 {
		fmt.Fprintln(out, "No reviewed documents found in the database.")
		return nil
	}

	fmt.Fprintf(out, "Reviewed documents (%d):\n\n", len(documents))
	for _, d := range documents {
		fmt.Fprintf(out, "  • %s\n", d)
	}
	fmt.Fprintln(out, "\nUse 'criticat history <pdf>' to see the reviews of a document.")
	return nil
}

// showReview prints one stored review as Markdown.
func showReview(ctx context.Context, out io.Writer, db *database.ReviewDB, id int64) error {
	r, err := db.ReviewByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get review %d: %w", id, err)
	}
	if r == nil {
		return fmt.Errorf("review %d not found", id)
	}
	_, err = report.NewMarkdownWriter(out).Write(*r)
	return err
}

// HistoryEntry is one review in the history output.
type HistoryEntry struct {
	ID              int64          `json:"id"`
	Timestamp       time.Time      `json:"timestamp"`
	Digest          string         `json:"digest"`
	Pass            bool           `json:"pass"`
	IssueCount      int            `json:"issue_count"`
	UnanalyzedCount int            `json:"unanalyzed_count"`
	Model           string         `json:"model,omitempty"`
	SeveritySummary map[string]int `json:"severity_summary"`
	// Trend compares the review with the one recorded before it.
	Trend string `json:"trend"`
}

// listHistory lists the reviews of opts.document.
func listHistory(ctx context.Context, out io.Writer, db *database.ReviewDB, opts historyOptions) error {
	records, err := db.History(ctx, opts.document)
	if err != nil {
		return err
	}

	entries := historyEntries(records)
	if opts.limit > 0 && len(entries) > opts.limit {
		entries = entries[:opts.limit]
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if entries == nil {
			entries = []HistoryEntry{}
		}
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintf(out, "No reviews found for %s\n", opts.document)
		return nil
	}

	fmt.Fprintf(out, "Review history for %s (%d reviews):\n\n", opts.document, len(entries))
	fmt.Fprintf(out, "  %-6s  %-20s  %-12s  %-6s  %-20s  %s\n", "ID", "Date", "Digest", "Result", "Issues", "Trend")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 82))
	for _, e := range entries {
		result := "PASS"
		if !e.Pass {
			result = "FAIL"
		}
		fmt.Fprintf(out, "  %-6d  %-20s  %-12s  %-6s  %-20s  %s\n",
			e.ID,
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			shortDigest(e.Digest),
			result,
			formatSeveritySummary(e.SeveritySummary, e.UnanalyzedCount),
			e.Trend,
		)
	}
	fmt.Fprintln(out, "\nUse 'criticat history --show <id>' to print a review.")
	return nil
}

// historyEntries converts records, newest first, into entries with trends.
func historyEntries(records []database.ReviewRecord) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(records))
	for i, rec := range records {
		trend := trendFirst
		if i+1 < len(records) {
			trend = reviewTrend(records[i+1], rec)
		}
		entries = append(entries, HistoryEntry{
			ID:              rec.ID,
			Timestamp:       rec.Timestamp,
			Digest:          rec.Digest,
			Pass:            rec.Pass,
			IssueCount:      rec.IssueCount,
			UnanalyzedCount: rec.UnanalyzedCount,
			Model:           rec.Model,
			SeveritySummary: rec.SeveritySummary,
			Trend:           trend,
		})
	}
	return entries
}

// reviewTrend compares current with previous. A change of verdict decides;
// otherwise the weighted issue count does.
func reviewTrend(previous, current database.ReviewRecord) string {
	if previous.Pass != current.Pass {
		if current.Pass {
			return trendImproved
		}
		return trendWorsened
	}

	prev, cur := weightedIssues(previous), weightedIssues(current)
	switch {
	case cur > prev:
		return trendWorsened
	case cur < prev:
		return trendImproved
	default:
		return trendUnchanged
	}
}

// weightedIssues scores a review: high issues count most, unanalyzed pages
// as much as a high issue.
func weightedIssues(rec database.ReviewRecord) int {
	score := rec.UnanalyzedCount * 100
	for _, s := range model.Severities {
		weight := 1
		switch s {
		case model.SeverityMedium:
			weight = 10
		case model.SeverityHigh:
			weight = 100
		}
		score += rec.SeveritySummary[s.String()] * weight
	}
	return score
}

// formatSeveritySummary formats issue counts as "H:1 M:2 L:0", highest first.
func formatSeveritySummary(summary map[string]int, unanalyzed int) string {
	var parts []string
	for i := len(model.Severities) - 1; i >= 0; i-- {
		s := model.Severities[i]
		if v := summary[s.String()]; v > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", strings.ToUpper(s.String()[:1]), v))
		}
	}
	if unanalyzed > 0 {
		parts = append(parts, fmt.Sprintf("?:%d", unanalyzed))
	}
	if len(parts) == 0 {
		return noIssuesText
	}
	return strings.Join(parts, " ")
}

// shortDigest returns the first 12 characters of a hex digest.
func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
