// Package sheets publishes the leaderboard to a Google Sheets tab
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"

	"github.com/memalihaider/umttechverse02-sub001/internal/config"
	"github.com/memalihaider/umttechverse02-sub001/internal/models"
)

// Header is the first row written to the sheet
var Header = []interface{}{
	"Rank", "Unique ID", "Team", "Leader", "Module", "Average Score", "Evaluations", "Exported At",
}

// ValueWriter replaces the contents of a range
type ValueWriter interface {
	Clear(ctx context.Context, rng string) error
	Update(ctx context.Context, rng string, rows [][]interface{}) error
}

// Exporter writes the ranked leaderboard to one sheet tab
type Exporter struct {
	values ValueWriter
	sheet  string
	now    func() time.Time
}

// New creates an exporter using a service account credentials file
func New(ctx context.Context, cfg *config.SheetsConfig) (*Exporter, error) {
	if _, err := os.Stat(cfg.CredentialsFile); err != nil {
		return nil, fmt.Errorf("service account json: %w", err)
	}

	srv, err := sheetsv4.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(sheetsv4.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	slog.Info("Leaderboard export to Google Sheets enabled", "spreadsheet_id", cfg.SpreadsheetID, "sheet", cfg.SheetName)
	return NewWithWriter(&serviceWriter{srv: srv, spreadsheetID: cfg.SpreadsheetID}, cfg.SheetName), nil
}

// NewWithWriter creates an exporter over an existing writer
func NewWithWriter(values ValueWriter, sheet string) *Exporter {
	return &Exporter{values: values, sheet: sheet, now: time.Now}
}

// Export replaces the sheet contents with the header and one row per entry
func (e *Exporter) Export(ctx context.Context, entries []models.LeaderboardEntry) error {
	if err := e.values.Clear(ctx, e.sheet+"!A:Z"); err != nil {
		return fmt.Errorf("failed to clear sheet: %w", err)
	}
	if err := e.values.Update(ctx, e.sheet+"!A1", Rows(entries, e.now().UTC())); err != nil {
		return fmt.Errorf("failed to write sheet: %w", err)
	}
	return nil
}

// Rows renders entries as sheet rows, header first
func Rows(entries []models.LeaderboardEntry, exportedAt time.Time) [][]interface{} {
	stamp := exportedAt.Format(time.RFC3339)
	rows := make([][]interface{}, 0, len(entries)+1)
	rows = append(rows, Header)
	for _, e := range entries {
		uniqueID := ""
		if e.UniqueID != nil {
			uniqueID = *e.UniqueID
		}
		rows = append(rows, []interface{}{
			e.Rank,
			uniqueID,
			e.TeamName,
			e.LeaderName,
			e.Module,
			fmt.Sprintf("%.2f", e.AverageScore),
			e.EvaluationCount,
			stamp,
		})
	}
	return rows
}

type serviceWriter struct {
	srv           *sheetsv4.Service
	spreadsheetID string
}

func (w *serviceWriter) Clear(ctx context.Context, rng string) error {
	_, err := w.srv.Spreadsheets.Values.Clear(w.spreadsheetID, rng, &sheetsv4.ClearValuesRequest{}).
		Context(ctx).
		Do()
	return err
}

func (w *serviceWriter) Update(ctx context.Context, rng string, rows [][]interface{}) error {
	vr := &sheetsv4.ValueRange{Values: rows}
	_, err := w.srv.Spreadsheets.Values.Update(w.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}
