package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	sheetsapi "google.golang.org/api/sheets/v4"
	"google.golang.org/api/option"

	"github.com/storesync/backend/internal/domain/pipeline"
)

// Errors for Sheets configuration
var (
	ErrConfigMissingSpreadsheetID = errors.New("sheets: spreadsheet id is required")
	ErrConfigMissingCredentials   = errors.New("sheets: service account credentials are required")
)

// Config holds configuration for the Google Sheets sink.
type Config struct {
	// SpreadsheetID is the id of the reporting spreadsheet (from its URL).
	SpreadsheetID string
	// CredentialsFile is the path of a service account key file.
	CredentialsFile string
	// CredentialsJSON is the inline service account key; takes precedence
	// over CredentialsFile.
	CredentialsJSON string
}

// Validate validates the Sheets configuration.
func (c *Config) Validate() error {
	if c.SpreadsheetID == "" {
		return ErrConfigMissingSpreadsheetID
	}
	if c.CredentialsFile == "" && c.CredentialsJSON == "" {
		return ErrConfigMissingCredentials
	}
	return nil
}

// Sink implements the pipeline.Sink port on a Google spreadsheet. Publishing
// replaces a tab's entire contents, creating the tab when absent.
type Sink struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewSink creates a Sheets sink authenticated as a service account.
func NewSink(ctx context.Context, config *Config, logger *zap.Logger) (*Sink, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var opt option.ClientOption
	if config.CredentialsJSON != "" {
		opt = option.WithCredentialsJSON([]byte(config.CredentialsJSON))
	} else {
		opt = option.WithCredentialsFile(config.CredentialsFile)
	}
	service, err := sheetsapi.NewService(ctx, opt, option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("sheets: creating service: %w", err)
	}

	return &Sink{
		service:       service,
		spreadsheetID: config.SpreadsheetID,
		logger:        logger,
	}, nil
}

// Publish replaces the tab's contents with the table.
func (s *Sink) Publish(ctx context.Context, tab string, table *pipeline.Table) error {
	if err := s.ensureTab(ctx, tab); err != nil {
		return err
	}

	if _, err := s.service.Spreadsheets.Values.
		Clear(s.spreadsheetID, tab, &sheetsapi.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: clearing tab %s: %v", pipeline.ErrSinkPublishFailed, tab, err)
	}

	values := buildValues(table)
	if _, err := s.service.Spreadsheets.Values.
		Update(s.spreadsheetID, tab+"!A1", &sheetsapi.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: writing tab %s: %v", pipeline.ErrSinkPublishFailed, tab, err)
	}

	s.logger.Info("Published tab",
		zap.String("tab", tab),
		zap.Int("rows", table.Len()),
		zap.Int("columns", len(table.Columns())),
	)
	return nil
}

// ensureTab creates the tab when the spreadsheet does not have it yet.
func (s *Sink) ensureTab(ctx context.Context, tab string) error {
	spreadsheet, err := s.service.Spreadsheets.
		Get(s.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: loading spreadsheet: %v", pipeline.ErrSinkPublishFailed, err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == tab {
			return nil
		}
	}

	_, err = s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: tab},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: creating tab %s: %v", pipeline.ErrSinkPublishFailed, tab, err)
	}
	s.logger.Info("Created tab", zap.String("tab", tab))
	return nil
}

// buildValues renders the table as a header row plus data rows in the cell
// types the Sheets API accepts.
func buildValues(table *pipeline.Table) [][]any {
	header, rows := table.Matrix()

	values := make([][]any, 0, len(rows)+1)
	headerCells := make([]any, len(header))
	for i, name := range header {
		headerCells[i] = name
	}
	values = append(values, headerCells)

	for _, row := range rows {
		cells := make([]any, len(row))
		for i, cell := range row {
			cells[i] = cellValue(cell)
		}
		values = append(values, cells)
	}
	return values
}

// cellValue converts a pipeline scalar to a Sheets cell. Nil becomes an
// empty cell; json.Number becomes a real number when it fits, else its
// string form (Shopify ids overflow float64 silently otherwise).
func cellValue(v any) any {
	switch val := v.(type) {
	case nil:
		return ""
	case json.Number:
		if i, err := val.Int64(); err == nil {
			if fitsInSheetNumber(i) {
				return i
			}
			return val.String()
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case string, bool, int, int64, float64:
		return val
	default:
		return fmt.Sprint(val)
	}
}

// fitsInSheetNumber reports whether the integer survives the conversion to
// the IEEE 754 double a sheet cell stores.
func fitsInSheetNumber(i int64) bool {
	const maxExact = int64(1) << 53
	return i > -maxExact && i < maxExact
}

// Ensure Sink implements the Sink port
var _ pipeline.Sink = (*Sink)(nil)
