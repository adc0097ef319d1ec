package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/payflow/internal/common"
	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetTitle is the tab results are written to.
const SheetTitle = "Payroll"

// detailColumns is the width of the result table.
const detailColumns = 11

// Writer implements service.ReportWriter for Google Sheets.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets report writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: srv,
		logger:  logger,
	}, nil
}

// Write replaces the sheet contents with the period summary and one row per
// employee.
func (w *Writer) Write(ctx context.Context, results []model.PayrollResult, summary *service.PayrollSummary) error {
	if summary == nil {
		summary = &service.PayrollSummary{RuleVersion: model.RuleVersion, Employees: len(results)}
	}
	w.logger.Info("starting payroll upload",
		"results", len(results),
		"period", summary.Period)

	spreadsheetID, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  max(w.config.RetryAttempts, 1),
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	if err := common.WithRetry(ctx, func() error {
		return w.clearSheet(ctx, spreadsheetID)
	}, retryOpts); err != nil {
		return fmt.Errorf("failed to clear sheet: %w", err)
	}

	values := prepareReportData(results, summary)
	if err := common.WithRetry(ctx, func() error {
		return w.writeData(ctx, spreadsheetID, values)
	}, retryOpts); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, len(values))
		}, retryOpts)
		if err != nil {
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("payroll upload completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", len(values))
	return nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := oauthConfig(config.ClientID, config.ClientSecret, "")
		tokenSource = client.TokenSource(ctx, &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		})
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return srv, nil
}

// getOrCreateSpreadsheet gets an existing spreadsheet or creates a new one.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if w.config.SpreadsheetID != "" {
		_, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return w.config.SpreadsheetID, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: SheetTitle}},
		},
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)
	return created.SpreadsheetId, nil
}

func (w *Writer) clearSheet(ctx context.Context, spreadsheetID string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, "A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return classifyAPIError(err)
}

// classifyAPIError marks Sheets API failures for WithRetry: 429 is a rate
// limit, other 4xx responses are permanent and 5xx responses are retried.
func classifyAPIError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case apiErr.Code >= 400 && apiErr.Code < 500:
		return &common.RetryableError{Err: err, Retryable: false}
	default:
		return &common.RetryableError{Err: err, Retryable: true}
	}
}

// prepareReportData lays out the summary block followed by the result
// table, sorted by employee.
func prepareReportData(results []model.PayrollResult, summary *service.PayrollSummary) [][]any {
	values := make([][]any, 0, 12+len(results))
	values = append(values,
		[]any{"Payroll Report", summary.Period},
		[]any{},
		[]any{"Summary"},
		[]any{"Employees", summary.Employees},
		[]any{"Gross Pay", summary.Gross.StringFixed(2)},
		[]any{"Social Security", summary.SocialSecurity.StringFixed(2)},
		[]any{"Tax", summary.Tax.StringFixed(2)},
		[]any{"Net Pay", summary.Net.StringFixed(2)},
		[]any{"Rule Version", summary.RuleVersion},
		[]any{},
		[]any{
			"Employee", "Period", "Base Pay", "OT Pay", "Allowances", "Deductions",
			"Gross Pay", "Social Security", "Tax", "Net Pay", "Sources",
		},
	)

	rows := make([]model.PayrollResult, len(results))
	copy(rows, results)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].EmployeeNameNorm < rows[j].EmployeeNameNorm
	})

	for _, r := range rows {
		values = append(values, []any{
			r.EmployeeNameNorm,
			r.PeriodMonth,
			r.BasePay.StringFixed(2),
			r.OTPay.StringFixed(2),
			r.AllowancesSum.StringFixed(2),
			r.DeductionsSum.StringFixed(2),
			r.GrossPay.StringFixed(2),
			r.SocialSecurityPersonal.StringFixed(2),
			r.Tax.StringFixed(2),
			r.NetPay.StringFixed(2),
			strings.Join(r.SourceFiles, ", "),
		})
	}
	return values
}

// writeData writes the data to the spreadsheet in batches.
func (w *Writer) writeData(ctx context.Context, spreadsheetID string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))
		batch := values[i:end]

		rangeStr := fmt.Sprintf("A%d", i+1)
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, &sheets.ValueRange{Values: batch}).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, classifyAPIError(err))
		}

		w.logger.Debug("wrote batch", "start_row", i+1, "rows", len(batch))
	}
	return nil
}

// applyFormatting bolds the title and headers, formats amounts and freezes
// the table header.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, totalRows int) error {
	const headerRow = 10
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{SheetId: 0, StartRowIndex: 0, EndRowIndex: 1, StartColumnIndex: 0, EndColumnIndex: 2},
				Cell: &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{
					TextFormat: &sheets.TextFormat{Bold: true, FontSize: 16},
				}},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{SheetId: 0, StartRowIndex: headerRow, EndRowIndex: headerRow + 1, StartColumnIndex: 0, EndColumnIndex: detailColumns},
				Cell: &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{
					TextFormat: &sheets.TextFormat{Bold: true},
				}},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{SheetId: 0, StartRowIndex: headerRow + 1, EndRowIndex: int64(totalRows), StartColumnIndex: 2, EndColumnIndex: 10},
				Cell: &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{
					NumberFormat: &sheets.NumberFormat{Type: "CURRENCY", Pattern: "¥#,##0.00"},
				}},
				Fields: "userEnteredFormat.numberFormat",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{SheetId: 0, Dimension: "COLUMNS", StartIndex: 0, EndIndex: detailColumns},
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:        0,
					GridProperties: &sheets.GridProperties{FrozenRowCount: headerRow + 1},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	return classifyAPIError(err)
}
