package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"salvadanaio/internal/log"
	ports "salvadanaio/internal/sheets"
)

const defaultLedgerSheet = "Ledger"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base name without year (e.g. "Ledger"); rows go to "<year> Ledger".
	ledgerBase string
	logger     *log.Logger
}

var (
	_ ports.LedgerWriter = (*Client)(nil)
	_ ports.LedgerReader = (*Client)(nil)
)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS;
// otherwise GOOGLE_OAUTH_CLIENT_JSON/FILE with GOOGLE_OAUTH_TOKEN_JSON/FILE.
// Optional: LEDGER_SHEET_NAME (default "Ledger").
func NewFromEnv(ctx context.Context, logger *log.Logger) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentSheets)

	svc, err := newSheetsService(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		ledgerBase:    ledgerSheetBase(),
		logger:        logger,
	}, nil
}

func ledgerSheetBase() string {
	if base := strings.TrimSpace(os.Getenv("LEDGER_SHEET_NAME")); base != "" {
		return base
	}
	return defaultLedgerSheet
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials, or OAuth user credentials when no service account is set.
func newSheetsService(ctx context.Context, logger *log.Logger) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		logger.DebugContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		logger.DebugContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		ts, err := oauthTokenSource(ctx)
		if errors.Is(err, errNoOAuthClient) {
			return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS, or an OAuth client)")
		}
		if err != nil {
			return nil, err
		}
		logger.DebugContext(ctx, "Using OAuth user credentials")
		service, err := gsheet.NewService(ctx, goption.WithTokenSource(ts))
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}
		return service, nil
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// Append writes the row at the end of the yearly ledger sheet. The id column
// is scanned first so redelivered messages do not produce duplicate rows.
func (c *Client) Append(ctx context.Context, row ports.Row) (string, error) {
	if err := row.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := c.sheetName(row.Date.Year())
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, fmt.Sprintf("%s!F:F", sheet)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("read ids from %s: %w", sheet, err)
	}

	ids := toStrings(resp.Values)
	if i := indexOf(ids, row.TransactionID); i >= 0 {
		c.logger.InfoContext(ctx, "Ledger row already present", log.FieldTransactionID, row.TransactionID)
		return rowRef(sheet, i+1), nil
	}

	nextRow := len(resp.Values) + 1
	rng := fmt.Sprintf("%s!A%d:F%d", sheet, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{row.Values()}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}
	return rowRef(sheet, nextRow), nil
}

// ListEntries reads the yearly ledger sheet and keeps rows dated in month.
// Header or malformed rows are skipped.
func (c *Client) ListEntries(ctx context.Context, year int, month int) ([]ports.Row, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month: %d", month)
	}

	rng := fmt.Sprintf("%s!A:F", c.sheetName(year))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return filterMonth(resp.Values, year, month), nil
}

func (c *Client) sheetName(year int) string {
	return yearPrefixedName(c.ledgerBase, year)
}

func filterMonth(values [][]any, year int, month int) []ports.Row {
	var out []ports.Row
	for _, raw := range values {
		row, err := ports.ParseRow(cellStrings(raw))
		if err != nil {
			continue
		}
		if row.Date.Year() == year && row.Date.Month() == time.Month(month) {
			out = append(out, row)
		}
	}
	return out
}

func cellStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// toStrings flattens a single-column range.
func toStrings(values [][]any) []string {
	out := make([]string, len(values))
	for i, row := range values {
		if len(row) > 0 {
			out[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if v == target {
			return i
		}
	}
	return -1
}

func rowRef(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:F%d", sheet, row, row)
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
