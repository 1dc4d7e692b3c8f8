package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"fintrack/internal/log"
	"fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Config struct {
	SpreadsheetID string
	// SheetName is the base tab name; rows go to "<year> <SheetName>" by the
	// year the event occurred.
	SheetName          string
	ServiceAccountFile string
	ServiceAccountJSON string
}

// Client appends journal rows to a Google spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *log.Logger

	mu    sync.Mutex
	known map[string]bool // tabs confirmed to exist
}

var _ sheets.JournalWriter = (*Client)(nil)

// New creates a client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	creds, err := serviceAccountCredentials(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return newClient(ctx, cfg, logger,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

func newClient(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	if logger == nil {
		logger = log.Nop()
	}
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Journal"
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     base,
		logger:        logger.WithComponent(log.ComponentSheets),
		known:         make(map[string]bool),
	}, nil
}

// serviceAccountCredentials reads inline JSON, then the key file, then
// GOOGLE_APPLICATION_CREDENTIALS.
func serviceAccountCredentials(ctx context.Context, cfg Config, logger *log.Logger) ([]byte, error) {
	if logger == nil {
		logger = log.Nop()
	}
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		logger.DebugContext(ctx, "Using inline service account credentials", "json_length", len(inline))
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		logger.DebugContext(ctx, "Read service account file", "path", file, "size", len(b))
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// AppendRows writes rows to the yearly tab they belong to, skipping keys
// already present in column A.
func (c *Client) AppendRows(ctx context.Context, rows []sheets.JournalRow) (int, error) {
	if c.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}

	byTab := make(map[string][]sheets.JournalRow)
	for _, r := range rows {
		tab := yearPrefixedName(c.sheetBase, r.OccurredAt.Year())
		byTab[tab] = append(byTab[tab], r)
	}
	tabs := make([]string, 0, len(byTab))
	for tab := range byTab {
		tabs = append(tabs, tab)
	}
	sort.Strings(tabs)

	written := 0
	for _, tab := range tabs {
		n, err := c.appendToTab(ctx, tab, byTab[tab])
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func (c *Client) appendToTab(ctx context.Context, tab string, rows []sheets.JournalRow) (int, error) {
	if err := c.ensureTab(ctx, tab); err != nil {
		return 0, err
	}

	rng := fmt.Sprintf("%s!A:A", tab)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read keys of %s: %w", tab, err)
	}
	existing := existingKeys(resp.Values)

	var values [][]any
	for _, r := range rows {
		if _, dup := existing[r.Key]; dup {
			continue
		}
		existing[r.Key] = struct{}{}
		values = append(values, rowValues(r))
	}
	if len(values) == 0 {
		return 0, nil
	}

	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, fmt.Sprintf("%s!A:%s", tab, lastColumn),
		&gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("append to %s: %w", tab, err)
	}
	c.logger.InfoContext(ctx, "Journal rows appended", "sheet", tab, "rows", len(values))
	return len(values), nil
}

// ensureTab creates tab with a header row unless it already exists.
func (c *Client) ensureTab(ctx context.Context, tab string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.known[tab] {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			c.known[s.Properties.Title] = true
		}
	}
	if c.known[tab] {
		return nil
	}

	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("create sheet %s: %w", tab, err)
	}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("%s!A1:%s1", tab, lastColumn),
		&gsheet.ValueRange{Values: [][]any{headerRow()}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header of %s: %w", tab, err)
	}
	c.logger.InfoContext(ctx, "Journal sheet created", "sheet", tab)
	c.known[tab] = true
	return nil
}
