package sheetsclient

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Client wraps the Google Sheets API client
type Client struct {
	service *sheets.Service
	tokens  oauth2.TokenSource
}

// NewClient creates a Sheets client authenticated with a service account key file.
// The spreadsheet must be shared with the service account's email address.
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("sheets credentials file is required")
	}

	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheets credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sheets credentials: %w", err)
	}

	client, err := NewClientWithOptions(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, err
	}
	client.tokens = creds.TokenSource

	return client, nil
}

// NewClientWithOptions creates a Sheets client from explicit API options
func NewClientWithOptions(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{service: service}, nil
}

// Service returns the underlying sheets service for direct API access
func (c *Client) Service() *sheets.Service {
	return c.service
}

// TokenSource returns the service account token source (nil for clients built from options)
func (c *Client) TokenSource() oauth2.TokenSource {
	return c.tokens
}

// GetValues reads values from a spreadsheet range
func (c *Client) GetValues(ctx context.Context, spreadsheetID, sheetRange string) ([][]interface{}, error) {
	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get values: %w", err)
	}

	return resp.Values, nil
}

// UpdateValues overwrites a spreadsheet range starting at its top-left cell
func (c *Client) UpdateValues(ctx context.Context, spreadsheetID, sheetRange string, values [][]interface{}) error {
	valueRange := &sheets.ValueRange{
		Values: values,
	}

	_, err := c.service.Spreadsheets.Values.Update(spreadsheetID, sheetRange, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update values: %w", err)
	}

	return nil
}

// ClearValues removes all values from a spreadsheet range, keeping formatting
func (c *Client) ClearValues(ctx context.Context, spreadsheetID, sheetRange string) error {
	_, err := c.service.Spreadsheets.Values.Clear(spreadsheetID, sheetRange, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to clear values: %w", err)
	}

	return nil
}

// SheetExists reports whether the spreadsheet has a tab with the given title
func (c *Client) SheetExists(ctx context.Context, spreadsheetID, sheetTitle string) (bool, error) {
	spreadsheet, err := c.service.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("failed to get spreadsheet metadata: %w", err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == sheetTitle {
			return true, nil
		}
	}
	return false, nil
}

// CreateSheet creates a new sheet/tab in the spreadsheet
func (c *Client) CreateSheet(ctx context.Context, spreadsheetID, sheetTitle string) (int64, error) {
	req := &sheets.Request{
		AddSheet: &sheets.AddSheetRequest{
			Properties: &sheets.SheetProperties{
				Title: sheetTitle,
			},
		},
	}

	batchUpdateRequest := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{req},
	}

	resp, err := c.service.Spreadsheets.BatchUpdate(spreadsheetID, batchUpdateRequest).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to create sheet: %w", err)
	}

	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return 0, fmt.Errorf("unexpected response from create sheet")
	}

	sheetID := resp.Replies[0].AddSheet.Properties.SheetId
	return sheetID, nil
}

// ReplaceSheet writes values into a tab, creating it if missing and clearing it otherwise
func (c *Client) ReplaceSheet(ctx context.Context, spreadsheetID, sheetTitle string, values [][]interface{}) error {
	exists, err := c.SheetExists(ctx, spreadsheetID, sheetTitle)
	if err != nil {
		return err
	}

	if exists {
		if err := c.ClearValues(ctx, spreadsheetID, quoteTitle(sheetTitle)); err != nil {
			return fmt.Errorf("failed to clear tab %q: %w", sheetTitle, err)
		}
	} else if _, err := c.CreateSheet(ctx, spreadsheetID, sheetTitle); err != nil {
		return fmt.Errorf("failed to create tab %q: %w", sheetTitle, err)
	}

	if err := c.UpdateValues(ctx, spreadsheetID, quoteTitle(sheetTitle)+"!A1", values); err != nil {
		return fmt.Errorf("failed to write tab %q: %w", sheetTitle, err)
	}
	return nil
}

// quoteTitle quotes a tab title for use in A1 notation
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
