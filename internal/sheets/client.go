package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// API is the part of the Sheets service the bot uses.
type API interface {
	GetValues(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error)
	SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error)
	AddSheet(ctx context.Context, spreadsheetID, title string) error
	ClearValues(ctx context.Context, spreadsheetID, clearRange string) error
	UpdateValues(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) error
}

// Client talks to Google Sheets with service account credentials.
type Client struct {
	srv *gsheets.Service
}

var _ API = (*Client)(nil)

func NewClient(ctx context.Context, credentialsPath string) (*Client, error) {
	srv, err := gsheets.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(gsheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{srv: srv}, nil
}

func (c *Client) GetValues(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error) {
	resp, err := c.srv.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", readRange, err)
	}
	return resp.Values, nil
}

func (c *Client) SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error) {
	ss, err := c.srv.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}
	titles := make([]string, 0, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}
	return titles, nil
}

func (c *Client) AddSheet(ctx context.Context, spreadsheetID, title string) error {
	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{
				Properties: &gsheets.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := c.srv.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %q: %w", title, err)
	}
	return nil
}

func (c *Client) ClearValues(ctx context.Context, spreadsheetID, clearRange string) error {
	_, err := c.srv.Spreadsheets.Values.Clear(spreadsheetID, clearRange, &gsheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}
	return nil
}

func (c *Client) UpdateValues(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) error {
	_, err := c.srv.Spreadsheets.Values.Update(spreadsheetID, writeRange, &gsheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", writeRange, err)
	}
	return nil
}
