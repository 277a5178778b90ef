// Package sheets reads the operator-maintained correspondence table from
// Google Sheets and writes rejected rows back for review.
package sheets

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"beersync/internal"
	"beersync/internal/config"
)

type Client struct {
	cfg     config.Config
	service *sheetsapi.Service
}

func NewClient(cfg config.Config) (*Client, error) {
	if err := cfg.Require("SHEETS_CLIENT_ID", cfg.SheetsClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("SHEETS_CLIENT_SECRET", cfg.SheetsClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("SHEETS_REFRESH_TOKEN", cfg.SheetsRefreshToken); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.SheetsClientID,
		ClientSecret: cfg.SheetsClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.SheetsRedirectURI,
		Scopes:       []string{sheetsapi.SpreadsheetsScope},
	}

	tokenSource := oauthCfg.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.SheetsRefreshToken})
	svc, err := sheetsapi.NewService(context.Background(), option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &Client{cfg: cfg, service: svc}, nil
}

// CorrespondenceRows reads the configured range. A row with fewer than two
// cells carries no excise code; the matcher rejects it with the reason.
func (c *Client) CorrespondenceRows() ([]internal.CorrespondenceRow, error) {
	if err := c.cfg.Require("CORRESPONDENCE_SPREADSHEET_ID", c.cfg.CorrespondenceSpreadsheetID); err != nil {
		return nil, err
	}

	rangeRef := fmt.Sprintf("%s!%s", c.cfg.CorrespondenceSheet, c.cfg.CorrespondenceRange)
	resp, err := c.service.Spreadsheets.Values.
		Get(c.cfg.CorrespondenceSpreadsheetID, rangeRef).
		MajorDimension("ROWS").
		Do()
	if err != nil {
		return nil, err
	}

	return parseRows(resp.Values), nil
}

// parseRows sorts the raw rows lexicographically, which pushes the blank
// rows the sheet keeps where entries were removed to the top, then drops
// them. The resulting order decides link insertion order downstream.
func parseRows(values [][]any) []internal.CorrespondenceRow {
	sort.SliceStable(values, func(i, j int) bool { return rowLess(values[i], values[j]) })

	rows := make([]internal.CorrespondenceRow, 0, len(values))
	for _, cells := range values {
		if len(cells) == 0 {
			continue
		}
		row := internal.CorrespondenceRow{Name: cellString(cells[0])}
		if row.Name == "" {
			continue
		}
		if len(cells) > 1 {
			row.Code = cellString(cells[1])
		}
		rows = append(rows, row)
	}
	return rows
}

// rowLess compares rows cell by cell, shorter rows first on a tie.
func rowLess(a, b []any) bool {
	for i := range a {
		if i >= len(b) {
			return false
		}
		as, bs := cellString(a[i]), cellString(b[i])
		if as != bs {
			return as < bs
		}
	}
	return len(a) < len(b)
}

// WriteRejections clears the review range and fills it with the refused
// rows and their reasons.
func (c *Client) WriteRejections(rejections []internal.Rejection) error {
	rangeRef := fmt.Sprintf("%s!%s", c.cfg.CorrespondenceSheet, c.cfg.RejectionsRange)

	if _, err := c.service.Spreadsheets.Values.
		Clear(c.cfg.CorrespondenceSpreadsheetID, rangeRef, &sheetsapi.ClearValuesRequest{}).
		Do(); err != nil {
		return err
	}

	values := make([][]any, 0, len(rejections))
	for _, r := range rejections {
		values = append(values, []any{r.Row.Name, string(r.Reason)})
	}

	_, err := c.service.Spreadsheets.Values.
		BatchUpdate(c.cfg.CorrespondenceSpreadsheetID, &sheetsapi.BatchUpdateValuesRequest{
			ValueInputOption: "USER_ENTERED",
			Data: []*sheetsapi.ValueRange{{
				Range:          rangeRef,
				MajorDimension: "ROWS",
				Values:         values,
			}},
		}).
		Do()
	return err
}

func cellString(cell any) string {
	s, _ := cell.(string)
	return s
}
