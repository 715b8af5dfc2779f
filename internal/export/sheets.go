package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"riyalmind/internal/core"
)

// SheetsClient writes ledger rows to a Google Sheets spreadsheet using
// service account credentials.
type SheetsClient struct {
	svc           *gsheet.Service
	spreadsheetID string
	personalSheet string
	ledgerSheet   string
}

var _ LedgerWriter = (*SheetsClient)(nil)

// NewSheetsFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service account credentials via
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional sheet names: PERSONAL_SHEET_NAME (default "Personal"),
// LEDGER_SHEET_NAME (default "Ledger").
func NewSheetsFromEnv(ctx context.Context) (*SheetsClient, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	personalSheet := strings.TrimSpace(os.Getenv("PERSONAL_SHEET_NAME"))
	if personalSheet == "" {
		personalSheet = "Personal"
	}
	ledgerSheet := strings.TrimSpace(os.Getenv("LEDGER_SHEET_NAME"))
	if ledgerSheet == "" {
		ledgerSheet = "Ledger"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsClient{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		personalSheet: personalSheet,
		ledgerSheet:   ledgerSheet,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *SheetsClient) AppendPersonal(ctx context.Context, e core.PersonalExpense) (string, error) {
	return c.appendRow(ctx, c.personalSheet, []any{
		e.Date.Format("2006-01-02"), e.Description, e.Amount.Units(), e.Category, e.UserID,
	})
}

func (c *SheetsClient) AppendShared(ctx context.Context, e core.Expense) (string, error) {
	return c.appendRow(ctx, c.ledgerSheet, []any{
		e.Date.Format("2006-01-02"), "expense", e.GroupID, e.PaidByID,
		e.Amount.Units(), e.Description, e.Category, string(e.SplitType),
	})
}

func (c *SheetsClient) AppendSettlement(ctx context.Context, s core.Settlement) (string, error) {
	return c.appendRow(ctx, c.ledgerSheet, []any{
		s.CreatedAt.Format("2006-01-02"), "settlement", s.GroupID, s.FromUserID,
		s.Amount.Units(), "settled to " + s.ToUserID, "", "",
	})
}

// appendRow finds the next empty row in the sheet and writes values there,
// returning "Sheet!A<row>" as the reference.
func (c *SheetsClient) appendRow(ctx context.Context, sheet string, values []any) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get sheet dimensions for %s: %w", sheet, err)
	}
	nextRow := len(resp.Values) + 1

	dataRange := fmt.Sprintf("%s!A%d", sheet, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update sheet %s: %w", sheet, err)
	}

	return fmt.Sprintf("%s!A%d", sheet, nextRow), nil
}
