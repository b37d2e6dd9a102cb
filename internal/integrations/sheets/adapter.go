package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"docupush-backend/internal/integrations"
	"docupush-backend/internal/models"
	integration_models "docupush-backend/internal/models/integrations"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const spreadsheetScope = "https://www.googleapis.com/auth/spreadsheets"

// Spreadsheet is a spreadsheet's shape as we consume it.
type Spreadsheet struct {
	ID     string
	Name   string
	URL    string
	Sheets []Sheet
}

// Sheet is one tab of a spreadsheet.
type Sheet struct {
	ID          int64
	Title       string
	RowCount    int64
	ColumnCount int64
}

// AppendResult is the destination's acknowledgement of an append.
type AppendResult struct {
	UpdatedRange string
	UpdatedRows  int64
	UpdatedCells int64
}

// PushOptions configures a tabular push.
type PushOptions struct {
	SpreadsheetID  string // empty: auto-provision a new spreadsheet
	SheetName      string // empty: first sheet
	DocumentName   string // used when naming an auto-provisioned spreadsheet
	IncludeHeaders bool
}

// PushOutcome reports where the row landed, including whether a spreadsheet
// had to be created on the fly (callers persist the new ID).
type PushOutcome struct {
	Spreadsheet        *Spreadsheet
	CreatedSpreadsheet bool
	UpdatedRange       string
}

// Adapter talks to the Google Sheets API for one decrypted OAuth credential.
// Built per push; the oauth2 token source refreshes an expired access token
// transparently (exactly one refresh grant, cached for the adapter's
// lifetime), so an expired token never fails the push outright.
type Adapter struct {
	svc *sheets.Service
}

func NewAdapter(ctx context.Context, creds integration_models.SheetsCredentials) (*Adapter, error) {
	if creds.RefreshToken == "" && creds.AccessToken == "" {
		return nil, errors.New("sheets credentials missing both access and refresh token")
	}

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{spreadsheetScope},
	}
	token := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		Expiry:       creds.TokenExpiry,
	}
	if token.Expiry.IsZero() {
		// Unknown expiry: treat the access token as stale so the first call
		// goes through a refresh instead of failing on a dead token.
		token.Expiry = time.Unix(1, 0)
	}

	svc, err := sheets.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Adapter{svc: svc}, nil
}

// GetSpreadsheet fetches a spreadsheet with its constituent sheets.
func (a *Adapter) GetSpreadsheet(ctx context.Context, spreadsheetID string) (*Spreadsheet, error) {
	ss, err := a.svc.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, integrations.Classify(integrations.ServiceSheets, err)
	}
	return fromAPISpreadsheet(ss), nil
}

// CreateSpreadsheet creates a new spreadsheet with a single default sheet.
func (a *Adapter) CreateSpreadsheet(ctx context.Context, title string) (*Spreadsheet, error) {
	ss, err := a.svc.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: title},
	}).Context(ctx).Do()
	if err != nil {
		return nil, integrations.Classify(integrations.ServiceSheets, err)
	}
	return fromAPISpreadsheet(ss), nil
}

// AppendRow appends rows of raw cell values after the last data row of the
// given range.
func (a *Adapter) AppendRow(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) (*AppendResult, error) {
	resp, err := a.svc.Spreadsheets.Values.
		Append(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, integrations.Classify(integrations.ServiceSheets, err)
	}
	result := &AppendResult{}
	if resp.Updates != nil {
		result.UpdatedRange = resp.Updates.UpdatedRange
		result.UpdatedRows = resp.Updates.UpdatedRows
		result.UpdatedCells = resp.Updates.UpdatedCells
	}
	return result, nil
}

// PushExtractedData writes one row of extracted values. With no configured
// spreadsheet it provisions one named after the document; sheets have no
// per-cell types, so values go in as raw strings and only headers get
// formatting (this is what separates the tabular path from the typed one).
func (a *Adapter) PushExtractedData(ctx context.Context, fields []models.ExtractedField, mapping map[string]string, opts PushOptions) (*PushOutcome, error) {
	outcome := &PushOutcome{}

	if opts.SpreadsheetID == "" {
		name := opts.DocumentName
		if name == "" {
			name = "Extracted Data"
		}
		title := fmt.Sprintf("%s - %s", name, time.Now().UTC().Format("2006-01-02"))
		created, err := a.CreateSpreadsheet(ctx, title)
		if err != nil {
			return nil, err
		}
		log.Printf("[SheetsAdapter] Auto-provisioned spreadsheet '%s' (%s)", title, created.ID)
		outcome.Spreadsheet = created
		outcome.CreatedSpreadsheet = true
	} else {
		ss, err := a.GetSpreadsheet(ctx, opts.SpreadsheetID)
		if err != nil {
			return nil, err
		}
		outcome.Spreadsheet = ss
	}

	sheet, err := resolveSheet(outcome.Spreadsheet, opts.SheetName)
	if err != nil {
		return nil, err
	}

	headers, values := BuildRow(fields, mapping)

	sheetEmpty := outcome.CreatedSpreadsheet
	if opts.IncludeHeaders && !sheetEmpty {
		sheetEmpty, err = a.sheetIsEmpty(ctx, outcome.Spreadsheet.ID, sheet.Title)
		if err != nil {
			return nil, err
		}
	}
	rows := PlanAppend(headers, values, opts.IncludeHeaders, sheetEmpty)

	appendRange := fmt.Sprintf("'%s'!A1", sheet.Title)
	result, err := a.AppendRow(ctx, outcome.Spreadsheet.ID, appendRange, rows)
	if err != nil {
		return nil, err
	}
	outcome.UpdatedRange = result.UpdatedRange
	return outcome, nil
}

// sheetIsEmpty reports whether the sheet has no data at all (first write gets
// a header row).
func (a *Adapter) sheetIsEmpty(ctx context.Context, spreadsheetID, sheetTitle string) (bool, error) {
	resp, err := a.svc.Spreadsheets.Values.
		Get(spreadsheetID, fmt.Sprintf("'%s'!A1:A1", sheetTitle)).
		Context(ctx).
		Do()
	if err != nil {
		return false, integrations.Classify(integrations.ServiceSheets, err)
	}
	return len(resp.Values) == 0, nil
}

func resolveSheet(ss *Spreadsheet, name string) (*Sheet, error) {
	if len(ss.Sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet %s has no sheets", ss.ID)
	}
	if name == "" {
		return &ss.Sheets[0], nil
	}
	for i := range ss.Sheets {
		if ss.Sheets[i].Title == name {
			return &ss.Sheets[i], nil
		}
	}
	return nil, fmt.Errorf("sheet '%s' not found in spreadsheet %s", name, ss.ID)
}

func fromAPISpreadsheet(ss *sheets.Spreadsheet) *Spreadsheet {
	out := &Spreadsheet{
		ID:  ss.SpreadsheetId,
		URL: ss.SpreadsheetUrl,
	}
	if ss.Properties != nil {
		out.Name = ss.Properties.Title
	}
	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		sheet := Sheet{
			ID:    sh.Properties.SheetId,
			Title: sh.Properties.Title,
		}
		if grid := sh.Properties.GridProperties; grid != nil {
			sheet.RowCount = grid.RowCount
			sheet.ColumnCount = grid.ColumnCount
		}
		out.Sheets = append(out.Sheets, sheet)
	}
	return out
}

// --- Registry integration ---

// Ensure Integration implements the registry interface.
var _ integrations.Integration = (*Integration)(nil)

// Integration handles Google Sheets registry logic.
type Integration struct{}

func NewIntegration() *Integration {
	return &Integration{}
}

// ValidateConfig checks the Sheets configuration. An empty spreadsheet_id is
// allowed: the first push provisions one.
func (g *Integration) ValidateConfig(configJSON json.RawMessage) error {
	if len(configJSON) == 0 || string(configJSON) == "null" {
		return nil
	}
	var config integration_models.SheetsIntegrationConfig
	if err := json.Unmarshal(configJSON, &config); err != nil {
		return fmt.Errorf("invalid JSON format for Google Sheets configuration: %w", err)
	}
	return nil
}

// TestConnection verifies the OAuth credential by exchanging it for a live
// access token (which exercises the refresh grant for expired tokens).
func (g *Integration) TestConnection(ctx context.Context, decryptedCreds integration_models.DecryptedCredentials) (*integration_models.TestConnectionResult, error) {
	creds := CredentialsFromMap(decryptedCreds)
	if creds.RefreshToken == "" && creds.AccessToken == "" {
		return &integration_models.TestConnectionResult{
			Success: false,
			Message: "Missing 'refresh_token' and 'access_token' in Google Sheets credentials",
		}, nil
	}

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{spreadsheetScope},
	}
	token := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		Expiry:       time.Unix(1, 0), // force a live exchange
	}

	fresh, err := conf.TokenSource(ctx, token).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return &integration_models.TestConnectionResult{
				Success: false,
				Message: fmt.Sprintf("Google OAuth error: %s", retrieveErr.ErrorCode),
			}, nil
		}
		return nil, fmt.Errorf("failed during Google Sheets connection test: %w", err)
	}

	return &integration_models.TestConnectionResult{
		Success: true,
		Message: "Successfully refreshed Google Sheets access token.",
		Details: map[string]interface{}{"token_expiry": fresh.Expiry},
	}, nil
}

// CredentialSchema returns an empty SheetsCredentials struct to define the
// expected credential keys.
func (g *Integration) CredentialSchema() interface{} {
	return integration_models.SheetsCredentials{}
}

// ConfigFields returns the declarative connection form for Google Sheets.
func (g *Integration) ConfigFields() []integrations.ConfigField {
	return []integrations.ConfigField{
		{Key: "client_id", Label: "OAuth Client ID", Type: "text", Required: true},
		{Key: "client_secret", Label: "OAuth Client Secret", Type: "token", Required: true},
		{Key: "refresh_token", Label: "Refresh Token", Type: "token", Required: true},
		{Key: "spreadsheet_id", Label: "Spreadsheet ID (optional)", Type: "text", Required: false},
	}
}

// CredentialsFromMap builds SheetsCredentials from a decrypted credentials
// map.
func CredentialsFromMap(m integration_models.DecryptedCredentials) integration_models.SheetsCredentials {
	creds := integration_models.SheetsCredentials{
		ClientID:     m["client_id"],
		ClientSecret: m["client_secret"],
		AccessToken:  m["access_token"],
		RefreshToken: m["refresh_token"],
	}
	if raw, ok := m["token_expiry"]; ok && raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			creds.TokenExpiry = t
		}
	}
	return creds
}
