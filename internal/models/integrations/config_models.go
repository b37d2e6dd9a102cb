package integrations

import "time"

// Defines the expected configuration structure for a Notion destination.
type NotionIntegrationConfig struct {
	DatabaseID string `json:"database_id"` // The Notion database records are pushed into.
}

// Defines the expected configuration structure for a Google Sheets destination.
// SpreadsheetID may be empty: the push creates a spreadsheet on first use and
// writes the generated ID back here.
type SheetsIntegrationConfig struct {
	SpreadsheetID  string `json:"spreadsheet_id,omitempty"`
	SheetName      string `json:"sheet_name,omitempty"` // Defaults to the first sheet.
	IncludeHeaders bool   `json:"include_headers,omitempty"`
}

// Defines the expected structure for Notion API credentials (stored encrypted).
type NotionCredentials struct {
	APIKey string `json:"api_key"` // Internal integration secret (ntn_.../secret_...)
}

// Defines the expected structure for Google Sheets OAuth credentials (stored
// encrypted). The access token is short-lived; the refresh token is what we
// actually depend on between pushes.
type SheetsCredentials struct {
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenExpiry  time.Time `json:"token_expiry,omitempty"`
}

// Represents the standard structure for testing an integration's connection.
type TestConnectionResult struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"` // e.g. {"bot_name": "..."}
}

// Helper type for decrypted credentials map
type DecryptedCredentials map[string]string
