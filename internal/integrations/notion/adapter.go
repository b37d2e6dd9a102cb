package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"docupush-backend/internal/integrations"
	"docupush-backend/internal/models"
	integration_models "docupush-backend/internal/models/integrations"

	"github.com/jomei/notionapi"
)

// Database is the schema of a Notion database as we consume it: property
// names, types and, for enumerable types, the current option lists.
type Database struct {
	ID         string
	Title      string
	URL        string
	Properties map[string]Property
}

// Property is one typed property of a Notion database. Options is populated
// only for select, status and multi_select properties.
type Property struct {
	ID      string
	Name    string
	Type    string
	Options []Option
}

// Option is one valid value of an enumerable property.
type Option struct {
	ID    string
	Name  string
	Color string
}

// Record is the external reference of a created page.
type Record struct {
	ID  string
	URL string
}

// Adapter talks to the Notion API for one decrypted credential. Instances are
// built per push and discarded, so the plaintext key lives only for the
// duration of the call.
type Adapter struct {
	client *notionapi.Client
}

func NewAdapter(apiKey string) *Adapter {
	return &Adapter{client: notionapi.NewClient(notionapi.Token(apiKey))}
}

// TestConnection performs a lightweight auth check. It never returns an
// error; any failure means false.
func (a *Adapter) TestConnection(ctx context.Context) bool {
	_, err := a.client.User.Me(ctx)
	if err != nil {
		log.Printf("WARN [NotionAdapter] TestConnection failed: %v", err)
		return false
	}
	return true
}

// GetDatabase fetches the database schema, always fresh: option lists change
// whenever a user edits the database in the Notion UI, and a stale list makes
// the destination reject the write.
func (a *Adapter) GetDatabase(ctx context.Context, databaseID string) (*Database, error) {
	db, err := a.client.Database.Get(ctx, notionapi.DatabaseID(databaseID))
	if err != nil {
		return nil, integrations.Classify(integrations.ServiceNotion, err)
	}

	out := &Database{
		ID:         databaseID,
		Title:      richTextPlain(db.Title),
		URL:        db.URL,
		Properties: make(map[string]Property, len(db.Properties)),
	}
	for name, cfg := range db.Properties {
		prop := Property{
			Name:    name,
			Type:    string(cfg.GetType()),
			Options: configOptions(cfg),
		}
		if withID, ok := cfg.(interface{ GetID() notionapi.PropertyID }); ok {
			prop.ID = string(withID.GetID())
		}
		out.Properties[name] = prop
	}
	return out, nil
}

// CreateRecord creates one page in the database with the given formatted
// properties.
func (a *Adapter) CreateRecord(ctx context.Context, databaseID string, properties notionapi.Properties) (*Record, error) {
	page, err := a.client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
	})
	if err != nil {
		return nil, integrations.Classify(integrations.ServiceNotion, err)
	}
	return &Record{ID: string(page.ID), URL: page.URL}, nil
}

// PushExtractedData is the main entry point: fetch the live schema, resolve a
// mapping (explicit entries win, the field mapper fills the rest), coerce each
// value to its property's encoding and create a single record. Fields whose
// values cannot be coerced are omitted, not fatal; only schema fetch and the
// final create can fail the push.
func (a *Adapter) PushExtractedData(ctx context.Context, databaseID string, fields []models.ExtractedField, mapping map[string]string) (*Record, error) {
	db, err := a.GetDatabase(ctx, databaseID)
	if err != nil {
		return nil, err
	}

	properties, skipped := BuildProperties(db, fields, mapping)
	if len(skipped) > 0 {
		log.Printf("[NotionAdapter] PushExtractedData: omitted fields %v for database %s", skipped, databaseID)
	}

	return a.CreateRecord(ctx, databaseID, properties)
}

func richTextPlain(parts []notionapi.RichText) string {
	var title string
	for _, part := range parts {
		title += part.PlainText
	}
	return title
}

func configOptions(cfg notionapi.PropertyConfig) []Option {
	var raw []notionapi.Option
	switch c := cfg.(type) {
	case *notionapi.SelectPropertyConfig:
		raw = c.Select.Options
	case *notionapi.MultiSelectPropertyConfig:
		raw = c.MultiSelect.Options
	case *notionapi.StatusPropertyConfig:
		raw = c.Status.Options
	default:
		return nil
	}
	options := make([]Option, len(raw))
	for i, o := range raw {
		options[i] = Option{ID: string(o.ID), Name: o.Name, Color: string(o.Color)}
	}
	return options
}

// --- Registry integration ---

// Ensure Integration implements the registry interface.
var _ integrations.Integration = (*Integration)(nil)

// Integration handles Notion-specific registry logic (config validation,
// pre-save connection tests).
type Integration struct{}

func NewIntegration() *Integration {
	return &Integration{}
}

// ValidateConfig checks that the configuration carries a database ID.
func (n *Integration) ValidateConfig(configJSON json.RawMessage) error {
	if len(configJSON) == 0 || string(configJSON) == "null" {
		return errors.New("notion configuration cannot be empty, 'database_id' is required")
	}

	var config integration_models.NotionIntegrationConfig
	if err := json.Unmarshal(configJSON, &config); err != nil {
		return fmt.Errorf("invalid JSON format for Notion configuration: %w", err)
	}
	if config.DatabaseID == "" {
		return errors.New("'database_id' is required in Notion configuration")
	}
	return nil
}

// TestConnection tests the connection to Notion using the API key.
func (n *Integration) TestConnection(ctx context.Context, decryptedCreds integration_models.DecryptedCredentials) (*integration_models.TestConnectionResult, error) {
	apiKey, ok := decryptedCreds["api_key"]
	if !ok || apiKey == "" {
		return &integration_models.TestConnectionResult{
			Success: false,
			Message: "Missing or empty 'api_key' in credentials",
		}, nil
	}

	client := notionapi.NewClient(notionapi.Token(apiKey))

	// Getting the bot's own user info is a good, low-impact test.
	botUser, err := client.User.Me(ctx)
	if err != nil {
		var notionErr *notionapi.Error
		if errors.As(err, &notionErr) {
			message := fmt.Sprintf("Notion API error (%s): %s", notionErr.Code, notionErr.Message)
			if notionErr.Status == 401 {
				message = "Notion API Error: Invalid API key (Unauthorized)."
			}
			return &integration_models.TestConnectionResult{
				Success: false,
				Message: message,
			}, nil
		}
		// Network, context deadline, etc. are system errors.
		return nil, fmt.Errorf("failed during Notion connection test: %w", err)
	}

	var botName string
	if botUser != nil && botUser.Type == notionapi.UserTypeBot && botUser.Bot != nil {
		botName = botUser.Name
	}

	return &integration_models.TestConnectionResult{
		Success: true,
		Message: fmt.Sprintf("Successfully connected to Notion and verified token for Bot: '%s'", botName),
		Details: map[string]interface{}{"bot_name": botName},
	}, nil
}

// CredentialSchema returns an empty NotionCredentials struct to define the
// expected credential keys.
func (n *Integration) CredentialSchema() interface{} {
	return integration_models.NotionCredentials{}
}

// ConfigFields returns the declarative connection form for Notion.
func (n *Integration) ConfigFields() []integrations.ConfigField {
	return []integrations.ConfigField{
		{Key: "api_key", Label: "Internal Integration Secret", Type: "token", Required: true},
		{Key: "database_id", Label: "Database ID", Type: "text", Required: true},
	}
}
