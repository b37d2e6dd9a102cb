package services

import (
	"context"
	"encoding/json"
	"testing"

	"docupush-backend/internal/crypto"
	"docupush-backend/internal/integrations/notion"
	"docupush-backend/internal/integrations/sheets"
	api_models "docupush-backend/internal/models"
	db_models "docupush-backend/internal/models"
	integration_models "docupush-backend/internal/models/integrations"
	"docupush-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore implements the slice of store.Store the push flow touches.
// Unimplemented methods panic via the embedded nil interface.
type fakeStore struct {
	store.Store

	integrations map[uuid.UUID]*db_models.UserIntegration
	documents    map[uuid.UUID]*db_models.Document
	fields       map[uuid.UUID][]db_models.ExtractedField

	pushRecords []db_models.PushRecord

	updatedConfigID    uuid.UUID
	updatedConfigOrgID uuid.UUID
	updatedConfig      []byte
	updatedStatusID    uuid.UUID
	updatedStatusOrgID uuid.UUID
	updatedStatus      string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		integrations: make(map[uuid.UUID]*db_models.UserIntegration),
		documents:    make(map[uuid.UUID]*db_models.Document),
		fields:       make(map[uuid.UUID][]db_models.ExtractedField),
	}
}

func (f *fakeStore) GetUserIntegrationByID(ctx context.Context, id uuid.UUID, orgID uuid.UUID) (*db_models.UserIntegration, error) {
	integ, ok := f.integrations[id]
	if !ok || integ.OrganizationID != orgID {
		return nil, store.ErrNotFound
	}
	return integ, nil
}

func (f *fakeStore) GetDocumentByID(ctx context.Context, id uuid.UUID, orgID uuid.UUID) (*db_models.Document, error) {
	doc, ok := f.documents[id]
	if !ok || doc.OrganizationID != orgID {
		return nil, store.ErrNotFound
	}
	return doc, nil
}

func (f *fakeStore) ListExtractedFieldsByDocument(ctx context.Context, documentID uuid.UUID) ([]db_models.ExtractedField, error) {
	return f.fields[documentID], nil
}

func (f *fakeStore) CreatePushRecord(ctx context.Context, arg store.CreatePushRecordParams) (*db_models.PushRecord, error) {
	rec := db_models.PushRecord{
		ID:             arg.ID,
		OrganizationID: arg.OrganizationID,
		IntegrationID:  arg.IntegrationID,
		DocumentID:     arg.DocumentID,
		Success:        arg.Success,
		ExternalID:     arg.ExternalID,
		ExternalURL:    arg.ExternalURL,
		ErrorCode:      arg.ErrorCode,
		ErrorMessage:   arg.ErrorMessage,
	}
	f.pushRecords = append(f.pushRecords, rec)
	return &rec, nil
}

func (f *fakeStore) UpdateUserIntegrationConfiguration(ctx context.Context, id uuid.UUID, orgID uuid.UUID, configuration []byte) error {
	f.updatedConfigID = id
	f.updatedConfigOrgID = orgID
	f.updatedConfig = configuration
	return nil
}

func (f *fakeStore) UpdateUserIntegrationStatus(ctx context.Context, id uuid.UUID, orgID uuid.UUID, status string) error {
	f.updatedStatusID = id
	f.updatedStatusOrgID = orgID
	f.updatedStatus = status
	return nil
}

// stubNotion replays a scripted sequence of per-call errors; nil means the
// call succeeds with the configured record.
type stubNotion struct {
	calls  int
	errs   []error
	record *notion.Record
}

func (s *stubNotion) PushExtractedData(ctx context.Context, databaseID string, fields []db_models.ExtractedField, mapping map[string]string) (*notion.Record, error) {
	s.calls++
	if s.calls <= len(s.errs) && s.errs[s.calls-1] != nil {
		return nil, s.errs[s.calls-1]
	}
	return s.record, nil
}

type stubSheets struct {
	calls   int
	outcome *sheets.PushOutcome
	err     error
}

func (s *stubSheets) PushExtractedData(ctx context.Context, fields []db_models.ExtractedField, mapping map[string]string, opts sheets.PushOptions) (*sheets.PushOutcome, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.outcome, nil
}

func newTestVault(t *testing.T) *crypto.Vault {
	t.Helper()
	vault, err := crypto.NewVault("unit-test-master-key-0123456789")
	require.NoError(t, err)
	return vault
}

// seedPushFixture creates an org-scoped integration and document with one
// extracted field, returning the IDs the push request needs.
func seedPushFixture(t *testing.T, fs *fakeStore, vault *crypto.Vault, serviceType api_models.ServiceType, config string, creds map[string]string) (orgID, integrationID, documentID uuid.UUID) {
	t.Helper()

	orgID = uuid.New()
	integrationID = uuid.New()
	documentID = uuid.New()

	rawCreds, err := json.Marshal(creds)
	require.NoError(t, err)
	encrypted, err := vault.Encrypt(string(rawCreds))
	require.NoError(t, err)

	fs.integrations[integrationID] = &db_models.UserIntegration{
		ID:                  integrationID,
		OrganizationID:      orgID,
		ServiceType:         serviceType,
		Name:                "Test Destination",
		EncryptedCredential: encrypted,
		Configuration:       json.RawMessage(config),
		Status:              IntegrationStatusActive,
	}
	fs.documents[documentID] = &db_models.Document{
		ID:             documentID,
		OrganizationID: orgID,
		Name:           "invoice-001.pdf",
		Status:         DocumentStatusExtracted,
	}
	fs.fields[documentID] = []db_models.ExtractedField{
		{ID: uuid.New(), DocumentID: documentID, FieldKey: "vendor_name", FieldValue: "Acme Corp", Confidence: 0.97, DataType: "text"},
	}
	return orgID, integrationID, documentID
}

func TestPushNotionSuccess(t *testing.T) {
	fs := newFakeStore()
	vault := newTestVault(t)
	orgID, integrationID, documentID := seedPushFixture(t, fs, vault,
		api_models.ServiceTypeNotion, `{"database_id":"db-123"}`, map[string]string{"api_key": "secret_abc"})

	stub := &stubNotion{record: &notion.Record{ID: "page-1", URL: "https://notion.so/page-1"}}
	svc := &PushService{
		store: fs,
		vault: vault,
		newNotion: func(apiKey string) NotionPusher {
			assert.Equal(t, "secret_abc", apiKey)
			return stub
		},
	}

	resp, err := svc.Push(context.Background(), api_models.PushRequest{IntegrationID: integrationID, DocumentID: documentID}, orgID)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	require.NotNil(t, resp.ExternalID)
	assert.Equal(t, "page-1", *resp.ExternalID)
	require.NotNil(t, resp.ExternalURL)
	assert.Equal(t, "https://notion.so/page-1", *resp.ExternalURL)

	assert.Equal(t, 1, stub.calls)
	require.Len(t, fs.pushRecords, 1)
	assert.True(t, fs.pushRecords[0].Success)
}

func TestPushRetriesTransientFailureThenSucceeds(t *testing.T) {
	fs := newFakeStore()
	vault := newTestVault(t)
	orgID, integrationID, documentID := seedPushFixture(t, fs, vault,
		api_models.ServiceTypeNotion, `{"database_id":"db-123"}`, map[string]string{"api_key": "secret_abc"})

	stub := &stubNotion{
		errs:   []error{&notionapi.Error{Status: 503, Message: "service unavailable"}},
		record: &notion.Record{ID: "page-2", URL: "https://notion.so/page-2"},
	}
	svc := &PushService{
		store:     fs,
		vault:     vault,
		newNotion: func(string) NotionPusher { return stub },
	}

	resp, err := svc.Push(context.Background(), api_models.PushRequest{IntegrationID: integrationID, DocumentID: documentID}, orgID)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, 2, stub.calls)
	require.Len(t, fs.pushRecords, 1)
	assert.True(t, fs.pushRecords[0].Success)
}

func TestPushTerminalAuthErrorDoesNotRetry(t *testing.T) {
	fs := newFakeStore()
	vault := newTestVault(t)
	orgID, integrationID, documentID := seedPushFixture(t, fs, vault,
		api_models.ServiceTypeNotion, `{"database_id":"db-123"}`, map[string]string{"api_key": "revoked"})

	stub := &stubNotion{
		errs: []error{
			&notionapi.Error{Status: 401, Message: "API token is invalid."},
			&notionapi.Error{Status: 401, Message: "API token is invalid."},
			&notionapi.Error{Status: 401, Message: "API token is invalid."},
		},
	}
	svc := &PushService{
		store:     fs,
		vault:     vault,
		newNotion: func(string) NotionPusher { return stub },
	}

	resp, err := svc.Push(context.Background(), api_models.PushRequest{IntegrationID: integrationID, DocumentID: documentID}, orgID)
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, 1, stub.calls, "401 is terminal and must not be retried")
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOTION_UNAUTHORIZED", resp.Error.Code)
	assert.False(t, resp.Error.Retryable)
	assert.NotEmpty(t, resp.Error.Suggestions)

	require.Len(t, fs.pushRecords, 1)
	assert.False(t, fs.pushRecords[0].Success)
	require.NotNil(t, fs.pushRecords[0].ErrorCode)
	assert.Equal(t, "NOTION_UNAUTHORIZED", *fs.pushRecords[0].ErrorCode)
	assert.Equal(t, IntegrationStatusInvalid, fs.updatedStatus, "auth failure should flag the integration")
	assert.Equal(t, integrationID, fs.updatedStatusID)
	assert.Equal(t, orgID, fs.updatedStatusOrgID)
}

func TestPushSheetsAutoProvisionPersistsSpreadsheetID(t *testing.T) {
	fs := newFakeStore()
	vault := newTestVault(t)
	orgID, integrationID, documentID := seedPushFixture(t, fs, vault,
		api_models.ServiceTypeGoogleSheets, `{"include_headers":true}`,
		map[string]string{"client_id": "cid", "client_secret": "cs", "refresh_token": "rt"})

	stub := &stubSheets{
		outcome: &sheets.PushOutcome{
			Spreadsheet:        &sheets.Spreadsheet{ID: "ss-new", URL: "https://sheets.google.com/ss-new"},
			CreatedSpreadsheet: true,
			UpdatedRange:       "Sheet1!A2:C2",
		},
	}
	svc := &PushService{
		store: fs,
		vault: vault,
		newSheets: func(ctx context.Context, creds integration_models.SheetsCredentials) (SheetsPusher, error) {
			assert.Equal(t, "rt", creds.RefreshToken)
			return stub, nil
		},
	}

	resp, err := svc.Push(context.Background(), api_models.PushRequest{IntegrationID: integrationID, DocumentID: documentID}, orgID)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	require.NotNil(t, resp.ExternalID)
	assert.Equal(t, "ss-new", *resp.ExternalID)

	require.NotNil(t, fs.updatedConfig, "auto-provisioned spreadsheet ID must be written back")
	assert.Equal(t, integrationID, fs.updatedConfigID, "write-back must target the pushed integration")
	assert.Equal(t, orgID, fs.updatedConfigOrgID, "write-back must stay scoped to the owning org")
	var cfg integration_models.SheetsIntegrationConfig
	require.NoError(t, json.Unmarshal(fs.updatedConfig, &cfg))
	assert.Equal(t, "ss-new", cfg.SpreadsheetID)
	assert.True(t, cfg.IncludeHeaders, "existing configuration keys must survive the write-back")
}

func TestPushUnknownIntegration(t *testing.T) {
	fs := newFakeStore()
	vault := newTestVault(t)
	svc := &PushService{store: fs, vault: vault}

	_, err := svc.Push(context.Background(), api_models.PushRequest{IntegrationID: uuid.New(), DocumentID: uuid.New()}, uuid.New())
	assert.ErrorIs(t, err, ErrIntegrationNotFound)
}

func TestPushDocumentWithoutFields(t *testing.T) {
	fs := newFakeStore()
	vault := newTestVault(t)
	orgID, integrationID, documentID := seedPushFixture(t, fs, vault,
		api_models.ServiceTypeNotion, `{"database_id":"db-123"}`, map[string]string{"api_key": "secret_abc"})
	fs.fields[documentID] = nil

	svc := &PushService{store: fs, vault: vault}

	_, err := svc.Push(context.Background(), api_models.PushRequest{IntegrationID: integrationID, DocumentID: documentID}, orgID)
	assert.ErrorIs(t, err, ErrNoExtractedFields)
}

func TestPushMissingNotionDatabaseID(t *testing.T) {
	fs := newFakeStore()
	vault := newTestVault(t)
	orgID, integrationID, documentID := seedPushFixture(t, fs, vault,
		api_models.ServiceTypeNotion, `{}`, map[string]string{"api_key": "secret_abc"})

	svc := &PushService{store: fs, vault: vault}

	_, err := svc.Push(context.Background(), api_models.PushRequest{IntegrationID: integrationID, DocumentID: documentID}, orgID)
	assert.ErrorIs(t, err, ErrPushConfigInvalid)
}
