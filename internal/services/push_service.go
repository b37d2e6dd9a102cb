package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"docupush-backend/internal/crypto"
	"docupush-backend/internal/integrations"
	"docupush-backend/internal/integrations/notion"
	"docupush-backend/internal/integrations/sheets"
	api_models "docupush-backend/internal/models"
	db_models "docupush-backend/internal/models"
	integration_models "docupush-backend/internal/models/integrations"
	"docupush-backend/internal/notify"
	"docupush-backend/internal/store"

	"github.com/google/uuid"
)

// Custom errors for Push service
var (
	ErrPushNotFound      = errors.New("push record not found")
	ErrNoExtractedFields = errors.New("document has no extracted fields to push")
	ErrPushConfigInvalid = errors.New("integration configuration is invalid")
)

// NotionPusher is the slice of the Notion adapter the orchestrator needs.
// Narrow on purpose so tests can stub the destination.
type NotionPusher interface {
	PushExtractedData(ctx context.Context, databaseID string, fields []db_models.ExtractedField, mapping map[string]string) (*notion.Record, error)
}

// SheetsPusher is the slice of the Sheets adapter the orchestrator needs.
type SheetsPusher interface {
	PushExtractedData(ctx context.Context, fields []db_models.ExtractedField, mapping map[string]string, opts sheets.PushOptions) (*sheets.PushOutcome, error)
}

// PushService orchestrates one-click pushes: load, decrypt, dispatch, retry,
// record. Adapters are built per push via the factory funcs so plaintext
// credentials stay scoped to a single call (and so tests can inject stubs).
type PushService struct {
	store    store.Store
	vault    *crypto.Vault
	notifier *notify.Notifier

	newNotion func(apiKey string) NotionPusher
	newSheets func(ctx context.Context, creds integration_models.SheetsCredentials) (SheetsPusher, error)
}

// NewPushService creates a PushService wired to the real destination adapters.
func NewPushService(s store.Store, vault *crypto.Vault, notifier *notify.Notifier) *PushService {
	return &PushService{
		store:    s,
		vault:    vault,
		notifier: notifier,
		newNotion: func(apiKey string) NotionPusher {
			return notion.NewAdapter(apiKey)
		},
		newSheets: func(ctx context.Context, creds integration_models.SheetsCredentials) (SheetsPusher, error) {
			return sheets.NewAdapter(ctx, creds)
		},
	}
}

// pushAttemptResult is the destination-neutral outcome of one dispatch.
type pushAttemptResult struct {
	externalID  string
	externalURL string

	// Sheets only: a spreadsheet created on the fly, to persist back into the
	// integration's configuration.
	createdSpreadsheetID string
}

// Push runs the full push flow for one document and one integration.
//
// A logical push failure (destination said no) is NOT an error return: it is
// recorded, classified, and reported in the response's Error field so the
// caller gets the code, message and suggestions. Error returns are reserved
// for problems before the push starts (unknown IDs, invalid config).
func (s *PushService) Push(ctx context.Context, req api_models.PushRequest, orgID uuid.UUID) (*api_models.PushResultResponse, error) {
	// 1. Load the integration and document; both are scoped to the org.
	integ, err := s.store.GetUserIntegrationByID(ctx, req.IntegrationID, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrIntegrationNotFound
		}
		log.Printf("ERROR [PushService] Push: Integration lookup failed for ID %s: %v", req.IntegrationID, err)
		return nil, fmt.Errorf("failed to retrieve integration: %w", err)
	}

	doc, err := s.store.GetDocumentByID(ctx, req.DocumentID, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		log.Printf("ERROR [PushService] Push: Document lookup failed for ID %s: %v", req.DocumentID, err)
		return nil, fmt.Errorf("failed to retrieve document: %w", err)
	}

	fields, err := s.store.ListExtractedFieldsByDocument(ctx, doc.ID)
	if err != nil {
		log.Printf("ERROR [PushService] Push: Field listing failed for DocID %s: %v", doc.ID, err)
		return nil, fmt.Errorf("failed to list extracted fields: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNoExtractedFields
	}

	// 2. Validate the destination configuration up front so a broken config
	// fails fast instead of burning the retry budget.
	if err := validatePushConfig(integ); err != nil {
		return nil, err
	}

	// 3. Decrypt the stored credential. Plaintext lives only on this stack.
	creds, err := decryptStoredCredentials(s.vault, integ.EncryptedCredential)
	if err != nil {
		log.Printf("ERROR [PushService] Push: Decryption failed for IntegrationID %s: %v", integ.ID, err)
		return nil, ErrIntegrationDecryption
	}

	// 4. Dispatch with bounded retries.
	log.Printf("[PushService] Push: Starting push DocID %s -> %s integration %s", doc.ID, integ.ServiceType, integ.ID)
	result, ierr := s.pushWithRetries(ctx, integ, doc, fields, creds, req.Mapping)

	// 5. Record the outcome. History is append-only; one record per push.
	record, recErr := s.appendRecord(ctx, orgID, integ.ID, doc.ID, result, ierr)
	if recErr != nil {
		// The push itself may have succeeded; losing the record is worse than
		// returning an error for a success, so surface it.
		log.Printf("ERROR [PushService] Push: Failed to append push record for DocID %s: %v", doc.ID, recErr)
		return nil, fmt.Errorf("failed to record push outcome: %w", recErr)
	}

	// 6. Post-outcome bookkeeping. Never fails the push.
	if ierr == nil && result.createdSpreadsheetID != "" {
		s.persistSpreadsheetID(ctx, integ, orgID, result.createdSpreadsheetID)
	}
	if ierr != nil {
		if isAuthErrorCode(ierr.Code) && integ.Status == IntegrationStatusActive {
			if err := s.store.UpdateUserIntegrationStatus(ctx, integ.ID, orgID, IntegrationStatusInvalid); err != nil {
				log.Printf("WARN [PushService] Push: Failed to flag integration %s as invalid: %v", integ.ID, err)
			}
		}
		s.notifier.PushFailed(ctx, record, ierr)
	}

	return mapRecordToResponse(record, ierr), nil
}

// pushWithRetries dispatches by service type and retries transient failures
// with exponential backoff. It returns a classified error on final failure.
func (s *PushService) pushWithRetries(ctx context.Context, integ *db_models.UserIntegration, doc *db_models.Document, fields []db_models.ExtractedField, creds integration_models.DecryptedCredentials, mapping map[string]string) (*pushAttemptResult, *integrations.IntegrationError) {
	var lastErr *integrations.IntegrationError

	for attempt := 0; attempt < integrations.MaxPushAttempts; attempt++ {
		if attempt > 0 {
			delay := integrations.RetryDelay(attempt - 1)
			log.Printf("[PushService] Push: Retrying (attempt %d/%d) after %s: %s", attempt+1, integrations.MaxPushAttempts, delay, lastErr.Code)
			select {
			case <-ctx.Done():
				return nil, integrations.Classify(serviceFor(integ.ServiceType), ctx.Err())
			case <-time.After(delay):
			}
		}

		result, err := s.dispatch(ctx, integ, doc, fields, creds, mapping)
		if err == nil {
			return result, nil
		}

		lastErr = integrations.Classify(serviceFor(integ.ServiceType), err)
		log.Printf("WARN [PushService] Push: Attempt %d failed for IntegrationID %s: %s (%s)", attempt+1, integ.ID, lastErr.Code, lastErr.Message)
		if !integrations.ShouldRetry(lastErr, attempt+1) {
			break
		}
	}
	return nil, lastErr
}

// validatePushConfig checks the integration's stored configuration before
// any destination call is made.
func validatePushConfig(integ *db_models.UserIntegration) error {
	switch integ.ServiceType {
	case api_models.ServiceTypeNotion:
		var cfg integration_models.NotionIntegrationConfig
		if err := json.Unmarshal(integ.Configuration, &cfg); err != nil || cfg.DatabaseID == "" {
			return fmt.Errorf("%w: missing database_id for Notion integration", ErrPushConfigInvalid)
		}
	case api_models.ServiceTypeGoogleSheets:
		if len(integ.Configuration) > 0 {
			var cfg integration_models.SheetsIntegrationConfig
			if err := json.Unmarshal(integ.Configuration, &cfg); err != nil {
				return fmt.Errorf("%w: unreadable Sheets configuration", ErrPushConfigInvalid)
			}
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedServiceType, integ.ServiceType)
	}
	return nil
}

// dispatch runs exactly one push attempt against the destination. The
// configuration has already been validated by validatePushConfig.
func (s *PushService) dispatch(ctx context.Context, integ *db_models.UserIntegration, doc *db_models.Document, fields []db_models.ExtractedField, creds integration_models.DecryptedCredentials, mapping map[string]string) (*pushAttemptResult, error) {
	switch integ.ServiceType {
	case api_models.ServiceTypeNotion:
		var cfg integration_models.NotionIntegrationConfig
		if err := json.Unmarshal(integ.Configuration, &cfg); err != nil || cfg.DatabaseID == "" {
			return nil, fmt.Errorf("%w: missing database_id for Notion integration", ErrPushConfigInvalid)
		}
		adapter := s.newNotion(creds["api_key"])
		record, err := adapter.PushExtractedData(ctx, cfg.DatabaseID, fields, mapping)
		if err != nil {
			return nil, err
		}
		return &pushAttemptResult{externalID: record.ID, externalURL: record.URL}, nil

	case api_models.ServiceTypeGoogleSheets:
		var cfg integration_models.SheetsIntegrationConfig
		if len(integ.Configuration) > 0 {
			if err := json.Unmarshal(integ.Configuration, &cfg); err != nil {
				return nil, fmt.Errorf("%w: unreadable Sheets configuration", ErrPushConfigInvalid)
			}
		}
		adapter, err := s.newSheets(ctx, sheets.CredentialsFromMap(creds))
		if err != nil {
			return nil, err
		}
		outcome, err := adapter.PushExtractedData(ctx, fields, mapping, sheets.PushOptions{
			SpreadsheetID:  cfg.SpreadsheetID,
			SheetName:      cfg.SheetName,
			DocumentName:   doc.Name,
			IncludeHeaders: cfg.IncludeHeaders,
		})
		if err != nil {
			return nil, err
		}
		result := &pushAttemptResult{
			externalID:  outcome.Spreadsheet.ID,
			externalURL: outcome.Spreadsheet.URL,
		}
		if outcome.CreatedSpreadsheet {
			result.createdSpreadsheetID = outcome.Spreadsheet.ID
		}
		return result, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedServiceType, integ.ServiceType)
	}
}

// persistSpreadsheetID writes an auto-provisioned spreadsheet ID back into
// the integration's configuration so subsequent pushes reuse it.
func (s *PushService) persistSpreadsheetID(ctx context.Context, integ *db_models.UserIntegration, orgID uuid.UUID, spreadsheetID string) {
	var cfg integration_models.SheetsIntegrationConfig
	if len(integ.Configuration) > 0 {
		if err := json.Unmarshal(integ.Configuration, &cfg); err != nil {
			log.Printf("WARN [PushService] persistSpreadsheetID: Unreadable configuration for IntegrationID %s: %v", integ.ID, err)
		}
	}
	cfg.SpreadsheetID = spreadsheetID

	raw, err := json.Marshal(cfg)
	if err != nil {
		log.Printf("WARN [PushService] persistSpreadsheetID: Marshal failed for IntegrationID %s: %v", integ.ID, err)
		return
	}
	if err := s.store.UpdateUserIntegrationConfiguration(ctx, integ.ID, orgID, raw); err != nil {
		log.Printf("WARN [PushService] persistSpreadsheetID: Store call failed for IntegrationID %s: %v", integ.ID, err)
		return
	}
	log.Printf("[PushService] persistSpreadsheetID: Saved auto-provisioned spreadsheet %s to IntegrationID %s", spreadsheetID, integ.ID)
}

func (s *PushService) appendRecord(ctx context.Context, orgID, integrationID, documentID uuid.UUID, result *pushAttemptResult, ierr *integrations.IntegrationError) (*db_models.PushRecord, error) {
	params := store.CreatePushRecordParams{
		ID:             uuid.New(),
		OrganizationID: orgID,
		IntegrationID:  integrationID,
		DocumentID:     documentID,
		Success:        ierr == nil,
	}
	if ierr == nil {
		if result.externalID != "" {
			params.ExternalID = &result.externalID
		}
		if result.externalURL != "" {
			params.ExternalURL = &result.externalURL
		}
	} else {
		code := ierr.Code
		msg := ierr.Message
		params.ErrorCode = &code
		params.ErrorMessage = &msg
	}
	return s.store.CreatePushRecord(ctx, params)
}

// GetPush retrieves one push record for the organization.
func (s *PushService) GetPush(ctx context.Context, id uuid.UUID, orgID uuid.UUID) (*api_models.PushResultResponse, error) {
	record, err := s.store.GetPushRecordByID(ctx, id, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPushNotFound
		}
		log.Printf("ERROR [PushService] GetPush: Store call failed for ID %s, OrgID %s: %v", id, orgID, err)
		return nil, fmt.Errorf("failed to retrieve push record: %w", err)
	}
	return mapRecordToResponse(record, nil), nil
}

// ListPushes retrieves push history for the organization, newest first.
func (s *PushService) ListPushes(ctx context.Context, orgID uuid.UUID, integrationID *uuid.UUID) (*api_models.ListPushesResponse, error) {
	records, err := s.store.ListPushRecordsByOrg(ctx, orgID, integrationID)
	if err != nil {
		log.Printf("ERROR [PushService] ListPushes: Store call failed for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("failed to list push records: %w", err)
	}

	resp := &api_models.ListPushesResponse{Pushes: make([]api_models.PushResultResponse, len(records))}
	for i := range records {
		resp.Pushes[i] = *mapRecordToResponse(&records[i], nil)
	}
	return resp, nil
}

// mapRecordToResponse builds the API view of a push record. When the
// in-memory classified error is available (fresh pushes) its suggestions and
// retryability are included; records read back from history carry only the
// stored code and message.
func mapRecordToResponse(record *db_models.PushRecord, ierr *integrations.IntegrationError) *api_models.PushResultResponse {
	resp := &api_models.PushResultResponse{
		ID:            record.ID,
		Success:       record.Success,
		IntegrationID: record.IntegrationID,
		DocumentID:    record.DocumentID,
		ExternalID:    record.ExternalID,
		ExternalURL:   record.ExternalURL,
		PushedAt:      record.PushedAt,
	}
	if ierr != nil {
		resp.Error = &api_models.PushErrorDetail{
			Code:        ierr.Code,
			Message:     ierr.Message,
			Suggestions: ierr.Suggestions,
			Retryable:   ierr.Retryable,
		}
	} else if !record.Success && record.ErrorCode != nil {
		detail := &api_models.PushErrorDetail{Code: *record.ErrorCode}
		if record.ErrorMessage != nil {
			detail.Message = *record.ErrorMessage
		}
		resp.Error = detail
	}
	return resp
}

func serviceFor(serviceType api_models.ServiceType) string {
	if serviceType == api_models.ServiceTypeGoogleSheets {
		return integrations.ServiceSheets
	}
	return integrations.ServiceNotion
}

func isAuthErrorCode(code string) bool {
	switch code {
	case "NOTION_UNAUTHORIZED", "SHEETS_UNAUTHORIZED":
		return true
	}
	return false
}
