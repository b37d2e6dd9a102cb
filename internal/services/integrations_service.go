package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"docupush-backend/internal/crypto"
	"docupush-backend/internal/integrations"
	api_models "docupush-backend/internal/models"
	db_models "docupush-backend/internal/models"
	integration_models "docupush-backend/internal/models/integrations"
	"docupush-backend/internal/store"

	"github.com/google/uuid"
)

// Custom errors for Integrations service
var (
	ErrIntegrationNotFound    = errors.New("integration not found")
	ErrIntegrationValidation  = errors.New("integration validation failed")
	ErrIntegrationEncryption  = errors.New("credential encryption failed")
	ErrIntegrationDecryption  = errors.New("credential decryption failed")
	ErrIntegrationInUse       = errors.New("integration is referenced by push history and cannot be deleted")
	ErrIntegrationTestFailed  = errors.New("integration connection test failed")
	ErrUnsupportedServiceType = errors.New("unsupported service type")
)

// Integration statuses.
const (
	IntegrationStatusActive  = "ACTIVE"
	IntegrationStatusInvalid = "INVALID"
)

// IntegrationsService defines the interface for managing push destinations
// and their encrypted credentials.
type IntegrationsService interface {
	ConnectIntegration(ctx context.Context, req api_models.ConnectIntegrationRequest, orgID uuid.UUID) (*api_models.IntegrationResponse, error)
	GetIntegration(ctx context.Context, id uuid.UUID, orgID uuid.UUID) (*api_models.IntegrationResponse, error)
	ListIntegrations(ctx context.Context, orgID uuid.UUID, serviceType *string) ([]api_models.IntegrationResponse, error)
	UpdateCredential(ctx context.Context, id uuid.UUID, orgID uuid.UUID, req api_models.UpdateCredentialRequest) error
	Disconnect(ctx context.Context, id uuid.UUID, orgID uuid.UUID) error
	TestIntegration(ctx context.Context, id uuid.UUID, orgID uuid.UUID) (*api_models.TestIntegrationResponse, error)
	MigrateLegacyCredentials(ctx context.Context, orgID uuid.UUID) (int, error)
}

type integrationsService struct {
	store    store.Store
	vault    *crypto.Vault
	registry *integrations.Registry
}

// NewIntegrationsService creates a new IntegrationsService.
func NewIntegrationsService(s store.Store, vault *crypto.Vault, reg *integrations.Registry) IntegrationsService {
	return &integrationsService{
		store:    s,
		vault:    vault,
		registry: reg,
	}
}

// --- Helper Functions ---

func mapDbIntegrationToResponse(integ *db_models.UserIntegration) *api_models.IntegrationResponse {
	return &api_models.IntegrationResponse{
		ID:             integ.ID,
		OrganizationID: integ.OrganizationID,
		ServiceType:    integ.ServiceType,
		Name:           integ.Name,
		Configuration:  integ.Configuration,
		Status:         integ.Status,
		CreatedAt:      integ.CreatedAt,
		UpdatedAt:      integ.UpdatedAt,
	}
}

// decryptStoredCredentials turns the at-rest credential column back into the
// raw secrets map. Three storage generations exist:
//  1. vault payload JSON (current) -> decrypt, then unmarshal the map
//  2. plaintext JSON map (legacy)  -> unmarshal directly
//  3. bare plaintext secret (oldest legacy) -> treated as {"api_key": value}
func decryptStoredCredentials(vault *crypto.Vault, stored string) (integration_models.DecryptedCredentials, error) {
	plaintext := stored
	if crypto.IsEncrypted(stored) {
		decrypted, err := vault.Decrypt(stored)
		if err != nil {
			return nil, err
		}
		plaintext = decrypted
	}

	var creds integration_models.DecryptedCredentials
	if err := json.Unmarshal([]byte(plaintext), &creds); err == nil {
		return creds, nil
	}
	if plaintext == "" {
		return nil, errors.New("stored credential is empty")
	}
	return integration_models.DecryptedCredentials{"api_key": plaintext}, nil
}

// encryptCredentialsMap marshals the raw secrets map and seals it in the vault.
func (s *integrationsService) encryptCredentialsMap(creds map[string]string) (string, error) {
	plaintextBytes, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("failed to process credentials data: %w", err)
	}
	encrypted, err := s.vault.Encrypt(string(plaintextBytes))
	if err != nil {
		return "", err
	}
	return encrypted, nil
}

// ConnectIntegration validates, pre-save tests, encrypts, and stores a new
// push destination. The raw credentials never touch the database.
func (s *integrationsService) ConnectIntegration(ctx context.Context, req api_models.ConnectIntegrationRequest, orgID uuid.UUID) (*api_models.IntegrationResponse, error) {
	if req.ServiceType == "" {
		return nil, fmt.Errorf("%w: service type cannot be empty", ErrIntegrationValidation)
	}
	if len(req.Credentials) == 0 {
		return nil, fmt.Errorf("%w: credentials map cannot be empty", ErrIntegrationValidation)
	}

	integration, err := s.registry.Get(string(req.ServiceType))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedServiceType, req.ServiceType)
	}

	// Destination-specific config validation (e.g. Notion requires a database_id).
	if err := integration.ValidateConfig(req.Configuration); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntegrationValidation, err)
	}

	// --- Pre-Save Test ---
	// Test with the RAW, unencrypted credentials from the request so a typo'd
	// key is rejected immediately instead of stored.
	log.Printf("[IntegrationsService] ConnectIntegration: Performing pre-save test (%s) for OrgID %s", req.ServiceType, orgID)
	testResult, err := integration.TestConnection(ctx, req.Credentials)
	if err != nil {
		log.Printf("ERROR [IntegrationsService] ConnectIntegration: TestConnection system error for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("failed to test %s connection: %w", req.ServiceType, err)
	}
	if !testResult.Success {
		log.Printf("WARN [IntegrationsService] ConnectIntegration: Pre-save test failed for OrgID %s: %s", orgID, testResult.Message)
		return nil, fmt.Errorf("%w: %s", ErrIntegrationTestFailed, testResult.Message)
	}

	finalName := string(req.ServiceType)
	if req.Name != nil && *req.Name != "" {
		finalName = *req.Name
	} else if botName, ok := testResult.Details["bot_name"].(string); ok && botName != "" {
		// Notion returns the workspace integration's bot name; use it as a
		// friendlier default than the bare service type.
		finalName = botName
	}
	// --- End Pre-Save Test ---

	encrypted, err := s.encryptCredentialsMap(req.Credentials)
	if err != nil {
		log.Printf("ERROR [IntegrationsService] ConnectIntegration: Encryption failed for OrgID %s: %v", orgID, err)
		return nil, ErrIntegrationEncryption
	}

	configuration := []byte(req.Configuration)
	if len(configuration) == 0 {
		configuration = []byte("{}")
	}

	params := store.CreateUserIntegrationParams{
		ID:                  uuid.New(),
		OrganizationID:      orgID,
		ServiceType:         string(req.ServiceType),
		Name:                finalName,
		EncryptedCredential: encrypted,
		Configuration:       configuration,
		Status:              IntegrationStatusActive,
	}

	integ, err := s.store.CreateUserIntegration(ctx, params)
	if err != nil {
		log.Printf("ERROR [IntegrationsService] ConnectIntegration: Store call failed for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("failed to save integration: %w", err)
	}

	log.Printf("[IntegrationsService] ConnectIntegration: Connected %s integration %s ('%s') for OrgID %s", integ.ServiceType, integ.ID, integ.Name, orgID)
	return mapDbIntegrationToResponse(integ), nil
}

// GetIntegration retrieves an integration by ID for the specified organization.
func (s *integrationsService) GetIntegration(ctx context.Context, id uuid.UUID, orgID uuid.UUID) (*api_models.IntegrationResponse, error) {
	integ, err := s.store.GetUserIntegrationByID(ctx, id, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrIntegrationNotFound
		}
		log.Printf("ERROR [IntegrationsService] GetIntegration: Store call failed for ID %s, OrgID %s: %v", id, orgID, err)
		return nil, fmt.Errorf("failed to retrieve integration: %w", err)
	}
	return mapDbIntegrationToResponse(integ), nil
}

// ListIntegrations retrieves all integrations for the specified organization.
func (s *integrationsService) ListIntegrations(ctx context.Context, orgID uuid.UUID, serviceType *string) ([]api_models.IntegrationResponse, error) {
	dbIntegs, err := s.store.ListUserIntegrationsByOrg(ctx, orgID, serviceType)
	if err != nil {
		log.Printf("ERROR [IntegrationsService] ListIntegrations: Store call failed for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}

	resp := make([]api_models.IntegrationResponse, len(dbIntegs))
	for i := range dbIntegs {
		resp[i] = *mapDbIntegrationToResponse(&dbIntegs[i])
	}
	return resp, nil
}

// UpdateCredential rotates an integration's secret: the new raw credentials
// are pre-save tested, encrypted, and the old ciphertext is overwritten.
func (s *integrationsService) UpdateCredential(ctx context.Context, id uuid.UUID, orgID uuid.UUID, req api_models.UpdateCredentialRequest) error {
	if len(req.Credentials) == 0 {
		return fmt.Errorf("%w: credentials map cannot be empty", ErrIntegrationValidation)
	}

	integ, err := s.store.GetUserIntegrationByID(ctx, id, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrIntegrationNotFound
		}
		return fmt.Errorf("failed to retrieve integration: %w", err)
	}

	integration, err := s.registry.Get(string(integ.ServiceType))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnsupportedServiceType, integ.ServiceType)
	}

	testResult, err := integration.TestConnection(ctx, req.Credentials)
	if err != nil {
		log.Printf("ERROR [IntegrationsService] UpdateCredential: TestConnection system error for ID %s: %v", id, err)
		return fmt.Errorf("failed to test %s connection: %w", integ.ServiceType, err)
	}
	if !testResult.Success {
		return fmt.Errorf("%w: %s", ErrIntegrationTestFailed, testResult.Message)
	}

	encrypted, err := s.encryptCredentialsMap(req.Credentials)
	if err != nil {
		log.Printf("ERROR [IntegrationsService] UpdateCredential: Encryption failed for ID %s: %v", id, err)
		return ErrIntegrationEncryption
	}

	if err := s.store.UpdateUserIntegrationCredential(ctx, id, orgID, encrypted); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrIntegrationNotFound
		}
		log.Printf("ERROR [IntegrationsService] UpdateCredential: Store call failed for ID %s: %v", id, err)
		return fmt.Errorf("failed to update credential: %w", err)
	}

	// A successful rotation clears any INVALID flag from prior auth failures.
	if integ.Status != IntegrationStatusActive {
		if err := s.store.UpdateUserIntegrationStatus(ctx, id, orgID, IntegrationStatusActive); err != nil {
			log.Printf("WARN [IntegrationsService] UpdateCredential: Failed to reset status for ID %s: %v", id, err)
		}
	}

	log.Printf("[IntegrationsService] UpdateCredential: Rotated credential for integration %s (OrgID %s)", id, orgID)
	return nil
}

// Disconnect removes an integration and destroys its stored credential. Push
// history referencing the integration is kept and blocks nothing.
func (s *integrationsService) Disconnect(ctx context.Context, id uuid.UUID, orgID uuid.UUID) error {
	err := s.store.DeleteUserIntegration(ctx, id, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrIntegrationNotFound
		}
		if err.Error() == "cannot delete integration because push history references it" {
			return ErrIntegrationInUse
		}
		log.Printf("ERROR [IntegrationsService] Disconnect: Store call failed for ID %s, OrgID %s: %v", id, orgID, err)
		return fmt.Errorf("failed to delete integration: %w", err)
	}
	log.Printf("[IntegrationsService] Disconnect: Deleted integration %s for OrgID %s", id, orgID)
	return nil
}

// TestIntegration decrypts the stored credential and verifies it against the
// live destination. A failed test flips the integration to INVALID.
func (s *integrationsService) TestIntegration(ctx context.Context, id uuid.UUID, orgID uuid.UUID) (*api_models.TestIntegrationResponse, error) {
	integ, err := s.store.GetUserIntegrationByID(ctx, id, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrIntegrationNotFound
		}
		log.Printf("ERROR [IntegrationsService] TestIntegration: Store call failed for ID %s, OrgID %s: %v", id, orgID, err)
		return nil, fmt.Errorf("failed to retrieve integration: %w", err)
	}

	integration, err := s.registry.Get(string(integ.ServiceType))
	if err != nil {
		log.Printf("ERROR [IntegrationsService] TestIntegration: Registry lookup failed for type %s: %v", integ.ServiceType, err)
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedServiceType, integ.ServiceType)
	}

	creds, err := decryptStoredCredentials(s.vault, integ.EncryptedCredential)
	if err != nil {
		log.Printf("ERROR [IntegrationsService] TestIntegration: Decryption failed for ID %s: %v", id, err)
		// Surface in the response rather than a 500: the caller can fix it by
		// rotating the credential.
		return &api_models.TestIntegrationResponse{
			Success: false,
			Message: "Failed to decrypt stored credentials. Update the credential to repair this integration.",
		}, nil
	}

	testResult, err := integration.TestConnection(ctx, creds)
	if err != nil {
		log.Printf("ERROR [IntegrationsService] TestIntegration: TestConnection failed for ID %s: %v", id, err)
		return nil, fmt.Errorf("error occurred during connection test: %w", err)
	}

	if !testResult.Success && integ.Status == IntegrationStatusActive {
		if err := s.store.UpdateUserIntegrationStatus(ctx, id, orgID, IntegrationStatusInvalid); err != nil {
			log.Printf("WARN [IntegrationsService] TestIntegration: Failed to flag integration %s as invalid: %v", id, err)
		}
	}
	if testResult.Success && integ.Status != IntegrationStatusActive {
		if err := s.store.UpdateUserIntegrationStatus(ctx, id, orgID, IntegrationStatusActive); err != nil {
			log.Printf("WARN [IntegrationsService] TestIntegration: Failed to reactivate integration %s: %v", id, err)
		}
	}

	log.Printf("[IntegrationsService] TestIntegration: ID %s (%s) Success=%v", id, integ.ServiceType, testResult.Success)
	return &api_models.TestIntegrationResponse{
		Success: testResult.Success,
		Message: testResult.Message,
	}, nil
}

// MigrateLegacyCredentials re-encrypts any integration whose credential is
// still stored as plaintext. Returns the number of rows migrated.
func (s *integrationsService) MigrateLegacyCredentials(ctx context.Context, orgID uuid.UUID) (int, error) {
	integs, err := s.store.ListUserIntegrationsByOrg(ctx, orgID, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to list integrations: %w", err)
	}

	migrated := 0
	for i := range integs {
		integ := &integs[i]
		if crypto.IsEncrypted(integ.EncryptedCredential) {
			continue
		}

		// Normalize bare secrets to the JSON-map form before sealing so every
		// row decrypts to the same shape going forward.
		creds, err := decryptStoredCredentials(s.vault, integ.EncryptedCredential)
		if err != nil {
			log.Printf("WARN [IntegrationsService] MigrateLegacyCredentials: Skipping unreadable credential for ID %s: %v", integ.ID, err)
			continue
		}
		encrypted, err := s.encryptCredentialsMap(creds)
		if err != nil {
			log.Printf("ERROR [IntegrationsService] MigrateLegacyCredentials: Encryption failed for ID %s: %v", integ.ID, err)
			return migrated, ErrIntegrationEncryption
		}
		if err := s.store.UpdateUserIntegrationCredential(ctx, integ.ID, orgID, encrypted); err != nil {
			log.Printf("ERROR [IntegrationsService] MigrateLegacyCredentials: Store call failed for ID %s: %v", integ.ID, err)
			return migrated, fmt.Errorf("failed to persist migrated credential: %w", err)
		}
		migrated++
	}

	if migrated > 0 {
		log.Printf("[IntegrationsService] MigrateLegacyCredentials: Migrated %d legacy credentials for OrgID %s", migrated, orgID)
	}
	return migrated, nil
}
