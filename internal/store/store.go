package store

import (
	"context"
	"errors"

	db_models "docupush-backend/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// CreateUserIntegrationParams contains parameters for connecting a destination.
type CreateUserIntegrationParams struct {
	ID                  uuid.UUID
	OrganizationID      uuid.UUID
	ServiceType         string
	Name                string
	EncryptedCredential string // Vault payload JSON ({"encrypted","iv","salt"})
	Configuration       []byte // JSON marshaled bytes
	Status              string
}

// CreateDocumentParams contains parameters for registering a document.
type CreateDocumentParams struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Status         string
}

// CreateExtractedFieldParams is one field in a batch posted by the extraction
// pipeline.
type CreateExtractedFieldParams struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	FieldKey   string
	FieldValue string
	Confidence float64
	DataType   string
}

// CreatePushRecordParams contains parameters for appending to the push
// history. Push records are append-only; there is deliberately no update.
type CreatePushRecordParams struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	IntegrationID  uuid.UUID
	DocumentID     uuid.UUID
	Success        bool
	ExternalID     *string
	ExternalURL    *string
	ErrorCode      *string
	ErrorMessage   *string
}

// Store defines the interface for database operations.
// This allows for mocking in tests and potential DB backend switching.
type Store interface {
	// User operations
	GetUserByEmail(ctx context.Context, email string) (*db_models.User, error)
	CreateUser(ctx context.Context, user *db_models.User) error

	// Organization operations
	CreateOrganization(ctx context.Context, org *db_models.Organization) error

	// Document operations
	CreateDocument(ctx context.Context, arg CreateDocumentParams) (*db_models.Document, error)
	GetDocumentByID(ctx context.Context, id uuid.UUID, orgID uuid.UUID) (*db_models.Document, error)
	ListDocumentsByOrg(ctx context.Context, orgID uuid.UUID) ([]db_models.Document, error)
	UpdateDocumentStatus(ctx context.Context, id uuid.UUID, orgID uuid.UUID, status string) error
	DeleteDocument(ctx context.Context, id uuid.UUID, orgID uuid.UUID) error

	// Extracted field operations
	CreateExtractedFields(ctx context.Context, documentID uuid.UUID, fields []CreateExtractedFieldParams) error
	ListExtractedFieldsByDocument(ctx context.Context, documentID uuid.UUID) ([]db_models.ExtractedField, error)
	UpdateExtractedFieldValue(ctx context.Context, id uuid.UUID, documentID uuid.UUID, value string) (*db_models.ExtractedField, error)

	// Integration operations
	CreateUserIntegration(ctx context.Context, arg CreateUserIntegrationParams) (*db_models.UserIntegration, error)
	GetUserIntegrationByID(ctx context.Context, id uuid.UUID, orgID uuid.UUID) (*db_models.UserIntegration, error)
	ListUserIntegrationsByOrg(ctx context.Context, orgID uuid.UUID, serviceType *string) ([]db_models.UserIntegration, error)
	UpdateUserIntegrationCredential(ctx context.Context, id uuid.UUID, orgID uuid.UUID, encryptedCredential string) error
	UpdateUserIntegrationConfiguration(ctx context.Context, id uuid.UUID, orgID uuid.UUID, configuration []byte) error
	UpdateUserIntegrationStatus(ctx context.Context, id uuid.UUID, orgID uuid.UUID, status string) error
	DeleteUserIntegration(ctx context.Context, id uuid.UUID, orgID uuid.UUID) error

	// Push history operations (append-only)
	CreatePushRecord(ctx context.Context, arg CreatePushRecordParams) (*db_models.PushRecord, error)
	GetPushRecordByID(ctx context.Context, id uuid.UUID, orgID uuid.UUID) (*db_models.PushRecord, error)
	ListPushRecordsByOrg(ctx context.Context, orgID uuid.UUID, integrationID *uuid.UUID) ([]db_models.PushRecord, error)
}
