package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// User represents a user in the database.
type User struct {
	ID             uuid.UUID `db:"id"`
	OrganizationID uuid.UUID `db:"organization_id"`
	Email          string    `db:"email"`
	HashedPassword string    `db:"hashed_password"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Organization represents an organization or workspace in the database.
type Organization struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Document represents an uploaded PDF document. The file itself and the
// extraction pipeline live outside this service; we only track metadata and
// the extracted fields posted back to us.
type Document struct {
	ID             uuid.UUID `db:"id"`
	OrganizationID uuid.UUID `db:"organization_id"`
	Name           string    `db:"name"`
	Status         string    `db:"status"` // e.g. "UPLOADED", "EXTRACTED"
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// ExtractedField is one key/value pair produced by the extraction pipeline.
// The pipeline owns creation; after that only FieldValue/IsCorrected change,
// via user correction.
type ExtractedField struct {
	ID          uuid.UUID `db:"id"`
	DocumentID  uuid.UUID `db:"document_id"`
	FieldKey    string    `db:"field_key"`
	FieldValue  string    `db:"field_value"`
	Confidence  float64   `db:"confidence"` // 0..1
	IsCorrected bool      `db:"is_corrected"`
	DataType    string    `db:"data_type"` // e.g. "text", "number", "date"
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// UserIntegration represents a connected push destination (Notion database,
// Google Sheets spreadsheet) for an organization.
//
// EncryptedCredential holds the vault's {"encrypted","iv","salt"} JSON. Rows
// written before encryption was introduced may still hold a bare plaintext
// secret; read paths must check crypto.IsEncrypted before decrypting.
type UserIntegration struct {
	ID                  uuid.UUID       `db:"id"`
	OrganizationID      uuid.UUID       `db:"organization_id"`
	ServiceType         ServiceType     `db:"service_type"`
	Name                string          `db:"name"`
	EncryptedCredential string          `db:"encrypted_credential"`
	Configuration       json.RawMessage `db:"configuration"` // Stored as JSONB
	Status              string          `db:"status"`        // "ACTIVE", "INVALID"
	CreatedAt           time.Time       `db:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at"`
}

// PushRecord is one entry in the append-only push history. Records are
// created once per push attempt and never updated.
type PushRecord struct {
	ID             uuid.UUID `db:"id"`
	OrganizationID uuid.UUID `db:"organization_id"`
	IntegrationID  uuid.UUID `db:"integration_id"`
	DocumentID     uuid.UUID `db:"document_id"`
	Success        bool      `db:"success"`
	ExternalID     *string   `db:"external_id"`  // page ID / spreadsheet ID on success
	ExternalURL    *string   `db:"external_url"` // link to the created record, if any
	ErrorCode      *string   `db:"error_code"`
	ErrorMessage   *string   `db:"error_message"`
	PushedAt       time.Time `db:"pushed_at"`
}
