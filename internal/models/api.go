package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// --- Request Structs ---

// SignupRequest defines the expected body for the signup endpoint.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest defines the expected body for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// --- Response Structs ---

// UserResponse defines the user information returned by the API.
// Avoid returning sensitive info like HashedPassword.
type UserResponse struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	OrganizationID uuid.UUID `json:"organization_id"`
}

// AuthResponse defines the response body for successful authentication.
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// --- Service Types ---

// ServiceType defines the types of push destinations we can integrate with.
type ServiceType string

const (
	ServiceTypeNotion       ServiceType = "NOTION"
	ServiceTypeGoogleSheets ServiceType = "GOOGLE_SHEETS"
)

// --- Document DTOs ---

// CreateDocumentRequest defines the body for registering a document.
type CreateDocumentRequest struct {
	Name string `json:"name"`
}

// DocumentResponse defines the data returned for a document.
type DocumentResponse struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ExtractedFieldInput is one field as posted by the extraction pipeline.
type ExtractedFieldInput struct {
	FieldKey   string  `json:"field_key"`
	FieldValue string  `json:"field_value"`
	Confidence float64 `json:"confidence"`
	DataType   string  `json:"data_type,omitempty"`
}

// IngestFieldsRequest defines the body for posting extracted fields to a document.
type IngestFieldsRequest struct {
	Fields []ExtractedFieldInput `json:"fields"`
}

// ExtractedFieldResponse defines the data returned for an extracted field.
type ExtractedFieldResponse struct {
	ID          uuid.UUID `json:"id"`
	DocumentID  uuid.UUID `json:"document_id"`
	FieldKey    string    `json:"field_key"`
	FieldValue  string    `json:"field_value"`
	Confidence  float64   `json:"confidence"`
	IsCorrected bool      `json:"is_corrected"`
	DataType    string    `json:"data_type,omitempty"`
}

// CorrectFieldRequest defines the body for a user correction of a field value.
type CorrectFieldRequest struct {
	FieldValue string `json:"field_value"`
}

// --- Integration DTOs ---

// ConnectIntegrationRequest defines the body for connecting a new destination.
// The Credentials map contains the raw secrets and is ONLY used for this
// request. It is encrypted by the vault before storage and never returned.
type ConnectIntegrationRequest struct {
	ServiceType   ServiceType       `json:"service_type"` // "NOTION", "GOOGLE_SHEETS"
	Name          *string           `json:"name,omitempty"`
	Credentials   map[string]string `json:"credentials"`
	Configuration json.RawMessage   `json:"configuration,omitempty"`
}

// UpdateCredentialRequest defines the body for rotating an integration's secret.
type UpdateCredentialRequest struct {
	Credentials map[string]string `json:"credentials"`
}

// IntegrationResponse defines the data returned for an integration.
// It EXCLUDES the encrypted or raw secrets.
type IntegrationResponse struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	ServiceType    ServiceType     `json:"service_type"`
	Name           string          `json:"name"`
	Configuration  json.RawMessage `json:"configuration,omitempty"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TestIntegrationResponse defines the response for testing an integration's
// stored credentials against the live destination.
type TestIntegrationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Push DTOs ---

// PushRequest defines the body for pushing a document's extracted fields to a
// destination. Mapping is optional; when absent the field mapper decides.
type PushRequest struct {
	IntegrationID uuid.UUID         `json:"integration_id"`
	DocumentID    uuid.UUID         `json:"document_id"`
	Mapping       map[string]string `json:"mapping,omitempty"`
}

// PushErrorDetail carries the classified error of a failed push. Shape
// mirrors the classifier's IntegrationError so the UI can render suggestions
// directly.
type PushErrorDetail struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
	Retryable   bool     `json:"retryable"`
}

// PushResultResponse is the outcome of one push attempt, success or not.
type PushResultResponse struct {
	ID            uuid.UUID        `json:"id"`
	Success       bool             `json:"success"`
	IntegrationID uuid.UUID        `json:"integration_id"`
	DocumentID    uuid.UUID        `json:"document_id"`
	ExternalID    *string          `json:"external_id,omitempty"`
	ExternalURL   *string          `json:"external_url,omitempty"`
	Error         *PushErrorDetail `json:"error,omitempty"`
	PushedAt      time.Time        `json:"pushed_at"`
}

// ListPushesResponse defines the response structure for push history.
type ListPushesResponse struct {
	Pushes []PushResultResponse `json:"pushes"`
}
