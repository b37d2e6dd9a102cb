package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	integration_models "docupush-backend/internal/models/integrations"
)

// ConfigField describes one entry of a destination's declarative
// configuration form (rendered by the UI when connecting an integration).
type ConfigField struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Type     string   `json:"type"` // text | select | url | token
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// Integration defines the standard interface for all push destinations.
type Integration interface {
	// ValidateConfig parses and validates the destination-specific
	// configuration JSON. It should return a specific validation error if the
	// config is invalid.
	ValidateConfig(configJSON json.RawMessage) error

	// TestConnection attempts to connect to the destination using the
	// provided decrypted credentials. It returns a result indicating
	// success/failure; only system-level problems surface as an error.
	TestConnection(ctx context.Context, decryptedCreds integration_models.DecryptedCredentials) (*integration_models.TestConnectionResult, error)

	// CredentialSchema returns the expected structure (as an empty struct
	// instance) for the credentials required by this destination.
	CredentialSchema() interface{}

	// ConfigFields returns the declarative field list the UI uses to gather
	// connection values (API key, database/spreadsheet ID, ...).
	ConfigFields() []ConfigField
}

// Registry holds the mapping between service types and their Integration
// implementations.
type Registry struct {
	integrations map[string]Integration
}

// NewRegistry creates a new integration registry.
func NewRegistry() *Registry {
	return &Registry{
		integrations: make(map[string]Integration),
	}
}

// Register adds an integration implementation to the registry.
func (r *Registry) Register(serviceType string, integration Integration) {
	if _, exists := r.integrations[serviceType]; exists {
		log.Printf("WARN [IntegrationRegistry] Service type '%s' is already registered. Overwriting.", serviceType)
	}
	r.integrations[serviceType] = integration
	log.Printf("[IntegrationRegistry] Registered integration for service type: %s", serviceType)
}

// Get retrieves an integration implementation from the registry by service type.
func (r *Registry) Get(serviceType string) (Integration, error) {
	integration, exists := r.integrations[serviceType]
	if !exists {
		return nil, fmt.Errorf("no integration registered for service type: %s", serviceType)
	}
	return integration, nil
}

// MustGet retrieves an integration implementation, panicking if not found.
// Useful during initialization if an integration is expected to be present.
func (r *Registry) MustGet(serviceType string) Integration {
	integration, err := r.Get(serviceType)
	if err != nil {
		panic(fmt.Sprintf("FATAL [IntegrationRegistry] %v", err))
	}
	return integration
}
