package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"

	db_models "docupush-backend/internal/models"
	"docupush-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const integrationColumns = `id, organization_id, service_type, name, encrypted_credential, configuration, status, created_at, updated_at`

func scanIntegration(row pgx.Row) (*db_models.UserIntegration, error) {
	integ := &db_models.UserIntegration{}
	err := row.Scan(
		&integ.ID,
		&integ.OrganizationID,
		&integ.ServiceType,
		&integ.Name,
		&integ.EncryptedCredential,
		&integ.Configuration,
		&integ.Status,
		&integ.CreatedAt,
		&integ.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return integ, nil
}

// CreateUserIntegration inserts a connected destination with its encrypted
// credential.
func (s *PostgresStore) CreateUserIntegration(ctx context.Context, arg store.CreateUserIntegrationParams) (*db_models.UserIntegration, error) {
	query := `
		INSERT INTO user_integrations (id, organization_id, service_type, name, encrypted_credential, configuration, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + integrationColumns

	integ, err := scanIntegration(s.db.QueryRow(ctx, query,
		arg.ID,
		arg.OrganizationID,
		arg.ServiceType,
		arg.Name,
		arg.EncryptedCredential,
		arg.Configuration,
		arg.Status,
	))
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateUserIntegration: Failed insert for OrgID %s: %v", arg.OrganizationID, err)
		return nil, fmt.Errorf("database error creating integration: %w", err)
	}

	log.Printf("[PostgresStore] CreateUserIntegration: Created integration %s (%s) for OrgID %s", integ.ID, integ.ServiceType, integ.OrganizationID)
	return integ, nil
}

// GetUserIntegrationByID retrieves an integration ensuring it belongs to the org.
func (s *PostgresStore) GetUserIntegrationByID(ctx context.Context, id uuid.UUID, orgID uuid.UUID) (*db_models.UserIntegration, error) {
	query := `
		SELECT ` + integrationColumns + `
		FROM user_integrations
		WHERE id = $1 AND organization_id = $2`

	integ, err := scanIntegration(s.db.QueryRow(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetUserIntegrationByID: Failed query for ID %s, OrgID %s: %v", id, orgID, err)
		return nil, fmt.Errorf("database error fetching integration: %w", err)
	}
	return integ, nil
}

// ListUserIntegrationsByOrg lists integrations for an organization, optionally
// filtering by service type.
func (s *PostgresStore) ListUserIntegrationsByOrg(ctx context.Context, orgID uuid.UUID, serviceType *string) ([]db_models.UserIntegration, error) {
	query := `
		SELECT ` + integrationColumns + `
		FROM user_integrations
		WHERE organization_id = $1`

	args := []interface{}{orgID}
	if serviceType != nil && *serviceType != "" {
		query += " AND service_type = $2"
		args = append(args, *serviceType)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListUserIntegrationsByOrg: Failed query for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("database error listing integrations: %w", err)
	}
	defer rows.Close()

	integrations := []db_models.UserIntegration{}
	for rows.Next() {
		integ, err := scanIntegration(rows)
		if err != nil {
			return nil, fmt.Errorf("database error scanning integration: %w", err)
		}
		integrations = append(integrations, *integ)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("database error after listing integrations: %w", err)
	}
	return integrations, nil
}

// UpdateUserIntegrationCredential replaces the stored credential (key
// rotation and legacy-plaintext migration both land here).
func (s *PostgresStore) UpdateUserIntegrationCredential(ctx context.Context, id uuid.UUID, orgID uuid.UUID, encryptedCredential string) error {
	query := `
		UPDATE user_integrations
		SET encrypted_credential = $1, updated_at = now()
		WHERE id = $2 AND organization_id = $3`

	cmdTag, err := s.db.Exec(ctx, query, encryptedCredential, id, orgID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] UpdateUserIntegrationCredential: Failed exec for ID %s, OrgID %s: %v", id, orgID, err)
		return fmt.Errorf("database error updating integration credential: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	log.Printf("[PostgresStore] UpdateUserIntegrationCredential: Rotated credential for integration %s", id)
	return nil
}

// UpdateUserIntegrationConfiguration replaces the configuration JSON (for
// example to persist an auto-provisioned spreadsheet ID).
func (s *PostgresStore) UpdateUserIntegrationConfiguration(ctx context.Context, id uuid.UUID, orgID uuid.UUID, configuration []byte) error {
	query := `
		UPDATE user_integrations
		SET configuration = $1, updated_at = now()
		WHERE id = $2 AND organization_id = $3`

	cmdTag, err := s.db.Exec(ctx, query, configuration, id, orgID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] UpdateUserIntegrationConfiguration: Failed exec for ID %s, OrgID %s: %v", id, orgID, err)
		return fmt.Errorf("database error updating integration configuration: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpdateUserIntegrationStatus updates the status of an integration.
func (s *PostgresStore) UpdateUserIntegrationStatus(ctx context.Context, id uuid.UUID, orgID uuid.UUID, status string) error {
	query := `
		UPDATE user_integrations
		SET status = $1, updated_at = now()
		WHERE id = $2 AND organization_id = $3`

	cmdTag, err := s.db.Exec(ctx, query, status, id, orgID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] UpdateUserIntegrationStatus: Failed exec for ID %s, OrgID %s: %v", id, orgID, err)
		return fmt.Errorf("database error updating integration status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteUserIntegration disconnects a destination, destroying its stored
// credential.
func (s *PostgresStore) DeleteUserIntegration(ctx context.Context, id uuid.UUID, orgID uuid.UUID) error {
	query := `DELETE FROM user_integrations WHERE id = $1 AND organization_id = $2`

	cmdTag, err := s.db.Exec(ctx, query, id, orgID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
			return fmt.Errorf("cannot delete integration because push history references it")
		}
		log.Printf("ERROR [PostgresStore] DeleteUserIntegration: Failed exec for ID %s, OrgID %s: %v", id, orgID, err)
		return fmt.Errorf("database error deleting integration: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	log.Printf("[PostgresStore] DeleteUserIntegration: Deleted integration %s for OrgID %s", id, orgID)
	return nil
}
