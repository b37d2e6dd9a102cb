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
)

const pushColumns = `id, organization_id, integration_id, document_id, success, external_id, external_url, error_code, error_message, pushed_at`

func scanPushRecord(row pgx.Row) (*db_models.PushRecord, error) {
	rec := &db_models.PushRecord{}
	err := row.Scan(
		&rec.ID,
		&rec.OrganizationID,
		&rec.IntegrationID,
		&rec.DocumentID,
		&rec.Success,
		&rec.ExternalID,
		&rec.ExternalURL,
		&rec.ErrorCode,
		&rec.ErrorMessage,
		&rec.PushedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// CreatePushRecord appends an immutable record of a push attempt's outcome.
// Push history is append-only; there is deliberately no update method.
func (s *PostgresStore) CreatePushRecord(ctx context.Context, arg store.CreatePushRecordParams) (*db_models.PushRecord, error) {
	query := `
		INSERT INTO push_records (id, organization_id, integration_id, document_id, success, external_id, external_url, error_code, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + pushColumns

	rec, err := scanPushRecord(s.db.QueryRow(ctx, query,
		arg.ID,
		arg.OrganizationID,
		arg.IntegrationID,
		arg.DocumentID,
		arg.Success,
		arg.ExternalID,
		arg.ExternalURL,
		arg.ErrorCode,
		arg.ErrorMessage,
	))
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreatePushRecord: Failed insert for IntegrationID %s, DocumentID %s: %v", arg.IntegrationID, arg.DocumentID, err)
		return nil, fmt.Errorf("database error creating push record: %w", err)
	}
	return rec, nil
}

// GetPushRecordByID retrieves a single push record scoped to the org.
func (s *PostgresStore) GetPushRecordByID(ctx context.Context, id uuid.UUID, orgID uuid.UUID) (*db_models.PushRecord, error) {
	query := `
		SELECT ` + pushColumns + `
		FROM push_records
		WHERE id = $1 AND organization_id = $2`

	rec, err := scanPushRecord(s.db.QueryRow(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetPushRecordByID: Failed query for ID %s, OrgID %s: %v", id, orgID, err)
		return nil, fmt.Errorf("database error fetching push record: %w", err)
	}
	return rec, nil
}

// ListPushRecordsByOrg lists push history newest-first, optionally filtered to
// one integration.
func (s *PostgresStore) ListPushRecordsByOrg(ctx context.Context, orgID uuid.UUID, integrationID *uuid.UUID) ([]db_models.PushRecord, error) {
	query := `
		SELECT ` + pushColumns + `
		FROM push_records
		WHERE organization_id = $1`

	args := []interface{}{orgID}
	if integrationID != nil {
		query += " AND integration_id = $2"
		args = append(args, *integrationID)
	}
	query += " ORDER BY pushed_at DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListPushRecordsByOrg: Failed query for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("database error listing push records: %w", err)
	}
	defer rows.Close()

	records := []db_models.PushRecord{}
	for rows.Next() {
		rec, err := scanPushRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("database error scanning push record: %w", err)
		}
		records = append(records, *rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("database error after listing push records: %w", err)
	}
	return records, nil
}
