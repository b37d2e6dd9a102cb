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

const documentColumns = `id, organization_id, name, status, created_at, updated_at`

func scanDocument(row pgx.Row) (*db_models.Document, error) {
	doc := &db_models.Document{}
	err := row.Scan(
		&doc.ID,
		&doc.OrganizationID,
		&doc.Name,
		&doc.Status,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// CreateDocument inserts a new document record.
func (s *PostgresStore) CreateDocument(ctx context.Context, arg store.CreateDocumentParams) (*db_models.Document, error) {
	query := `
		INSERT INTO documents (id, organization_id, name, status)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + documentColumns

	doc, err := scanDocument(s.db.QueryRow(ctx, query, arg.ID, arg.OrganizationID, arg.Name, arg.Status))
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateDocument: Failed insert for OrgID %s: %v", arg.OrganizationID, err)
		return nil, fmt.Errorf("database error creating document: %w", err)
	}

	log.Printf("[PostgresStore] CreateDocument: Created document %s for OrgID %s", doc.ID, doc.OrganizationID)
	return doc, nil
}

// GetDocumentByID retrieves a document ensuring it belongs to the org.
func (s *PostgresStore) GetDocumentByID(ctx context.Context, id uuid.UUID, orgID uuid.UUID) (*db_models.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE id = $1 AND organization_id = $2`

	doc, err := scanDocument(s.db.QueryRow(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetDocumentByID: Failed query for ID %s, OrgID %s: %v", id, orgID, err)
		return nil, fmt.Errorf("database error fetching document: %w", err)
	}
	return doc, nil
}

// ListDocumentsByOrg lists documents for an organization, newest first.
func (s *PostgresStore) ListDocumentsByOrg(ctx context.Context, orgID uuid.UUID) ([]db_models.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE organization_id = $1
		ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, orgID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListDocumentsByOrg: Failed query for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("database error listing documents: %w", err)
	}
	defer rows.Close()

	documents := []db_models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("database error scanning document: %w", err)
		}
		documents = append(documents, *doc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("database error after listing documents: %w", err)
	}
	return documents, nil
}

// UpdateDocumentStatus updates the processing status of a document.
func (s *PostgresStore) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, orgID uuid.UUID, status string) error {
	query := `
		UPDATE documents
		SET status = $1, updated_at = now()
		WHERE id = $2 AND organization_id = $3`

	cmdTag, err := s.db.Exec(ctx, query, status, id, orgID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] UpdateDocumentStatus: Failed exec for ID %s, OrgID %s: %v", id, orgID, err)
		return fmt.Errorf("database error updating document status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteDocument deletes a document and (via FK cascade) its extracted fields.
func (s *PostgresStore) DeleteDocument(ctx context.Context, id uuid.UUID, orgID uuid.UUID) error {
	query := `DELETE FROM documents WHERE id = $1 AND organization_id = $2`

	cmdTag, err := s.db.Exec(ctx, query, id, orgID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] DeleteDocument: Failed exec for ID %s, OrgID %s: %v", id, orgID, err)
		return fmt.Errorf("database error deleting document: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	log.Printf("[PostgresStore] DeleteDocument: Deleted document %s for OrgID %s", id, orgID)
	return nil
}

// CreateExtractedFields inserts a batch of fields for a document inside one
// transaction: the pipeline posts a document's fields as a unit.
func (s *PostgresStore) CreateExtractedFields(ctx context.Context, documentID uuid.UUID, fields []store.CreateExtractedFieldParams) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO extracted_fields (id, document_id, field_key, field_value, confidence, data_type)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, f := range fields {
		if _, err := tx.Exec(ctx, query, f.ID, documentID, f.FieldKey, f.FieldValue, f.Confidence, f.DataType); err != nil {
			log.Printf("ERROR [PostgresStore] CreateExtractedFields: Failed insert for document %s: %v", documentID, err)
			return fmt.Errorf("database error inserting extracted field: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("database error committing extracted fields: %w", err)
	}
	log.Printf("[PostgresStore] CreateExtractedFields: Inserted %d fields for document %s", len(fields), documentID)
	return nil
}

// ListExtractedFieldsByDocument returns a document's fields in insertion order.
func (s *PostgresStore) ListExtractedFieldsByDocument(ctx context.Context, documentID uuid.UUID) ([]db_models.ExtractedField, error) {
	query := `
		SELECT id, document_id, field_key, field_value, confidence, is_corrected, data_type, created_at, updated_at
		FROM extracted_fields
		WHERE document_id = $1
		ORDER BY created_at ASC, field_key ASC`

	rows, err := s.db.Query(ctx, query, documentID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListExtractedFieldsByDocument: Failed query for document %s: %v", documentID, err)
		return nil, fmt.Errorf("database error listing extracted fields: %w", err)
	}
	defer rows.Close()

	fields := []db_models.ExtractedField{}
	for rows.Next() {
		f := db_models.ExtractedField{}
		if err := rows.Scan(
			&f.ID,
			&f.DocumentID,
			&f.FieldKey,
			&f.FieldValue,
			&f.Confidence,
			&f.IsCorrected,
			&f.DataType,
			&f.CreatedAt,
			&f.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("database error scanning extracted field: %w", err)
		}
		fields = append(fields, f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("database error after listing extracted fields: %w", err)
	}
	return fields, nil
}

// UpdateExtractedFieldValue applies a user correction and marks the field as
// corrected.
func (s *PostgresStore) UpdateExtractedFieldValue(ctx context.Context, id uuid.UUID, documentID uuid.UUID, value string) (*db_models.ExtractedField, error) {
	query := `
		UPDATE extracted_fields
		SET field_value = $1, is_corrected = TRUE, updated_at = now()
		WHERE id = $2 AND document_id = $3
		RETURNING id, document_id, field_key, field_value, confidence, is_corrected, data_type, created_at, updated_at`

	f := &db_models.ExtractedField{}
	err := s.db.QueryRow(ctx, query, value, id, documentID).Scan(
		&f.ID,
		&f.DocumentID,
		&f.FieldKey,
		&f.FieldValue,
		&f.Confidence,
		&f.IsCorrected,
		&f.DataType,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] UpdateExtractedFieldValue: Failed update for field %s: %v", id, err)
		return nil, fmt.Errorf("database error updating extracted field: %w", err)
	}
	return f, nil
}
