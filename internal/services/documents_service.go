package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	api_models "docupush-backend/internal/models"
	db_models "docupush-backend/internal/models"
	"docupush-backend/internal/store"

	"github.com/google/uuid"
)

// Custom errors for Documents service
var (
	ErrDocumentNotFound   = errors.New("document not found")
	ErrFieldNotFound      = errors.New("extracted field not found")
	ErrDocumentValidation = errors.New("document validation failed")
	ErrFieldValidation    = errors.New("field validation failed")
)

// Document lifecycle statuses.
const (
	DocumentStatusUploaded  = "UPLOADED"
	DocumentStatusExtracted = "EXTRACTED"
)

// DocumentsService defines the interface for document and extracted-field
// operations. The PDF upload and extraction pipeline live outside this
// service; it only manages metadata and the fields the pipeline posts back.
type DocumentsService interface {
	CreateDocument(ctx context.Context, req api_models.CreateDocumentRequest, orgID uuid.UUID) (*api_models.DocumentResponse, error)
	GetDocument(ctx context.Context, id uuid.UUID, orgID uuid.UUID) (*api_models.DocumentResponse, []api_models.ExtractedFieldResponse, error)
	ListDocuments(ctx context.Context, orgID uuid.UUID) ([]api_models.DocumentResponse, error)
	DeleteDocument(ctx context.Context, id uuid.UUID, orgID uuid.UUID) error
	IngestFields(ctx context.Context, documentID uuid.UUID, orgID uuid.UUID, req api_models.IngestFieldsRequest) ([]api_models.ExtractedFieldResponse, error)
	CorrectField(ctx context.Context, documentID uuid.UUID, fieldID uuid.UUID, orgID uuid.UUID, req api_models.CorrectFieldRequest) (*api_models.ExtractedFieldResponse, error)
}

type documentsService struct {
	store store.Store
}

// NewDocumentsService creates a new DocumentsService.
func NewDocumentsService(s store.Store) DocumentsService {
	return &documentsService{store: s}
}

// --- Helper Functions ---

func mapDbDocumentToResponse(doc *db_models.Document) *api_models.DocumentResponse {
	return &api_models.DocumentResponse{
		ID:             doc.ID,
		OrganizationID: doc.OrganizationID,
		Name:           doc.Name,
		Status:         doc.Status,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
}

func mapDbFieldToResponse(field *db_models.ExtractedField) *api_models.ExtractedFieldResponse {
	return &api_models.ExtractedFieldResponse{
		ID:          field.ID,
		DocumentID:  field.DocumentID,
		FieldKey:    field.FieldKey,
		FieldValue:  field.FieldValue,
		Confidence:  field.Confidence,
		IsCorrected: field.IsCorrected,
		DataType:    field.DataType,
	}
}

// CreateDocument registers a document for the organization.
func (s *documentsService) CreateDocument(ctx context.Context, req api_models.CreateDocumentRequest, orgID uuid.UUID) (*api_models.DocumentResponse, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: document name cannot be empty", ErrDocumentValidation)
	}

	doc, err := s.store.CreateDocument(ctx, store.CreateDocumentParams{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           req.Name,
		Status:         DocumentStatusUploaded,
	})
	if err != nil {
		log.Printf("ERROR [DocService] CreateDocument: Store call failed for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	log.Printf("[DocService] CreateDocument: Created document %s ('%s') for OrgID %s", doc.ID, doc.Name, orgID)
	return mapDbDocumentToResponse(doc), nil
}

// GetDocument retrieves a document along with its extracted fields.
func (s *documentsService) GetDocument(ctx context.Context, id uuid.UUID, orgID uuid.UUID) (*api_models.DocumentResponse, []api_models.ExtractedFieldResponse, error) {
	doc, err := s.store.GetDocumentByID(ctx, id, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrDocumentNotFound
		}
		log.Printf("ERROR [DocService] GetDocument: Store call failed for ID %s, OrgID %s: %v", id, orgID, err)
		return nil, nil, fmt.Errorf("failed to retrieve document: %w", err)
	}

	dbFields, err := s.store.ListExtractedFieldsByDocument(ctx, doc.ID)
	if err != nil {
		log.Printf("ERROR [DocService] GetDocument: Failed listing fields for DocID %s: %v", doc.ID, err)
		return nil, nil, fmt.Errorf("failed to list extracted fields: %w", err)
	}

	fields := make([]api_models.ExtractedFieldResponse, len(dbFields))
	for i := range dbFields {
		fields[i] = *mapDbFieldToResponse(&dbFields[i])
	}
	return mapDbDocumentToResponse(doc), fields, nil
}

// ListDocuments retrieves all documents for the organization.
func (s *documentsService) ListDocuments(ctx context.Context, orgID uuid.UUID) ([]api_models.DocumentResponse, error) {
	dbDocs, err := s.store.ListDocumentsByOrg(ctx, orgID)
	if err != nil {
		log.Printf("ERROR [DocService] ListDocuments: Store call failed for OrgID %s: %v", orgID, err)
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	resp := make([]api_models.DocumentResponse, len(dbDocs))
	for i := range dbDocs {
		resp[i] = *mapDbDocumentToResponse(&dbDocs[i])
	}
	return resp, nil
}

// DeleteDocument removes a document and (via FK cascade) its extracted fields.
func (s *documentsService) DeleteDocument(ctx context.Context, id uuid.UUID, orgID uuid.UUID) error {
	err := s.store.DeleteDocument(ctx, id, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrDocumentNotFound
		}
		log.Printf("ERROR [DocService] DeleteDocument: Store call failed for ID %s, OrgID %s: %v", id, orgID, err)
		return fmt.Errorf("failed to delete document: %w", err)
	}
	log.Printf("[DocService] DeleteDocument: Deleted document %s for OrgID %s", id, orgID)
	return nil
}

// IngestFields stores a batch of fields posted by the extraction pipeline and
// marks the document as extracted. The batch is all-or-nothing.
func (s *documentsService) IngestFields(ctx context.Context, documentID uuid.UUID, orgID uuid.UUID, req api_models.IngestFieldsRequest) ([]api_models.ExtractedFieldResponse, error) {
	if len(req.Fields) == 0 {
		return nil, fmt.Errorf("%w: fields batch cannot be empty", ErrFieldValidation)
	}

	// Verify the document exists and belongs to the org before writing fields.
	doc, err := s.store.GetDocumentByID(ctx, documentID, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		log.Printf("ERROR [DocService] IngestFields: Failed document lookup for ID %s, OrgID %s: %v", documentID, orgID, err)
		return nil, fmt.Errorf("failed to retrieve document: %w", err)
	}

	params := make([]store.CreateExtractedFieldParams, len(req.Fields))
	for i, f := range req.Fields {
		if f.FieldKey == "" {
			return nil, fmt.Errorf("%w: field_key cannot be empty (index %d)", ErrFieldValidation, i)
		}
		if f.Confidence < 0 || f.Confidence > 1 {
			return nil, fmt.Errorf("%w: confidence must be between 0 and 1 (field '%s')", ErrFieldValidation, f.FieldKey)
		}
		params[i] = store.CreateExtractedFieldParams{
			ID:         uuid.New(),
			DocumentID: doc.ID,
			FieldKey:   f.FieldKey,
			FieldValue: f.FieldValue,
			Confidence: f.Confidence,
			DataType:   f.DataType,
		}
	}

	if err := s.store.CreateExtractedFields(ctx, doc.ID, params); err != nil {
		log.Printf("ERROR [DocService] IngestFields: Batch insert failed for DocID %s: %v", doc.ID, err)
		return nil, fmt.Errorf("failed to store extracted fields: %w", err)
	}

	if err := s.store.UpdateDocumentStatus(ctx, doc.ID, orgID, DocumentStatusExtracted); err != nil {
		// Fields are stored; a failed status flip is not worth failing the request.
		log.Printf("WARN [DocService] IngestFields: Failed to update status for DocID %s: %v", doc.ID, err)
	}

	dbFields, err := s.store.ListExtractedFieldsByDocument(ctx, doc.ID)
	if err != nil {
		log.Printf("ERROR [DocService] IngestFields: Failed re-listing fields for DocID %s: %v", doc.ID, err)
		return nil, fmt.Errorf("failed to list extracted fields: %w", err)
	}

	resp := make([]api_models.ExtractedFieldResponse, len(dbFields))
	for i := range dbFields {
		resp[i] = *mapDbFieldToResponse(&dbFields[i])
	}
	log.Printf("[DocService] IngestFields: Stored %d fields for DocID %s", len(params), doc.ID)
	return resp, nil
}

// CorrectField applies a user correction to one extracted field value.
func (s *documentsService) CorrectField(ctx context.Context, documentID uuid.UUID, fieldID uuid.UUID, orgID uuid.UUID, req api_models.CorrectFieldRequest) (*api_models.ExtractedFieldResponse, error) {
	// Scope check: the field update itself is keyed by document, so make sure
	// the document belongs to the caller's org first.
	if _, err := s.store.GetDocumentByID(ctx, documentID, orgID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		log.Printf("ERROR [DocService] CorrectField: Failed document lookup for ID %s, OrgID %s: %v", documentID, orgID, err)
		return nil, fmt.Errorf("failed to retrieve document: %w", err)
	}

	field, err := s.store.UpdateExtractedFieldValue(ctx, fieldID, documentID, req.FieldValue)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrFieldNotFound
		}
		log.Printf("ERROR [DocService] CorrectField: Store call failed for FieldID %s, DocID %s: %v", fieldID, documentID, err)
		return nil, fmt.Errorf("failed to update field: %w", err)
	}

	log.Printf("[DocService] CorrectField: Corrected field %s ('%s') on DocID %s", field.ID, field.FieldKey, documentID)
	return mapDbFieldToResponse(field), nil
}
