package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"docupush-backend/internal/auth"
	"docupush-backend/internal/models"
	"docupush-backend/internal/services"
	"docupush-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type DocumentsHandler struct {
	docService services.DocumentsService
}

func NewDocumentsHandler(docSvc services.DocumentsService) *DocumentsHandler {
	return &DocumentsHandler{
		docService: docSvc,
	}
}

// HandleCreateDocument handles POST /v1/documents
func (h *DocumentsHandler) HandleCreateDocument(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	var req models.CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	resp, err := h.docService.CreateDocument(r.Context(), req, orgID)
	if err != nil {
		log.Printf("ERROR [DocsHandler] HandleCreateDocument for OrgID %s: %v", orgID, err)
		if errors.Is(err, services.ErrDocumentValidation) {
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		} else {
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to create document")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// HandleListDocuments handles GET /v1/documents
func (h *DocumentsHandler) HandleListDocuments(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	docs, err := h.docService.ListDocuments(r.Context(), orgID)
	if err != nil {
		log.Printf("ERROR [DocsHandler] HandleListDocuments for OrgID %s: %v", orgID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	if docs == nil {
		docs = []models.DocumentResponse{}
	}
	httputil.RespondJSON(w, http.StatusOK, docs)
}

// HandleGetDocument handles GET /v1/documents/{documentID}
// The response includes the document's extracted fields.
func (h *DocumentsHandler) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	docID, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid document ID format")
		return
	}

	doc, fields, err := h.docService.GetDocument(r.Context(), docID, orgID)
	if err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Document not found")
			return
		}
		log.Printf("ERROR [DocsHandler] HandleGetDocument for ID %s, OrgID %s: %v", docID, orgID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to retrieve document")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, struct {
		models.DocumentResponse
		Fields []models.ExtractedFieldResponse `json:"fields"`
	}{
		DocumentResponse: *doc,
		Fields:           fields,
	})
}

// HandleDeleteDocument handles DELETE /v1/documents/{documentID}
func (h *DocumentsHandler) HandleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	docID, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid document ID format")
		return
	}

	if err := h.docService.DeleteDocument(r.Context(), docID, orgID); err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Document not found")
			return
		}
		log.Printf("ERROR [DocsHandler] HandleDeleteDocument for ID %s, OrgID %s: %v", docID, orgID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to delete document")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleIngestFields handles POST /v1/documents/{documentID}/fields
// The extraction pipeline posts its results here as a batch.
func (h *DocumentsHandler) HandleIngestFields(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	docID, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid document ID format")
		return
	}

	var req models.IngestFieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	fields, err := h.docService.IngestFields(r.Context(), docID, orgID, req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDocumentNotFound):
			httputil.RespondError(w, http.StatusNotFound, "Document not found")
		case errors.Is(err, services.ErrFieldValidation):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("ERROR [DocsHandler] HandleIngestFields for DocID %s, OrgID %s: %v", docID, orgID, err)
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to store extracted fields")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, fields)
}

// HandleCorrectField handles PATCH /v1/documents/{documentID}/fields/{fieldID}
func (h *DocumentsHandler) HandleCorrectField(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	docID, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid document ID format")
		return
	}
	fieldID, err := uuid.Parse(chi.URLParam(r, "fieldID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid field ID format")
		return
	}

	var req models.CorrectFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	field, err := h.docService.CorrectField(r.Context(), docID, fieldID, orgID, req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDocumentNotFound):
			httputil.RespondError(w, http.StatusNotFound, "Document not found")
		case errors.Is(err, services.ErrFieldNotFound):
			httputil.RespondError(w, http.StatusNotFound, "Extracted field not found")
		default:
			log.Printf("ERROR [DocsHandler] HandleCorrectField for FieldID %s, OrgID %s: %v", fieldID, orgID, err)
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to update field")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, field)
}
