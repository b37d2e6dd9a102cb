package handlers

import (
	"context"
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

// PushOrchestrator defines the interface expected from the push service.
type PushOrchestrator interface {
	Push(ctx context.Context, req models.PushRequest, orgID uuid.UUID) (*models.PushResultResponse, error)
	GetPush(ctx context.Context, id uuid.UUID, orgID uuid.UUID) (*models.PushResultResponse, error)
	ListPushes(ctx context.Context, orgID uuid.UUID, integrationID *uuid.UUID) (*models.ListPushesResponse, error)
}

type PushHandler struct {
	pushService PushOrchestrator
}

func NewPushHandler(pushSvc PushOrchestrator) *PushHandler {
	return &PushHandler{
		pushService: pushSvc,
	}
}

// HandlePush handles POST /v1/pushes
//
// A push the destination rejected is still a 200: the response carries the
// classified error (code, message, suggestions) for the UI to render. Error
// statuses are reserved for requests that never reached the destination.
func (h *PushHandler) HandlePush(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	var req models.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if req.IntegrationID == uuid.Nil || req.DocumentID == uuid.Nil {
		httputil.RespondError(w, http.StatusBadRequest, "Missing required fields: integration_id, document_id")
		return
	}

	resp, err := h.pushService.Push(r.Context(), req, orgID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrIntegrationNotFound):
			httputil.RespondError(w, http.StatusNotFound, "Integration not found")
		case errors.Is(err, services.ErrDocumentNotFound):
			httputil.RespondError(w, http.StatusNotFound, "Document not found")
		case errors.Is(err, services.ErrNoExtractedFields):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrPushConfigInvalid):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrUnsupportedServiceType):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("ERROR [PushHandler] HandlePush for OrgID %s: %v", orgID, err)
			httputil.RespondError(w, http.StatusInternalServerError, "Push failed due to an internal error")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleGetPush handles GET /v1/pushes/{pushID}
func (h *PushHandler) HandleGetPush(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	pushID, err := uuid.Parse(chi.URLParam(r, "pushID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid push ID format")
		return
	}

	resp, err := h.pushService.GetPush(r.Context(), pushID, orgID)
	if err != nil {
		if errors.Is(err, services.ErrPushNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Push record not found")
			return
		}
		log.Printf("ERROR [PushHandler] HandleGetPush for ID %s, OrgID %s: %v", pushID, orgID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to retrieve push record")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleListPushes handles GET /v1/pushes
func (h *PushHandler) HandleListPushes(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	// Optional filtering by query parameter
	var integrationFilter *uuid.UUID
	if integQuery := r.URL.Query().Get("integration_id"); integQuery != "" {
		integID, err := uuid.Parse(integQuery)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid integration_id filter format")
			return
		}
		integrationFilter = &integID
	}

	resp, err := h.pushService.ListPushes(r.Context(), orgID, integrationFilter)
	if err != nil {
		log.Printf("ERROR [PushHandler] HandleListPushes for OrgID %s: %v", orgID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to list push records")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}
