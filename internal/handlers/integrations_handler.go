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

type IntegrationsHandler struct {
	integService services.IntegrationsService
}

func NewIntegrationsHandler(integSvc services.IntegrationsService) *IntegrationsHandler {
	return &IntegrationsHandler{
		integService: integSvc,
	}
}

// HandleConnectIntegration handles POST /v1/integrations
func (h *IntegrationsHandler) HandleConnectIntegration(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	var req models.ConnectIntegrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if req.ServiceType == "" || len(req.Credentials) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "Missing required fields: service_type, credentials")
		return
	}

	resp, err := h.integService.ConnectIntegration(r.Context(), req, orgID)
	if err != nil {
		log.Printf("ERROR [IntegrationsHandler] HandleConnectIntegration for OrgID %s: %v", orgID, err)
		switch {
		case errors.Is(err, services.ErrIntegrationValidation):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrUnsupportedServiceType):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrIntegrationTestFailed): // pre-save test failed
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrIntegrationEncryption):
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to secure credentials")
		default:
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to connect integration")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// HandleListIntegrations handles GET /v1/integrations
func (h *IntegrationsHandler) HandleListIntegrations(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	// Optional filtering by query parameter
	serviceTypeQuery := r.URL.Query().Get("service_type")
	var serviceTypeFilter *string
	if serviceTypeQuery != "" {
		serviceTypeFilter = &serviceTypeQuery
	}

	integs, err := h.integService.ListIntegrations(r.Context(), orgID, serviceTypeFilter)
	if err != nil {
		log.Printf("ERROR [IntegrationsHandler] HandleListIntegrations for OrgID %s: %v", orgID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to list integrations")
		return
	}

	if integs == nil {
		integs = []models.IntegrationResponse{}
	}
	httputil.RespondJSON(w, http.StatusOK, integs)
}

// HandleGetIntegration handles GET /v1/integrations/{integrationID}
func (h *IntegrationsHandler) HandleGetIntegration(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	integID, err := uuid.Parse(chi.URLParam(r, "integrationID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid integration ID format")
		return
	}

	resp, err := h.integService.GetIntegration(r.Context(), integID, orgID)
	if err != nil {
		if errors.Is(err, services.ErrIntegrationNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Integration not found")
			return
		}
		log.Printf("ERROR [IntegrationsHandler] HandleGetIntegration for ID %s, OrgID %s: %v", integID, orgID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to retrieve integration")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleUpdateCredential handles PUT /v1/integrations/{integrationID}/credential
func (h *IntegrationsHandler) HandleUpdateCredential(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	integID, err := uuid.Parse(chi.URLParam(r, "integrationID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid integration ID format")
		return
	}

	var req models.UpdateCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.integService.UpdateCredential(r.Context(), integID, orgID, req); err != nil {
		switch {
		case errors.Is(err, services.ErrIntegrationNotFound):
			httputil.RespondError(w, http.StatusNotFound, "Integration not found")
		case errors.Is(err, services.ErrIntegrationValidation):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrIntegrationTestFailed):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("ERROR [IntegrationsHandler] HandleUpdateCredential for ID %s, OrgID %s: %v", integID, orgID, err)
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to update credential")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDisconnectIntegration handles DELETE /v1/integrations/{integrationID}
func (h *IntegrationsHandler) HandleDisconnectIntegration(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	integID, err := uuid.Parse(chi.URLParam(r, "integrationID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid integration ID format")
		return
	}

	if err := h.integService.Disconnect(r.Context(), integID, orgID); err != nil {
		switch {
		case errors.Is(err, services.ErrIntegrationNotFound):
			httputil.RespondError(w, http.StatusNotFound, "Integration not found")
		case errors.Is(err, services.ErrIntegrationInUse):
			httputil.RespondError(w, http.StatusConflict, err.Error())
		default:
			log.Printf("ERROR [IntegrationsHandler] HandleDisconnectIntegration for ID %s, OrgID %s: %v", integID, orgID, err)
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to disconnect integration")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleTestIntegration handles POST /v1/integrations/{integrationID}/test
// A failed connection test is a 200 with success=false, not an error status.
func (h *IntegrationsHandler) HandleTestIntegration(w http.ResponseWriter, r *http.Request) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Organization ID not found in token context")
		return
	}

	integID, err := uuid.Parse(chi.URLParam(r, "integrationID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid integration ID format")
		return
	}

	resp, err := h.integService.TestIntegration(r.Context(), integID, orgID)
	if err != nil {
		if errors.Is(err, services.ErrIntegrationNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Integration not found")
			return
		}
		log.Printf("ERROR [IntegrationsHandler] HandleTestIntegration for ID %s, OrgID %s: %v", integID, orgID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to test integration")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}
