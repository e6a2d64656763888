package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fdg312/nutricart/internal/cart"
	"github.com/fdg312/nutricart/internal/logging"
	"github.com/fdg312/nutricart/internal/nutrition"
	"github.com/fdg312/nutricart/internal/suggest"
	"github.com/google/uuid"
)

// Handlers handles HTTP requests for reports
type Handlers struct {
	service *Service
	timeout time.Duration
}

// NewHandlers creates new handlers. timeout bounds report creation when a
// suggestion is included; zero disables it.
func NewHandlers(service *Service, timeout time.Duration) *Handlers {
	return &Handlers{service: service, timeout: timeout}
}

// HandleCreate handles POST /v1/reports
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON")
		return
	}

	ctx := r.Context()
	if req.IncludeSuggestion && h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	report, err := h.service.CreateReport(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoSession):
			writeError(w, http.StatusUnauthorized, "session_required", "Reports belong to a session, create one first")
		case errors.Is(err, ErrInvalidFormat):
			writeError(w, http.StatusBadRequest, "invalid_format", "Format must be 'pdf' or 'csv'")
		case errors.Is(err, cart.ErrInvalidCart):
			writeError(w, http.StatusBadRequest, "invalid_cart", err.Error())
		case errors.Is(err, suggest.ErrNoProfile):
			writeError(w, http.StatusBadRequest, "profile_required", "Send a profile or store one in the session")
		case errors.Is(err, nutrition.ErrInvalidProfile):
			writeError(w, http.StatusBadRequest, "invalid_profile", err.Error())
		case errors.Is(err, nutrition.ErrUnsupportedProfile):
			writeError(w, http.StatusUnprocessableEntity, "unsupported_profile", err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, "timeout", "Report took too long")
		case errors.Is(err, suggest.ErrOptimizationInfeasible):
			logging.Error().Err(err).Msg("report suggestion failed")
			writeError(w, http.StatusInternalServerError, "optimization_infeasible", "Could not optimize the cart")
		default:
			logging.Error().Err(err).Msg("report creation failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create report")
		}
		return
	}

	dto, err := h.toDTO(r, report)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to generate download URL")
		return
	}

	writeJSON(w, http.StatusCreated, dto)
}

// HandleList handles GET /v1/reports
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	reports, err := h.service.ListReports(r.Context(), limit, offset)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			writeError(w, http.StatusUnauthorized, "session_required", "Reports belong to a session, create one first")
		} else {
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list reports")
		}
		return
	}

	dtos := make([]ReportDTO, 0, len(reports))
	for i := range reports {
		dto, err := h.toDTO(r, &reports[i])
		if err != nil {
			logging.Warn().Err(err).Str("report", reports[i].ID.String()).Msg("download url unavailable")
		}
		dtos = append(dtos, dto)
	}

	writeJSON(w, http.StatusOK, ReportsResponse{Reports: dtos})
}

// HandleDownload handles GET /v1/reports/{id}/download
func (h *Handlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	reportID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid report ID")
		return
	}

	report, err := h.service.GetReport(r.Context(), reportID)
	if err != nil {
		h.sendLookupError(w, err)
		return
	}

	if !h.service.LocalMode() {
		// S3 mode: redirect to presigned URL
		presignedURL, err := h.service.DownloadURL(r.Context(), report, getBaseURL(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to generate download URL")
			return
		}
		http.Redirect(w, r, presignedURL, http.StatusFound)
		return
	}

	filename := fmt.Sprintf("cart_report_%s.%s", report.CreatedAt.UTC().Format("20060102_150405"), report.Format)
	w.Header().Set("Content-Type", contentType(report.Format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(report.Data)))
	w.Write(report.Data)
}

// HandleDelete handles DELETE /v1/reports/{id}
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	reportID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid report ID")
		return
	}

	if err := h.service.DeleteReport(r.Context(), reportID); err != nil {
		h.sendLookupError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) sendLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoSession):
		writeError(w, http.StatusUnauthorized, "session_required", "Reports belong to a session, create one first")
	case errors.Is(err, ErrReportNotFound):
		writeError(w, http.StatusNotFound, "report_not_found", "Report not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load report")
	}
}

func (h *Handlers) toDTO(r *http.Request, report *Report) (ReportDTO, error) {
	dto := ReportDTO{
		ID:        report.ID,
		Format:    report.Format,
		ItemCount: report.ItemCount,
		SizeBytes: report.SizeBytes,
		Status:    report.Status,
		CreatedAt: report.CreatedAt,
	}
	url, err := h.service.DownloadURL(r.Context(), report, getBaseURL(r))
	if err != nil {
		return dto, err
	}
	dto.DownloadURL = url
	return dto, nil
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func getBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}
