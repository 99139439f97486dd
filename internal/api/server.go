package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/mozawave/market-watch/internal/metrics"
	"github.com/mozawave/market-watch/internal/models"
	"github.com/mozawave/market-watch/internal/monitoring"
	"github.com/mozawave/market-watch/internal/storage"
	"github.com/sirupsen/logrus"
)

// Service is the monitoring surface exposed over HTTP
type Service interface {
	GetStatus() monitoring.Status
	GetCompetitors() []models.TrackedEntity
	GetEntity(id string) (models.TrackedEntity, error)
	RegisterEntity(entity models.TrackedEntity) (models.TrackedEntity, error)
	DeactivateEntity(id string) (models.TrackedEntity, error)
	GetRecentChanges(limit int) []models.Change
	GetActiveAlerts() []models.Alert
	AcknowledgeAlert(id, by string) (models.Alert, error)
	ResolveAlert(id string) (models.Alert, error)
	GetReviews(entityID string) []models.Review
	GetReviewsNeedingResponse() []models.Review
	GenerateAIResponse(ctx context.Context, reviewID string) (models.Review, error)
	RespondManually(reviewID, respondedBy, text string) (models.Review, error)
	ApproveAIResponse(responseID, approver string) (models.Review, error)
	RejectAIResponse(responseID, rejectedBy, feedback string) (models.Review, error)
	GetReputationMetrics(orgID string) models.BusinessMetrics
	GetInsights(orgID string) []models.Insight
	GetDashboardOverview(orgID, userID string) models.DashboardOverview
	RunAll(ctx context.Context) monitoring.ScanResult
}

type handler struct {
	service Service
}

// NewRouter builds the HTTP routes. A nil collector disables /metrics and
// request instrumentation.
func NewRouter(service Service, collector *metrics.Collector) *mux.Router {
	h := &handler{service: service}
	router := mux.NewRouter()

	if collector != nil {
		router.Use(func(next http.Handler) http.Handler {
			return collector.InstrumentHandler(next, routeLabel)
		})
		router.Handle("/metrics", collector.Handler()).Methods("GET")
	}

	// Health check endpoint
	router.HandleFunc("/health", h.health).Methods("GET")
	router.HandleFunc("/status", h.status).Methods("GET")

	// Manual trigger endpoint
	router.HandleFunc("/trigger", h.trigger).Methods("POST")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/competitors", h.competitors).Methods("GET")
	api.HandleFunc("/entities", h.registerEntity).Methods("POST")
	api.HandleFunc("/entities/{id}", h.entity).Methods("GET")
	api.HandleFunc("/entities/{id}/deactivate", h.deactivateEntity).Methods("POST")
	api.HandleFunc("/changes", h.changes).Methods("GET")
	api.HandleFunc("/alerts", h.alerts).Methods("GET")
	api.HandleFunc("/alerts/{id}/ack", h.acknowledgeAlert).Methods("POST")
	api.HandleFunc("/alerts/{id}/resolve", h.resolveAlert).Methods("POST")
	api.HandleFunc("/reviews", h.reviews).Methods("GET")
	api.HandleFunc("/reviews/pending", h.pendingReviews).Methods("GET")
	api.HandleFunc("/reviews/{id}/generate", h.generateResponse).Methods("POST")
	api.HandleFunc("/reviews/{id}/respond", h.respondManually).Methods("POST")
	api.HandleFunc("/responses/{id}/approve", h.approveResponse).Methods("POST")
	api.HandleFunc("/responses/{id}/reject", h.rejectResponse).Methods("POST")
	api.HandleFunc("/reputation/{orgID}", h.reputation).Methods("GET")
	api.HandleFunc("/insights/{orgID}", h.insights).Methods("GET")
	api.HandleFunc("/dashboard/{orgID}/{userID}", h.dashboard).Methods("GET")

	return router
}

func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

// writeError maps store sentinels to 404 and 409 and everything else to fallback
func writeError(w http.ResponseWriter, err error, fallback int) {
	status := fallback
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidState):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decode reads an optional JSON body into v
func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type actorRequest struct {
	By       string `json:"by"`
	Text     string `json:"text,omitempty"`
	Feedback string `json:"feedback,omitempty"`
}

func (h *handler) actor(w http.ResponseWriter, r *http.Request) (actorRequest, bool) {
	var req actorRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return req, false
	}
	return req, true
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.GetStatus())
}

func (h *handler) trigger(w http.ResponseWriter, r *http.Request) {
	go func() {
		result := h.service.RunAll(context.Background())
		logrus.Infof("Manual trigger completed with %d changes", result.Changes)
	}()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Monitoring triggered successfully"})
}

func (h *handler) competitors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.GetCompetitors())
}

func (h *handler) entity(w http.ResponseWriter, r *http.Request) {
	entity, err := h.service.GetEntity(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

func (h *handler) registerEntity(w http.ResponseWriter, r *http.Request) {
	var entity models.TrackedEntity
	if err := json.NewDecoder(r.Body).Decode(&entity); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	created, err := h.service.RegisterEntity(entity)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) deactivateEntity(w http.ResponseWriter, r *http.Request) {
	entity, err := h.service.DeactivateEntity(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

func (h *handler) changes(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, h.service.GetRecentChanges(limit))
}

func (h *handler) alerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.GetActiveAlerts())
}

func (h *handler) acknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	req, ok := h.actor(w, r)
	if !ok {
		return
	}
	alert, err := h.service.AcknowledgeAlert(mux.Vars(r)["id"], req.By)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (h *handler) resolveAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.service.ResolveAlert(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (h *handler) reviews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.GetReviews(r.URL.Query().Get("entity_id")))
}

func (h *handler) pendingReviews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.GetReviewsNeedingResponse())
}

func (h *handler) generateResponse(w http.ResponseWriter, r *http.Request) {
	review, err := h.service.GenerateAIResponse(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *handler) respondManually(w http.ResponseWriter, r *http.Request) {
	req, ok := h.actor(w, r)
	if !ok {
		return
	}
	review, err := h.service.RespondManually(mux.Vars(r)["id"], req.By, req.Text)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *handler) approveResponse(w http.ResponseWriter, r *http.Request) {
	req, ok := h.actor(w, r)
	if !ok {
		return
	}
	review, err := h.service.ApproveAIResponse(mux.Vars(r)["id"], req.By)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *handler) rejectResponse(w http.ResponseWriter, r *http.Request) {
	req, ok := h.actor(w, r)
	if !ok {
		return
	}
	review, err := h.service.RejectAIResponse(mux.Vars(r)["id"], req.By, req.Feedback)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *handler) reputation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.GetReputationMetrics(mux.Vars(r)["orgID"]))
}

func (h *handler) insights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.GetInsights(mux.Vars(r)["orgID"]))
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	writeJSON(w, http.StatusOK, h.service.GetDashboardOverview(vars["orgID"], vars["userID"]))
}
