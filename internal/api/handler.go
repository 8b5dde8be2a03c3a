package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"energy_service/internal/core"
	"energy_service/internal/domain/model"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	service  *core.PredictionService
	resolver *core.NeighborhoodResolver
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// NewHandler builds the HTTP handlers. resolver may be nil when no
// Overpass endpoint is configured.
func NewHandler(service *core.PredictionService, resolver *core.NeighborhoodResolver, gatherer prometheus.Gatherer, logger *zap.Logger) *Handler {
	return &Handler{service: service, resolver: resolver, gatherer: gatherer, logger: logger}
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/predict", h.Predict)
	mux.HandleFunc("/api/model", h.GetModel)
	mux.HandleFunc("/api/neighborhood", h.GetNeighborhood)
	mux.HandleFunc("/healthz", h.Health)
	mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	return mux
}

type ErrorResponse struct {
	Status string            `json:"status"`
	Error  string            `json:"error"`
	Fields []core.FieldError `json:"fields,omitempty"`
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req model.BuildingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Status: "error",
				Error:  "invalid building input",
				Fields: []core.FieldError{{
					Field:   typeErr.Field,
					Message: fmt.Sprintf("must be %s, got %s", jsonKind(typeErr.Type), typeErr.Value),
				}},
			})
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	prediction, err := h.service.Predict(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, prediction)
}

// GetModel describes the served model and its feature layout.
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, h.service.DescribeModel())
}

// GetNeighborhood suggests the Neighborhood value for ?lat=&lon=.
func (h *Handler) GetNeighborhood(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.resolver == nil {
		writeError(w, http.StatusServiceUnavailable, "neighborhood lookup is not configured")
		return
	}

	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lat must be a number")
		return
	}
	lon, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lon must be a number")
		return
	}

	neighborhood, err := h.resolver.Resolve(r.Context(), lat, lon)
	if err != nil {
		if errors.Is(err, core.ErrNoNeighborhood) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, neighborhood)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError maps the error taxonomy to HTTP status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var (
		validationErr *core.ValidationError
		configErr     *model.ConfigurationError
		anomalyErr    *core.AnomalyError
	)
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Status: "error",
			Error:  "invalid building input",
			Fields: validationErr.Fields,
		})
	case errors.As(err, &configErr):
		writeError(w, http.StatusInternalServerError, "service misconfigured")
	case errors.As(err, &anomalyErr):
		writeError(w, http.StatusBadGateway, anomalyErr.Error())
	default:
		h.logger.Debug("upstream failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, "upstream service unavailable")
	}
}

// jsonKind names the JSON type a Go field accepts.
func jsonKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Pointer:
		return jsonKind(t.Elem())
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64:
		return "a number"
	case reflect.String:
		return "a string"
	default:
		return "a " + t.Kind().String()
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Status: "error", Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
