package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/justestif/moodify/internal/catalog"
	"github.com/justestif/moodify/internal/db"
	"github.com/justestif/moodify/internal/logger"
	"github.com/justestif/moodify/internal/pipeline"
	"github.com/justestif/moodify/internal/vision"
)

const defaultHistoryLimit = 20

// RunStore persists run history. *db.RunRepository implements it.
type RunStore interface {
	Create(ctx context.Context, run *db.Run) error
	Recent(ctx context.Context, limit int) ([]db.Run, error)
}

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	runner    pipeline.Runner
	runs      RunStore
	maxUpload int64
	maxPixels int
	log       *logger.Logger
}

// NewHandlers creates a new Handlers instance. runs may be nil.
func NewHandlers(runner pipeline.Runner, runs RunStore, maxUpload int64, maxPixels int, log *logger.Logger) *Handlers {
	return &Handlers{
		runner:    runner,
		runs:      runs,
		maxUpload: maxUpload,
		maxPixels: maxPixels,
		log:       log,
	}
}

// RecommendResponse is the body of a successful POST /api/recommend.
type RecommendResponse struct {
	ID              uuid.UUID       `json:"id"`
	Emotion         string          `json:"emotion"`
	Genre           string          `json:"genre"`
	FaceCount       int             `json:"face_count"`
	Tracks          []catalog.Track `json:"tracks"`
	TracksAvailable bool            `json:"tracks_available"`
	CatalogError    string          `json:"catalog_error,omitempty"`
}

// NewRecommendResponse builds the response for a pipeline result.
func NewRecommendResponse(id uuid.UUID, res pipeline.Result) RecommendResponse {
	resp := RecommendResponse{
		ID:              id,
		Emotion:         res.Emotion.String(),
		Genre:           res.Genre.String(),
		FaceCount:       res.FaceCount,
		Tracks:          res.Tracks,
		TracksAvailable: res.TracksAvailable(),
	}
	if resp.Tracks == nil {
		resp.Tracks = []catalog.Track{}
	}
	if res.CatalogErr != nil {
		resp.CatalogError = res.CatalogErr.Error()
	}
	return resp
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Health reports liveness (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "ok")
}

// Recommend runs the pipeline on an uploaded image (POST /api/recommend).
// The image is read from the multipart field "image".
func (h *Handlers) Recommend(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	file, _, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large",
				fmt.Sprintf("image exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", "missing multipart field \"image\"")
		return
	}
	defer file.Close()

	img, format, err := vision.Decode(file, h.maxPixels)
	if err != nil {
		writeError(w, http.StatusBadRequest, pipeline.KindInvalidImage, "cannot decode image: "+err.Error())
		return
	}
	h.log.Debug("decoded %s image %v", format, img.Bounds().Size())

	res, err := h.runner.Run(r.Context(), img)
	if err != nil {
		kind := pipeline.Classify(err)
		status := statusFor(kind)
		if status == http.StatusInternalServerError {
			h.log.Error("pipeline failed: %v", err)
		}
		writeError(w, status, kind, err.Error())
		return
	}

	resp := NewRecommendResponse(uuid.New(), res)
	h.record(r.Context(), resp)
	writeJSON(w, http.StatusOK, resp)
}

// History lists recent runs (GET /api/history?limit=n).
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "history_disabled", "run history is not configured")
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.runs.Recent(r.Context(), limit)
	if err != nil {
		h.log.Error("listing runs: %v", err)
		writeError(w, http.StatusInternalServerError, pipeline.KindInternal, "could not load history")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// record stores the run. Failures are logged and otherwise ignored.
func (h *Handlers) record(ctx context.Context, resp RecommendResponse) {
	if h.runs == nil {
		return
	}
	run := &db.Run{
		ID:         resp.ID,
		Emotion:    resp.Emotion,
		Genre:      resp.Genre,
		FaceCount:  resp.FaceCount,
		TrackCount: len(resp.Tracks),
		CatalogOK:  resp.TracksAvailable,
	}
	if err := h.runs.Create(ctx, run); err != nil {
		h.log.Warn("recording run %s: %v", run.ID, err)
	}
}

func statusFor(kind string) int {
	switch kind {
	case pipeline.KindInvalidImage:
		return http.StatusBadRequest
	case pipeline.KindClassifierUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, ErrorResponse{Error: kind, Message: msg})
}
