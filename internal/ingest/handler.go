// Package ingest exposes the REST surface for recordings: segment batches,
// framed device uploads and the live event feed.
package ingest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cleanscribe/cleanscribe/internal/store"
	"github.com/cleanscribe/cleanscribe/pkg/aliasrule"
	"github.com/cleanscribe/cleanscribe/pkg/chunkstream"
	"github.com/cleanscribe/cleanscribe/pkg/events"
	"github.com/cleanscribe/cleanscribe/pkg/hooks"
	"github.com/cleanscribe/cleanscribe/pkg/transcript"
)

const maxRequestBodySize = 1 << 20 // 1 MiB for JSON bodies

// Store is the persistence surface the handler needs.
type Store interface {
	CreateRecording(ctx context.Context, rec *store.Recording) error
	GetRecording(ctx context.Context, id string) (*store.Recording, error)
	ListRecordings(ctx context.Context, limit, offset int) ([]store.Recording, error)
	FindByContentHash(ctx context.Context, hash string) (*store.Recording, error)
	UpdateRecording(ctx context.Context, rec *store.Recording) error
	AppendSegments(ctx context.Context, segments []store.SegmentRecord) error
	ListSegments(ctx context.Context, recordingID string) ([]store.SegmentRecord, error)
}

// Emitter publishes lifecycle events; nil-safe in the handler so unit tests
// can run without a queue.
type Emitter interface {
	Emit(ctx context.Context, eventType events.EventType, recordingID string, data interface{}) error
}

// Enricher calls an external endpoint that may rename speakers or replace
// the transcript.
type Enricher interface {
	Execute(ctx context.Context, cfg hooks.HookConfig, req hooks.HookRequest) (*hooks.HookResponse, error)
}

// Config bounds what the handler accepts.
type Config struct {
	MaxUploadBytes  int64
	MaxSegmentCount int
	DefaultRuleSet  string
	EnrichHook      hooks.HookConfig
}

// Handler provides REST endpoints for recordings.
type Handler struct {
	store  Store
	pub    Emitter
	engine *transcript.Engine
	rules  *aliasrule.Loader
	stream EventStream
	enrich Enricher
	cfg    Config
}

// SetEnricher installs the optional enrichment hook executor.
func (h *Handler) SetEnricher(e Enricher) {
	h.enrich = e
}

// NewHandler creates a new ingest handler.
func NewHandler(st Store, pub Emitter, engine *transcript.Engine, rules *aliasrule.Loader, cfg Config) *Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 100 << 20
	}
	if cfg.MaxSegmentCount <= 0 {
		cfg.MaxSegmentCount = 50000
	}
	return &Handler{store: st, pub: pub, engine: engine, rules: rules, cfg: cfg}
}

// RegisterRoutes registers all recording API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/recordings", h.Create)
	mux.HandleFunc("GET /api/v1/recordings", h.List)
	mux.HandleFunc("GET /api/v1/recordings/{id}", h.Get)
	mux.HandleFunc("POST /api/v1/recordings/{id}/segments", h.IngestSegments)
	mux.HandleFunc("GET /api/v1/recordings/{id}/transcript", h.GetTranscript)
	mux.HandleFunc("POST /api/v1/recordings/{id}/chunks", h.UploadChunks)
	mux.HandleFunc("GET /api/v1/recordings/{id}/live", h.Live)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func (h *Handler) emit(ctx context.Context, et events.EventType, recordingID string, data interface{}) {
	if h.pub == nil {
		return
	}
	if err := h.pub.Emit(ctx, et, recordingID, data); err != nil {
		slog.WarnContext(ctx, "emit event failed",
			slog.String("event_type", string(et)),
			slog.String("error", err.Error()))
	}
}

func toRecordingResponse(rec *store.Recording) RecordingResponse {
	return RecordingResponse{
		ID:           rec.ID,
		Name:         rec.Name,
		DeviceID:     rec.DeviceID,
		Status:       rec.Status,
		ContentHash:  rec.ContentHash,
		SegmentCount: rec.SegmentCount,
		LineCount:    rec.LineCount,
		DurationSec:  rec.DurationSec,
		Speakers:     rec.Speakers,
		CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
		ModifiedAt:   rec.ModifiedAt.Format(time.RFC3339),
	}
}

// Create handles POST /api/v1/recordings
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req CreateRecordingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	rec := &store.Recording{
		Name:     req.Name,
		DeviceID: req.DeviceID,
		Status:   store.StatusPending,
	}
	if err := h.store.CreateRecording(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create recording")
		return
	}

	h.emit(r.Context(), events.RecordingCreated, rec.ID, events.RecordingCreatedData{
		Name:     rec.Name,
		DeviceID: rec.DeviceID,
	})

	writeJSON(w, http.StatusCreated, toRecordingResponse(rec))
}

// List handles GET /api/v1/recordings
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.ListRecordings(r.Context(), 100, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list recordings")
		return
	}
	resp := make([]RecordingResponse, 0, len(recs))
	for i := range recs {
		resp = append(resp, toRecordingResponse(&recs[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/recordings/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := h.store.GetRecording(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "recording not found")
		return
	}
	writeJSON(w, http.StatusOK, toRecordingResponse(rec))
}

// IngestSegments handles POST /api/v1/recordings/{id}/segments
//
// The batch is persisted as received, then run through the cleaning engine;
// the recording keeps both the raw segments and the cleaned result.
func (h *Handler) IngestSegments(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	id := r.PathValue("id")

	rec, err := h.store.GetRecording(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "recording not found")
		return
	}

	var req IngestSegmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Segments) > h.cfg.MaxSegmentCount {
		writeError(w, http.StatusBadRequest, "segment batch too large")
		return
	}

	records := make([]store.SegmentRecord, 0, len(req.Segments))
	for _, s := range req.Segments {
		records = append(records, store.SegmentRecord{
			RecordingID: rec.ID,
			Speaker:     s.Speaker,
			SpeakerID:   s.SpeakerID,
			Text:        s.Text,
			StartSec:    s.Start,
			EndSec:      s.End,
			Confidence:  s.Confidence,
		})
	}
	if err := h.store.AppendSegments(r.Context(), records); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to persist segments")
		return
	}

	h.emit(r.Context(), events.SegmentsIngested, rec.ID, events.SegmentsIngestedData{
		SegmentCount: len(req.Segments),
		Source:       "api",
	})

	result := h.engine.Process(req.Segments)
	result = h.applyRules(req.RuleSet, result)

	if h.enrich != nil && h.cfg.EnrichHook.URL != "" {
		resp, err := h.enrich.Execute(r.Context(), h.cfg.EnrichHook, hooks.HookRequest{
			RecordingID: rec.ID,
			Transcript:  result.Transcript,
			Speakers:    result.Speakers,
		})
		if err != nil {
			// Enrichment is best effort; the cleaned result still ships.
			slog.WarnContext(r.Context(), "enrichment hook failed", slog.String("error", err.Error()))
		} else {
			result = resp.ApplyTo(result)
		}
	}

	lines := 0
	if result.Transcript != "" {
		lines = 1
		for _, c := range result.Transcript {
			if c == '\n' {
				lines++
			}
		}
	}

	rec.Transcript = result.Transcript
	rec.Speakers = store.SpeakersJSON(result.Speakers)
	rec.SegmentCount += len(req.Segments)
	rec.LineCount = lines
	rec.DurationSec = maxEnd(req.Segments)
	rec.Status = store.StatusCleaned
	if err := h.store.UpdateRecording(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store transcript")
		return
	}

	h.emit(r.Context(), events.TranscriptCleaned, rec.ID, events.TranscriptCleanedData{
		Transcript: result.Transcript,
		Speakers:   result.Speakers,
		SegmentsIn: len(req.Segments),
		LinesOut:   lines,
	})
	h.emit(r.Context(), events.TranscriptStored, rec.ID, events.TranscriptStoredData{
		LineCount:   lines,
		DurationSec: rec.DurationSec,
	})

	writeJSON(w, http.StatusOK, TranscriptResponse{
		RecordingID: rec.ID,
		Transcript:  result.Transcript,
		Speakers:    result.Speakers,
		SegmentsIn:  len(req.Segments),
		LinesOut:    lines,
	})
}

// applyRules renames canonical speakers using the named rule set, falling
// back to the configured default. Unknown names pass through unchanged.
func (h *Handler) applyRules(name string, result transcript.Result) transcript.Result {
	if h.rules == nil {
		return result
	}
	if name == "" {
		name = h.cfg.DefaultRuleSet
	}
	if name == "" {
		return result
	}
	rs, ok := h.rules.Get(name)
	if !ok {
		return result
	}
	return rs.Apply(result)
}

func maxEnd(segments []transcript.RawSegment) float64 {
	var max float64
	for _, s := range segments {
		if s.End != nil && *s.End > max {
			max = *s.End
		}
	}
	return max
}

// GetTranscript handles GET /api/v1/recordings/{id}/transcript
func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := h.store.GetRecording(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "recording not found")
		return
	}
	if rec.Status != store.StatusCleaned {
		writeError(w, http.StatusConflict, "transcript not ready")
		return
	}

	writeJSON(w, http.StatusOK, TranscriptResponse{
		RecordingID: rec.ID,
		Transcript:  rec.Transcript,
		Speakers:    rec.Speakers,
		SegmentsIn:  rec.SegmentCount,
		LinesOut:    rec.LineCount,
	})
}

// UploadChunks handles POST /api/v1/recordings/{id}/chunks
//
// The body carries back-to-back device frames; the assembler restores the
// byte stream and the content hash deduplicates repeat uploads.
func (h *Handler) UploadChunks(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := h.store.GetRecording(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "recording not found")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}

	asm := chunkstream.NewAssembler()
	if err := asm.OfferStream(body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed frame stream: "+err.Error())
		return
	}
	data, hash := asm.Finalize()
	stats := asm.Stats()

	duplicate := false
	if existing, err := h.store.FindByContentHash(r.Context(), hash); err == nil && existing.ID != rec.ID {
		duplicate = true
	}

	if !duplicate {
		rec.ContentHash = hash
		rec.Status = store.StatusUploading
		if asm.Done() {
			rec.Status = store.StatusUploaded
		}
		if err := h.store.UpdateRecording(r.Context(), rec); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to store upload")
			return
		}
	}

	h.emit(r.Context(), events.UploadCompleted, rec.ID, events.UploadCompletedData{
		ContentHash: hash,
		SizeBytes:   len(data),
		Duplicate:   duplicate,
		CRCErrors:   stats.CRCErrors,
	})

	writeJSON(w, http.StatusOK, ChunkUploadResponse{
		RecordingID: rec.ID,
		ContentHash: hash,
		SizeBytes:   len(data),
		Duplicate:   duplicate,
		Complete:    asm.Done(),
		Frames:      stats.Frames,
		CRCErrors:   stats.CRCErrors,
		Skips:       stats.Skips,
	})
}
