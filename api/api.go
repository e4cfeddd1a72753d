// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package api exposes the message workflow over HTTP/JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/whisper"
	"github.com/luxfi/whisper/status"
	"github.com/luxfi/whisper/store"
	"github.com/luxfi/whisper/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	MessagesPath     = "/v1/messages"
	ReloadPath       = "/v1/reload"
	StatsPath        = "/v1/stats"
	StatusPath       = "/v1/status"
	StatusStreamPath = "/v1/status/stream"
	ProbePath        = "/v1/probe"
	SessionPath      = "/v1/session"
	HealthPath       = "/health"
	MetricsPath      = "/metrics"

	maxRequestBytes = 64 << 10
)

// Workflow is the controller surface served by the API.
type Workflow interface {
	Initialize(ctx context.Context) error
	Send(ctx context.Context, content string) (string, error)
	RequestDecryption(ctx context.Context, id string) (whisper.Decryption, error)
	Reload(ctx context.Context) error
	Probe(ctx context.Context) (bool, error)
	Messages(term string) []*whisper.MessageRecord
	Message(id string) (*whisper.MessageRecord, bool)
	Stats(now time.Time) store.Stats
	Digest() common.Hash
	Status() status.Record
	Subscribe() (<-chan status.Record, func())
	Guards() workflow.GuardState
}

type Config struct {
	RateLimit float64
	RateBurst int
	// Health and Gatherer are mounted when set.
	Health   http.Handler
	Gatherer prometheus.Gatherer
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

type SendMessageResponse struct {
	ID string `json:"id"`
}

type MessageView struct {
	ID             string         `json:"id"`
	Content        string         `json:"content"`
	Timestamp      uint64         `json:"timestamp"`
	Sender         common.Address `json:"sender"`
	EncryptedValue uint64         `json:"encryptedValue"`
	Verified       bool           `json:"verified"`
	DecryptedValue *uint64        `json:"decryptedValue,omitempty"`
}

type MessagesResponse struct {
	Messages []MessageView `json:"messages"`
	Digest   common.Hash   `json:"digest"`
}

type DecryptResponse struct {
	ID       string  `json:"id"`
	Verified bool    `json:"verified"`
	Value    *uint64 `json:"value,omitempty"`
}

type ProbeResponse struct {
	Available bool `json:"available"`
}

type StatusResponse struct {
	Status status.Record       `json:"status"`
	Guards workflow.GuardState `json:"guards"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type handler struct {
	logger   *zap.Logger
	workflow Workflow
}

// NewHandler builds the API mux.
func NewHandler(cfg Config, wf Workflow, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{logger: logger, workflow: wf}
	limit := newClientLimiter(cfg.RateLimit, cfg.RateBurst, 0)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+MessagesPath, h.listMessages)
	mux.HandleFunc("GET "+MessagesPath+"/{id}", h.getMessage)
	mux.HandleFunc("POST "+MessagesPath, limit.middleware(h.sendMessage))
	mux.HandleFunc("POST "+MessagesPath+"/{id}/decrypt", limit.middleware(h.decryptMessage))
	mux.HandleFunc("POST "+ReloadPath, limit.middleware(h.reload))
	mux.HandleFunc("POST "+ProbePath, limit.middleware(h.probe))
	mux.HandleFunc("POST "+SessionPath, limit.middleware(h.initialize))
	mux.HandleFunc("GET "+StatsPath, h.stats)
	mux.HandleFunc("GET "+StatusPath, h.status)
	mux.HandleFunc("GET "+StatusStreamPath, h.statusStream)
	if cfg.Health != nil {
		mux.Handle(HealthPath, cfg.Health)
	}
	if cfg.Gatherer != nil {
		mux.Handle(MetricsPath, promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

func (h *handler) listMessages(w http.ResponseWriter, r *http.Request) {
	digest := h.workflow.Digest()
	etag := `"` + digest.Hex() + `"`
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	records := h.workflow.Messages(r.URL.Query().Get("q"))
	resp := MessagesResponse{
		Messages: make([]MessageView, 0, len(records)),
		Digest:   digest,
	}
	for _, rec := range records {
		resp.Messages = append(resp.Messages, newMessageView(rec))
	}
	w.Header().Set("ETag", etag)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) getMessage(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.workflow.Message(r.PathValue("id"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, "message not found")
		return
	}
	h.writeJSON(w, http.StatusOK, newMessageView(rec))
}

func (h *handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := h.workflow.Send(r.Context(), req.Content)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, SendMessageResponse{ID: id})
}

func (h *handler) decryptMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, err := h.workflow.RequestDecryption(r.Context(), id)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	resp := DecryptResponse{ID: id, Verified: d.IsVerified()}
	if v, ok := d.Value(); ok {
		resp.Value = &v
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) reload(w http.ResponseWriter, r *http.Request) {
	if err := h.workflow.Reload(r.Context()); err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) initialize(w http.ResponseWriter, r *http.Request) {
	if err := h.workflow.Initialize(r.Context()); err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) probe(w http.ResponseWriter, r *http.Request) {
	ok, err := h.workflow.Probe(r.Context())
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ProbeResponse{Available: ok})
}

func (h *handler) stats(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.workflow.Stats(time.Now()))
}

func (h *handler) status(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, StatusResponse{
		Status: h.workflow.Status(),
		Guards: h.workflow.Guards(),
	})
}

func newMessageView(rec *whisper.MessageRecord) MessageView {
	view := MessageView{
		ID:             rec.ID,
		Content:        rec.Content,
		Timestamp:      rec.Timestamp,
		Sender:         rec.Sender,
		EncryptedValue: rec.EncryptedValue,
		Verified:       rec.IsVerified(),
	}
	if v, ok := rec.Decryption.Value(); ok {
		view.DecryptedValue = &v
	}
	return view
}

// statusCode maps workflow errors onto HTTP statuses.
func statusCode(err error) int {
	if errors.Is(err, workflow.ErrSendInProgress) || errors.Is(err, workflow.ErrDecryptInProgress) {
		return http.StatusConflict
	}
	switch whisper.KindOf(err) {
	case whisper.KindNotConnected, whisper.KindUserRejected:
		return http.StatusForbidden
	case whisper.KindEncryptionFailure, whisper.KindChainRejected:
		return http.StatusUnprocessableEntity
	case whisper.KindNetworkFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) writeWorkflowError(w http.ResponseWriter, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		h.logger.Warn("Request failed", zap.Error(err))
	}
	resp := ErrorResponse{Error: err.Error()}
	if kind := whisper.KindOf(err); kind != whisper.KindUnknown {
		resp.Kind = kind.String()
	}
	writeJSONStatus(w, code, resp)
}

func (h *handler) writeJSON(w http.ResponseWriter, code int, v any) {
	if err := writeJSONStatus(w, code, v); err != nil {
		h.logger.Error("Error writing response", zap.Error(err))
	}
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	_ = writeJSONStatus(w, code, ErrorResponse{Error: msg})
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}
