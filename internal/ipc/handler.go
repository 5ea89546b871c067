package ipc

import (
	"errors"
	"time"

	"sentryd/internal/behavior"
	"sentryd/internal/config"
	"sentryd/internal/engine"
	"sentryd/internal/logging"
)

// Handler dispatches decoded requests to the engine.
type Handler struct {
	engine    *engine.Engine
	corpus    config.CorpusConfig
	version   string
	startedAt time.Time
	logger    *logging.Logger
}

// NewHandler creates a request handler bound to an engine.
func NewHandler(eng *engine.Engine, corpus config.CorpusConfig, version string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		engine:    eng,
		corpus:    corpus,
		version:   version,
		startedAt: time.Now(),
		logger:    logger.WithComponent("ipc"),
	}
}

// Handle produces the response message for one request.
func (h *Handler) Handle(req *Message) *Message {
	id := req.Header.RequestID

	switch req.Header.Type {
	case MsgPing:
		return NewMessage(MsgPong, id, nil)
	case MsgStatusRequest:
		return h.handleStatus(id)
	case MsgScoreRequest:
		return h.handleScore(req, id)
	case MsgRefitRequest:
		return h.handleRefit(req, id)
	case MsgHistoryRequest:
		return h.handleHistory(req, id)
	case MsgPostureRequest:
		return h.handlePosture(id)
	case MsgResetPostureRequest:
		return h.handleResetPosture(id)
	case MsgShutdown:
		return NewMessage(MsgShutdown, id, nil)
	default:
		return h.errorMessage(id, ErrInvalidRequest, "unknown message type")
	}
}

func (h *Handler) handleStatus(id uint32) *Message {
	stats := h.engine.Stats()
	resp := StatusResponse{
		Version:   h.version,
		StartedAt: h.startedAt,
		Uptime:    time.Since(h.startedAt),
		Posture:   stats.Posture,
		Status:    h.engine.Status(),
		Stats:     stats,
	}
	if snap := h.engine.Snapshot(); snap != nil {
		resp.Fitted = true
		resp.FittedAt = snap.FittedAt
		resp.CorpusSize = snap.CorpusSize
	}
	return h.mustEncode(MsgStatusResponse, id, resp)
}

func (h *Handler) handleScore(req *Message, id uint32) *Message {
	var scoreReq ScoreRequest
	if err := Decode(req, &scoreReq); err != nil {
		return h.errorMessage(id, ErrInvalidRequest, "malformed score request: "+err.Error())
	}
	if scoreReq.Sample.TypingSpeed < 0 || scoreReq.Sample.MouseSpeed < 0 {
		return h.errorMessage(id, ErrInvalidRequest, "speeds must not be negative")
	}

	verdict, err := h.engine.Score(scoreReq.Sample)
	if err != nil {
		if errors.Is(err, engine.ErrNotFitted) {
			return h.errorMessage(id, ErrNotFitted, "models not fitted, run refit first")
		}
		return h.errorMessage(id, ErrInternalError, err.Error())
	}
	return h.mustEncode(MsgScoreResponse, id, ScoreResponse{
		Verdict: verdict,
		Posture: h.engine.Posture(),
	})
}

func (h *Handler) handleRefit(req *Message, id uint32) *Message {
	var refitReq RefitRequest
	if err := Decode(req, &refitReq); err != nil {
		return h.errorMessage(id, ErrInvalidRequest, "malformed refit request: "+err.Error())
	}

	normal := refitReq.NormalCount
	if normal <= 0 {
		normal = h.corpus.NormalCount
	}
	suspicious := refitReq.SuspiciousCount
	if suspicious <= 0 {
		suspicious = h.corpus.SuspiciousCount
	}
	seed := refitReq.Seed
	if seed == 0 {
		seed = h.corpus.Seed
	}

	corpus := behavior.GenerateCorpus(normal, suspicious, seed)
	if err := h.engine.Fit(corpus); err != nil {
		return h.errorMessage(id, ErrInternalError, "fit failed: "+err.Error())
	}
	snap := h.engine.Snapshot()
	return h.mustEncode(MsgRefitResponse, id, RefitResponse{
		CorpusSize: snap.CorpusSize,
		FittedAt:   snap.FittedAt,
	})
}

func (h *Handler) handleHistory(req *Message, id uint32) *Message {
	var histReq HistoryRequest
	if err := Decode(req, &histReq); err != nil {
		return h.errorMessage(id, ErrInvalidRequest, "malformed history request: "+err.Error())
	}
	return h.mustEncode(MsgHistoryResponse, id, HistoryResponse{
		Verdicts: h.engine.History().Recent(histReq.Limit),
	})
}

func (h *Handler) handlePosture(id uint32) *Message {
	return h.mustEncode(MsgPostureResponse, id, PostureResponse{
		Posture: h.engine.Posture(),
		Status:  h.engine.Status(),
	})
}

func (h *Handler) handleResetPosture(id uint32) *Message {
	h.engine.ResetPosture()
	return h.mustEncode(MsgResetPostureResponse, id, PostureResponse{
		Posture: h.engine.Posture(),
		Status:  h.engine.Status(),
	})
}

func (h *Handler) errorMessage(id uint32, code int, msg string) *Message {
	m, err := Encode(MsgError, id, ErrorResponse{Code: code, Message: msg})
	if err != nil {
		return NewMessage(MsgError, id, nil)
	}
	return m
}

// mustEncode falls back to an internal error message if encoding the
// response fails.
func (h *Handler) mustEncode(msgType MessageType, id uint32, payload any) *Message {
	m, err := Encode(msgType, id, payload)
	if err != nil {
		h.logger.Error("encode response failed", "type", msgType, "error", err)
		return h.errorMessage(id, ErrInternalError, "encode response failed")
	}
	return m
}
