// Package ipc provides the control channel between the sentryd daemon
// and client tools over a Unix socket.
//
// Messages are framed with a fixed 16-byte binary header followed by a
// JSON payload. Requests carry an ID that the response echoes back.
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"sentryd/internal/behavior"
	"sentryd/internal/classifier"
	"sentryd/internal/history"
)

// Protocol constants.
const (
	ProtocolVersion = 1
	ProtocolMagic   = 0x53454e54 // "SENT"
)

// MaxPayloadSize bounds a single message payload.
const MaxPayloadSize = 16 * 1024 * 1024

// MessageType identifies the type of IPC message.
type MessageType uint16

const (
	// Control messages (0x00xx)
	MsgPing     MessageType = 0x0001
	MsgPong     MessageType = 0x0002
	MsgError    MessageType = 0x0005
	MsgShutdown MessageType = 0x0006

	// Status (0x01xx)
	MsgStatusRequest  MessageType = 0x0100
	MsgStatusResponse MessageType = 0x0101

	// Scoring (0x02xx)
	MsgScoreRequest  MessageType = 0x0200
	MsgScoreResponse MessageType = 0x0201
	MsgRefitRequest  MessageType = 0x0202
	MsgRefitResponse MessageType = 0x0203

	// History and posture (0x03xx)
	MsgHistoryRequest       MessageType = 0x0300
	MsgHistoryResponse      MessageType = 0x0301
	MsgPostureRequest       MessageType = 0x0302
	MsgPostureResponse      MessageType = 0x0303
	MsgResetPostureRequest  MessageType = 0x0304
	MsgResetPostureResponse MessageType = 0x0305
)

// Header is the fixed-size message header (16 bytes).
type Header struct {
	Magic     uint32
	Version   uint8
	Flags     uint8
	Type      MessageType
	RequestID uint32
	Length    uint32
}

// HeaderSize is the encoded header size in bytes.
const HeaderSize = 16

// Message wraps a header and payload.
type Message struct {
	Header  Header
	Payload []byte
}

// NewMessage creates a message of the given type.
func NewMessage(msgType MessageType, requestID uint32, payload []byte) *Message {
	return &Message{
		Header: Header{
			Magic:     ProtocolMagic,
			Version:   ProtocolVersion,
			Type:      msgType,
			RequestID: requestID,
			Length:    uint32(len(payload)),
		},
		Payload: payload,
	}
}

// Write encodes the header to w.
func (h *Header) Write(w io.Writer) error {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	buf[4] = h.Version
	buf[5] = h.Flags
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.Type))
	binary.BigEndian.PutUint32(buf[8:12], h.RequestID)
	binary.BigEndian.PutUint32(buf[12:16], h.Length)
	_, err := w.Write(buf)
	return err
}

// ReadHeader decodes a header from r, rejecting foreign or newer
// protocol frames.
func ReadHeader(r io.Reader) (*Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	h := &Header{
		Magic:     binary.BigEndian.Uint32(buf[0:4]),
		Version:   buf[4],
		Flags:     buf[5],
		Type:      MessageType(binary.BigEndian.Uint16(buf[6:8])),
		RequestID: binary.BigEndian.Uint32(buf[8:12]),
		Length:    binary.BigEndian.Uint32(buf[12:16]),
	}
	if h.Magic != ProtocolMagic {
		return nil, fmt.Errorf("invalid magic number: %x", h.Magic)
	}
	if h.Version > ProtocolVersion {
		return nil, fmt.Errorf("unsupported protocol version: %d", h.Version)
	}
	return h, nil
}

// Write encodes the full message to w.
func (m *Message) Write(w io.Writer) error {
	if err := m.Header.Write(w); err != nil {
		return err
	}
	if len(m.Payload) > 0 {
		_, err := w.Write(m.Payload)
		return err
	}
	return nil
}

// ReadMessage reads one complete message from r.
func ReadMessage(r io.Reader) (*Message, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	m := &Message{Header: *h}
	if h.Length > 0 {
		if h.Length > MaxPayloadSize {
			return nil, fmt.Errorf("payload too large: %d bytes", h.Length)
		}
		m.Payload = make([]byte, h.Length)
		if _, err := io.ReadFull(r, m.Payload); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Encode marshals a payload and wraps it into a message.
func Encode(msgType MessageType, requestID uint32, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return NewMessage(msgType, requestID, data), nil
}

// Decode unmarshals a message payload into v.
func Decode(m *Message, v any) error {
	if len(m.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}

// Request/response payloads.

// ErrorResponse is sent when an operation fails.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrUnknown        = 1
	ErrInvalidRequest = 2
	ErrNotFitted      = 3
	ErrInternalError  = 5
)

// StatusResponse describes the daemon's current state.
type StatusResponse struct {
	Version    string         `json:"version"`
	StartedAt  time.Time      `json:"started_at"`
	Uptime     time.Duration  `json:"uptime"`
	Fitted     bool           `json:"fitted"`
	FittedAt   time.Time      `json:"fitted_at,omitempty"`
	CorpusSize int            `json:"corpus_size,omitempty"`
	Posture    int            `json:"posture"`
	Status     history.Status `json:"status"`
	Stats      history.Stats  `json:"stats"`
}

// ScoreRequest submits one sample for assessment.
type ScoreRequest struct {
	Sample behavior.FeatureSample `json:"sample"`
}

// ScoreResponse carries the full threat verdict.
type ScoreResponse struct {
	Verdict classifier.ThreatVerdict `json:"verdict"`
	Posture int                      `json:"posture"`
}

// RefitRequest re-trains the detectors on a freshly generated corpus.
type RefitRequest struct {
	NormalCount     int   `json:"normal_count,omitempty"`
	SuspiciousCount int   `json:"suspicious_count,omitempty"`
	Seed            int64 `json:"seed,omitempty"`
}

// RefitResponse acknowledges a re-fit.
type RefitResponse struct {
	CorpusSize int       `json:"corpus_size"`
	FittedAt   time.Time `json:"fitted_at"`
}

// HistoryRequest asks for recent verdicts.
type HistoryRequest struct {
	// Limit caps the returned entries. Zero returns everything retained.
	Limit int `json:"limit,omitempty"`
}

// HistoryResponse lists verdicts oldest first.
type HistoryResponse struct {
	Verdicts []classifier.ThreatVerdict `json:"verdicts"`
}

// PostureResponse reports the posture score and band.
type PostureResponse struct {
	Posture int            `json:"posture"`
	Status  history.Status `json:"status"`
}
