package ipc

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"sentryd/internal/behavior"
	"sentryd/internal/classifier"
)

// requestTimeout bounds one request/response round trip.
const requestTimeout = 30 * time.Second

// Client is a control-socket client. Safe for concurrent use; requests
// are serialized over the single connection.
type Client struct {
	conn      net.Conn
	mu        sync.Mutex
	requestID uint32
}

// Dial connects to the daemon's control socket.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w (is sentryd running?)", socketPath, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// roundTrip sends one request and decodes its response into out.
func (c *Client) roundTrip(msgType MessageType, payload any, wantType MessageType, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requestID++
	req, err := Encode(msgType, c.requestID, payload)
	if err != nil {
		return err
	}

	c.conn.SetDeadline(time.Now().Add(requestTimeout))
	if err := req.Write(c.conn); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	resp, err := ReadMessage(c.conn)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.Header.RequestID != c.requestID {
		return fmt.Errorf("response for request %d, expected %d", resp.Header.RequestID, c.requestID)
	}
	if resp.Header.Type == MsgError {
		var errResp ErrorResponse
		if err := Decode(resp, &errResp); err != nil {
			return errors.New("daemon returned an unreadable error")
		}
		return fmt.Errorf("daemon error %d: %s", errResp.Code, errResp.Message)
	}
	if resp.Header.Type != wantType {
		return fmt.Errorf("unexpected response type %#04x", uint16(resp.Header.Type))
	}
	if out != nil {
		return Decode(resp, out)
	}
	return nil
}

// Ping checks daemon liveness.
func (c *Client) Ping() error {
	return c.roundTrip(MsgPing, nil, MsgPong, nil)
}

// Status fetches daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.roundTrip(MsgStatusRequest, nil, MsgStatusResponse, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Score submits one sample for assessment.
func (c *Client) Score(sample behavior.FeatureSample) (*ScoreResponse, error) {
	var resp ScoreResponse
	if err := c.roundTrip(MsgScoreRequest, ScoreRequest{Sample: sample}, MsgScoreResponse, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refit re-trains the detectors. Zero-valued fields use the daemon's
// configured corpus parameters.
func (c *Client) Refit(req RefitRequest) (*RefitResponse, error) {
	var resp RefitResponse
	if err := c.roundTrip(MsgRefitRequest, req, MsgRefitResponse, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History fetches recent verdicts, oldest first.
func (c *Client) History(limit int) ([]classifier.ThreatVerdict, error) {
	var resp HistoryResponse
	if err := c.roundTrip(MsgHistoryRequest, HistoryRequest{Limit: limit}, MsgHistoryResponse, &resp); err != nil {
		return nil, err
	}
	return resp.Verdicts, nil
}

// Posture fetches the posture score and band.
func (c *Client) Posture() (*PostureResponse, error) {
	var resp PostureResponse
	if err := c.roundTrip(MsgPostureRequest, nil, MsgPostureResponse, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResetPosture restores the posture score to its starting value.
func (c *Client) ResetPosture() (*PostureResponse, error) {
	var resp PostureResponse
	if err := c.roundTrip(MsgResetPostureRequest, nil, MsgResetPostureResponse, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon to exit.
func (c *Client) Shutdown() error {
	return c.roundTrip(MsgShutdown, nil, MsgShutdown, nil)
}
