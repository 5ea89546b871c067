package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"sentryd/internal/logging"
)

// connIdleTimeout disconnects clients that go quiet.
const connIdleTimeout = 5 * time.Minute

// Server serves the control protocol on a Unix socket. Requests are
// dispatched to a Handler; only peers running as the daemon's user are
// accepted.
type Server struct {
	socketPath string
	handler    *Handler
	logger     *logging.Logger

	listener net.Listener
	wg       sync.WaitGroup

	// OnShutdown is invoked once when a client requests shutdown.
	OnShutdown func()

	shutdownOnce sync.Once
}

// NewServer creates a server for the given socket path.
func NewServer(socketPath string, handler *Handler, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	return &Server{
		socketPath: socketPath,
		handler:    handler,
		logger:     logger.WithComponent("ipc"),
	}
}

// Start listens on the socket and serves until the context is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	// Remove a stale socket from a previous run.
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("set socket permissions: %w", err)
	}
	s.listener = listener
	s.logger.Info("control socket listening", "path", s.socketPath)

	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		ok, err := verifyPeer(conn)
		if err != nil || !ok {
			s.logger.Warn("rejected peer", "error", err)
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, conn)
		}()
	}

	s.wg.Wait()
	os.Remove(s.socketPath)
	return nil
}

// serveConn handles one client connection until EOF or error.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	for {
		if ctx.Err() != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(connIdleTimeout))

		req, err := ReadMessage(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.logger.Debug("read failed", "error", err)
			}
			return
		}

		resp := s.handler.Handle(req)

		if req.Header.Type == MsgShutdown {
			s.writeResponse(conn, resp)
			s.shutdownOnce.Do(func() {
				if s.OnShutdown != nil {
					s.OnShutdown()
				}
			})
			return
		}

		if !s.writeResponse(conn, resp) {
			return
		}
	}
}

func (s *Server) writeResponse(conn net.Conn, resp *Message) bool {
	conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
	if err := resp.Write(conn); err != nil {
		s.logger.Debug("write failed", "error", err)
		return false
	}
	return true
}
