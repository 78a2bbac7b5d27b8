package sync

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"mediatrack/internal/auth"
)

const handshakeTimeout = 10 * time.Second

// Server is the line-oriented TCP event feed. A client sends its bearer token
// as the first line and then receives one JSON event per line.
type Server struct {
	Addr   string
	Hub    *Hub
	Auth   *auth.Authenticator
	Logger *slog.Logger
}

func NewServer(addr string, hub *Hub, a *auth.Authenticator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Addr: addr, Hub: hub, Auth: a, Logger: logger}
}

// Run listens on Addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listen tcp sync: %w", err)
	}
	s.Logger.Info("tcp sync listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.Logger.Warn("tcp sync accept failed", "error", err)
			continue
		}
		go s.handle(ctx, conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr().String()
	sc := bufio.NewScanner(conn)

	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	if !sc.Scan() {
		_ = conn.Close()
		return
	}
	raw := strings.TrimSpace(sc.Text())
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))

	claims, err := s.Auth.Verify(ctx, raw)
	if err != nil {
		_, _ = conn.Write([]byte(`{"type":"error","message":"invalid token"}` + "\n"))
		_ = conn.Close()
		s.Logger.Info("tcp sync rejected client", "remote", remote)
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	_, _ = conn.Write([]byte(`{"type":"welcome","transport":"tcp"}` + "\n"))
	s.Hub.Add(claims.UserID, conn)
	s.Logger.Info("tcp sync client connected", "remote", remote, "user_id", claims.UserID)

	defer func() {
		s.Hub.Remove(conn)
		s.Logger.Info("tcp sync client disconnected", "remote", remote, "user_id", claims.UserID)
	}()

	// incoming lines are ignored; the loop ends when the client goes away
	for sc.Scan() {
	}
}
