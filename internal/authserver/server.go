package authserver

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"

	"phoenix-rest/internal/channel"
	"phoenix-rest/internal/logging"
	"phoenix-rest/internal/protocol"
)

const (
	AuthPath   = "/phoenix/auth"
	HealthPath = "/healthz"

	maxRequestBytes = 64 << 10
	shutdownTimeout = 5 * time.Second
)

// Server answers subscription auth requests from browser clients on behalf
// of the application.
type Server struct {
	addr       string
	router     *httprouter.Router
	authorizer atomic.Pointer[channel.Authorizer]
	policy     Policy
	logger     *logging.Logger
}

type authRequest struct {
	SocketID    string `json:"socket_id"`
	ChannelName string `json:"channel_name"`
}

// New returns a server that signs subscriptions admitted by policy. A nil
// policy denies every request.
func New(addr string, authorizer *channel.Authorizer, policy Policy, logger *logging.Logger) *Server {
	if logger == nil {
		panic("authserver.New: logger must not be nil")
	}
	if policy == nil {
		policy = DenyAll
	}
	s := &Server{
		addr:   addr,
		router: httprouter.New(),
		policy: policy,
		logger: logger,
	}
	s.authorizer.Store(authorizer)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.POST(AuthPath, s.handleAuth)
	s.router.GET(HealthPath, s.handleHealth)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// SetAuthorizer swaps the credentials used for subsequent requests.
func (s *Server) SetAuthorizer(authorizer *channel.Authorizer) {
	s.authorizer.Store(authorizer)
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()
	s.logger.Info("auth server listening", logging.Field("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	req, err := decodeAuthRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	customData, err := s.policy(r, req.ChannelName, req.SocketID)
	if err != nil {
		s.logger.Warn("auth request denied",
			logging.Field("channel", req.ChannelName),
			logging.Field("remote", r.RemoteAddr),
			logging.Field("error", err),
		)
		writeError(w, http.StatusForbidden, ErrForbidden)
		return
	}
	payload, err := s.authorizer.Load().Authorize(req.ChannelName, req.SocketID, customData)
	switch {
	case err == nil:
	case errors.Is(err, protocol.ErrConfiguration):
		s.logger.Error("auth request failed", logging.Field("error", err))
		writeError(w, http.StatusServiceUnavailable, errors.New("server is not configured"))
		return
	default:
		s.logger.Warn("auth request rejected",
			logging.Field("channel", req.ChannelName),
			logging.Field("socket_id", req.SocketID),
			logging.Field("error", err),
		)
		writeError(w, http.StatusForbidden, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// decodeAuthRequest accepts a JSON body or form values. Any channel_data
// sent by the caller is ignored.
func decodeAuthRequest(r *http.Request) (authRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req authRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return authRequest{}, errors.New("invalid JSON body")
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return authRequest{}, errors.New("invalid form body")
	}
	return authRequest{
		SocketID:    r.PostForm.Get("socket_id"),
		ChannelName: r.PostForm.Get("channel_name"),
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
