package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/electr1fy0/scribe/storage"
)

// TokenHeader carries the shared secret on the upgrade request.
const TokenHeader = "X-Scribe-Token"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server exposes a storage.Repository over a websocket so several clients
// can share one notebook.
type Server struct {
	repo  storage.Repository
	hub   *Hub
	token string
	log   zerolog.Logger
}

type Option func(*Server)

// WithToken requires clients to present token on connect.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) { s.log = log }
}

func New(repo storage.Repository, opts ...Option) *Server {
	s := &Server{repo: repo, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(s.log)
	return s
}

// Start runs the hub until ctx is done. Handler must not be used before
// Start.
func (s *Server) Start(ctx context.Context) {
	go s.hub.Run(ctx)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.wsHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.Start(ctx)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info().Msg("server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	got := r.Header.Get(TokenHeader)
	if got == "" {
		got = r.URL.Query().Get("token")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) == 1
}

func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("rejected connection: bad token")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("upgrade failed")
		return
	}
	p := &peer{ws: conn}
	s.hub.Register(p)
	var inflight sync.WaitGroup
	defer func() {
		inflight.Wait()
		s.hub.Unregister(p)
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug().Err(err).Msg("read failed")
			}
			return
		}

		var req Request
		if err := json.Unmarshal(msg, &req); err != nil {
			s.log.Warn().Err(err).Msg("invalid request")
			_ = p.write(Response{Error: "invalid request", Code: CodeBadRequest})
			continue
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			resp, changedID := s.handle(r.Context(), req)
			if err := p.write(resp); err != nil {
				s.log.Debug().Err(err).Uint64("req", req.ID).Msg("write failed")
				return
			}
			if changedID != "" {
				s.hub.Broadcast(p, changedID)
			}
		}()
	}
}

// handle executes one request. A non-empty changedID means the notebook
// was mutated and other peers should hear about it.
func (s *Server) handle(ctx context.Context, req Request) (resp Response, changedID string) {
	resp.ID = req.ID
	log := s.log.With().Uint64("req", req.ID).Str("op", string(req.Op)).Str("note", req.NoteID).Logger()

	var err error
	switch req.Op {
	case OpLoadNotes:
		resp.Notes, err = s.repo.LoadNotes(ctx)
		if resp.Notes == nil {
			resp.Notes = []storage.Note{}
		}
	case OpCreateNote:
		var n storage.Note
		if n, err = s.repo.CreateNote(ctx, req.Title, req.Content); err == nil {
			resp.Note = &n
			changedID = n.ID
		}
	case OpUpdateNote:
		if req.NoteID == "" {
			return badRequest(resp, "note_id is required"), ""
		}
		var n storage.Note
		if n, err = s.repo.UpdateNote(ctx, req.NoteID, req.Title, req.Content); err == nil {
			resp.Note = &n
			changedID = n.ID
		}
	case OpDeleteNote:
		if req.NoteID == "" {
			return badRequest(resp, "note_id is required"), ""
		}
		if err = s.repo.DeleteNote(ctx, req.NoteID); err == nil {
			resp.NoteID = req.NoteID
			changedID = req.NoteID
		}
	default:
		return badRequest(resp, fmt.Sprintf("unknown op %q", req.Op)), ""
	}

	if err != nil {
		log.Warn().Err(err).Msg("request failed")
		resp.Error = err.Error()
		resp.Code = errorCode(err)
		return resp, ""
	}
	log.Debug().Msg("request served")
	return resp, changedID
}

func badRequest(resp Response, msg string) Response {
	resp.Error = msg
	resp.Code = CodeBadRequest
	return resp
}
