package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	_ "net/http/pprof" // Profiling
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kelvintronic/inhabited/internal/engine"
	"github.com/Kelvintronic/inhabited/internal/network"
	"github.com/Kelvintronic/inhabited/internal/version"
	"github.com/Kelvintronic/inhabited/pkg/logger"
)

// KeyParam - query-параметр с ключом подключения.
const KeyParam = "key"

const shutdownTimeout = 5 * time.Second

type Server struct {
	cfg   engine.ServerConfig
	hub   *network.Hub
	state StateSource
	log   *logrus.Entry
}

func New(cfg engine.ServerConfig, hub *network.Hub, state StateSource) *Server {
	return &Server{
		cfg:   cfg,
		hub:   hub,
		state: state,
		log:   logger.WithComponent("http"),
	}
}

// Handler собирает роуты. Отдельно от Run, чтобы тесты могли поднять
// его в httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", enableCORS(s.handleHealth))
	mux.HandleFunc("/version", enableCORS(s.handleVersion))

	if s.state != nil {
		NewDebugHandler(s.state).RegisterRoutes(mux)
	}
	// pprof регистрируется в DefaultServeMux
	mux.Handle("/debug/pprof/", http.DefaultServeMux)
	return mux
}

// Run слушает addr до отмены ctx, затем мягко останавливает сервер.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Inhabited server running on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Разрешаем запросы с фронтенда
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		next(w, r)
	}
}

// handleWS проверяет ключ, заводит пира и запускает пампы.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get(KeyParam) != s.cfg.ConnectionKey {
		http.Error(w, "bad connection key", http.StatusForbidden)
		s.log.WithField("remote", r.RemoteAddr).Warn("Connection refused: bad key")
		return
	}

	session := uuid.NewString()
	peer, err := s.hub.Register(session)
	if err != nil {
		http.Error(w, "server busy", http.StatusServiceUnavailable)
		s.log.WithError(err).Warn("Connection refused")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.hub.Unregister(peer.ID())
		s.log.WithError(err).Error("Upgrade error")
		return
	}

	client := NewClient(s.hub, conn, peer, s.cfg.MaxMessageSize)
	go client.writePump()
	go client.readPump()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(version.Info())
}
