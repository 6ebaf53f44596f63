package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server HTTP-сервер с корректной остановкой
type Server struct {
	srv    *http.Server
	logger *zap.Logger
	errCh  chan error
}

func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
		errCh:  make(chan error, 1),
	}
}

// Start запускает сервер в фоне
func (s *Server) Start() {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.srv.Addr))

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- err
		}
		close(s.errCh)
	}()
}

// Err закрывается после остановки; ошибка приходит, если сервер упал сам
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Stop дожидается завершения активных запросов не дольше timeout
func (s *Server) Stop(timeout time.Duration) error {
	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
