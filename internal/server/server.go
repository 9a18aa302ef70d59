package server

import (
	"context"
	"fmt"
	"messenger-demo/internal/storage"
	"net/http"
	"os"
	"os/signal"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"
)

// Server defines fields used in HTTP processing
type Server struct {
	logger        *zap.SugaredLogger
	httpServer    *http.Server
	afterShutdown []func()
	h             handler
}

// NewServer wires every store operation to a POST-JSON endpoint and
// applies the provided options on top of the defaults.
func NewServer(logger *zap.SugaredLogger, store *storage.Store, opts ...Option) (*Server, error) {
	srv := &Server{
		logger: logger,
		h: handler{
			logger: logger,
			store:  store,
			parsers: parsers{
				registerPool:    fastjson.ParserPool{},
				createChatPool:  fastjson.ParserPool{},
				sendMessagePool: fastjson.ParserPool{},
				createStoryPool: fastjson.ParserPool{},
				listChatsPool:   fastjson.ParserPool{},
			},
		},
	}

	cfg := &config{
		httpServer: &http.Server{Addr: "0.0.0.0:9000"},
		handlers: map[string]http.Handler{
			"/auth/register":        http.HandlerFunc(srv.h.register),
			"/auth/login":           http.HandlerFunc(srv.h.login),
			"/auth/logout":          http.HandlerFunc(srv.h.logout),
			"/chats/create":         http.HandlerFunc(srv.h.createChat),
			"/chats/open":           http.HandlerFunc(srv.h.openChat),
			"/chats/read":           http.HandlerFunc(srv.h.markChatRead),
			"/chats/get":            http.HandlerFunc(srv.h.listChats),
			"/messages/send":        http.HandlerFunc(srv.h.sendMessage),
			"/channels/subscribe":   http.HandlerFunc(srv.h.subscribeChannel),
			"/channels/unsubscribe": http.HandlerFunc(srv.h.unsubscribeChannel),
			"/stories/create":       http.HandlerFunc(srv.h.createStory),
			"/stories/view":         http.HandlerFunc(srv.h.viewStory),
			"/stories/get":          http.HandlerFunc(srv.h.listStories),
			"/users/search":         http.HandlerFunc(srv.h.searchUsers),
		},
	}

	for _, opt := range opts {
		opt.apply(cfg)
	}

	// wrapping order: enforcePostJson innermost, then log, then the mux
	applyEnforcePostJson().apply(cfg)
	applyLog(logger.Desugar()).apply(cfg)
	registerHandlers().apply(cfg)

	srv.httpServer = cfg.httpServer
	srv.afterShutdown = cfg.afterShutdown

	return srv, nil
}

// Start calls ListenAndServe on http.Server instance inside Server struct
// and implements graceful shutdown via goroutine waiting for signals
func (s *Server) Start() error {
	idleConnsClosed := make(chan struct{})

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		s.logger.Info("Shutting down HTTP server")

		if err := s.httpServer.Shutdown(context.Background()); err != nil {
			s.logger.Errorf("srv.Shutdown: %v", err)
		}
		s.logger.Info("HTTP server is stopped")

		close(idleConnsClosed)
	}()

	s.logger.Infof("Starting HTTP server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("s.httpServer.ListenAndServe: %v", err)
	}

	<-idleConnsClosed

	s.logger.Info("Closing store")
	s.h.store.Close()
	s.logger.Info("Store is closed")

	for _, f := range s.afterShutdown {
		f()
	}

	return nil
}
