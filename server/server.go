// Package server exposes the chat graphs over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/codex-mohan/autonix/conversation"
	"github.com/codex-mohan/autonix/llmconfig"
	"github.com/codex-mohan/autonix/log"
	"github.com/codex-mohan/autonix/prebuilt"
	"github.com/codex-mohan/autonix/registry"
	"github.com/codex-mohan/autonix/store"
	"github.com/codex-mohan/autonix/tool"
)

// ConversationStore is the part of *conversation.Store the API serves.
type ConversationStore interface {
	Create(ctx context.Context, userID, title string) (*conversation.Conversation, error)
	List(ctx context.Context, userID string, limit int) ([]conversation.Conversation, error)
	MessagePath(ctx context.Context, conversationID, leafID string) ([]conversation.Message, error)
	AddMessage(ctx context.Context, nm conversation.NewMessage) (*conversation.Message, error)
	SwitchBranch(ctx context.Context, conversationID, messageID string) error
	Branches(ctx context.Context, parentID string) ([]conversation.Message, error)
	Graph(ctx context.Context, conversationID string) (*conversation.Tree, error)
	CreateSnapshot(ctx context.Context, conversationID, messageID, name string, data json.RawMessage) (*conversation.Snapshot, error)
	Snapshots(ctx context.Context, conversationID string) ([]conversation.Snapshot, error)
}

var _ ConversationStore = (*conversation.Store)(nil)

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	models        prebuilt.ModelBuilder
	registry      *registry.Registry
	checkpointer  store.CheckpointStore
	conversations ConversationStore
	tools         []tool.Tool
	httpClient    *http.Client

	provider string
	model    string
	llm      llmconfig.LLMConfig

	logger     log.Logger
	httpLogger log.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithRegistry sets the catalog served by /v1/models.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Server) {
		s.registry = r
	}
}

// WithCheckpointer persists chat threads.
func WithCheckpointer(cp store.CheckpointStore) Option {
	return func(s *Server) {
		s.checkpointer = cp
	}
}

// WithConversations enables the /v1/conversations routes.
func WithConversations(cs ConversationStore) Option {
	return func(s *Server) {
		s.conversations = cs
	}
}

// WithTools sets the tools offered to the chatbot.
func WithTools(ts ...tool.Tool) Option {
	return func(s *Server) {
		s.tools = ts
	}
}

// WithHTTPClient sets the client used by /v1/title.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) {
		s.httpClient = c
	}
}

// WithDefaultModel sets the model used when a request names none.
func WithDefaultModel(provider, model string) Option {
	return func(s *Server) {
		s.provider, s.model = provider, model
	}
}

// WithLLMConfig sets the generation parameters of the orchestrator.
func WithLLMConfig(cfg llmconfig.LLMConfig) Option {
	return func(s *Server) {
		s.llm = cfg
	}
}

// WithLogger sets the application logger.
func WithLogger(l log.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithHTTPLogger sets the logger used for request lines.
func WithHTTPLogger(l log.Logger) Option {
	return func(s *Server) {
		s.httpLogger = l
	}
}

// New returns a Server building its models with models.
func New(models prebuilt.ModelBuilder, opts ...Option) *Server {
	s := &Server{
		models:   models,
		registry: registry.Default(),
		provider: prebuilt.DefaultChatbotProvider,
		model:    prebuilt.DefaultChatbotModel,
		llm:      llmconfig.Default(),
		logger:   log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.httpLogger == nil {
		s.httpLogger = s.logger
	}
	return s
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}
