package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/codex-mohan/autonix/conversation"
	"github.com/codex-mohan/autonix/graph"
	"github.com/codex-mohan/autonix/imageutil"
	"github.com/codex-mohan/autonix/prebuilt"
	"github.com/codex-mohan/autonix/registry"
	"github.com/codex-mohan/autonix/state"
	"github.com/codex-mohan/autonix/tool"
)

const maxBodyBytes = 4 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) selectModel(providerName, model string) (string, string) {
	if providerName == "" {
		providerName = s.provider
	}
	if model == "" {
		model = s.model
	}
	return providerName, model
}

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	ThreadID       string        `json:"thread_id"`
	ConversationID string        `json:"conversation_id,omitempty"`
	UserID         string        `json:"user_id,omitempty"`
	Provider       string        `json:"provider,omitempty"`
	Model          string        `json:"model,omitempty"`
	Message        string        `json:"message"`
	Images         []state.Image `json:"images,omitempty"`
}

// ChatResponse is the answer of POST /v1/chat. Messages holds every message
// the turn added, starting with the human message.
type ChatResponse struct {
	ThreadID string          `json:"thread_id"`
	Reply    state.Message   `json:"reply"`
	Messages []state.Message `json:"messages"`
}

func (s *Server) chatGraph(providerName, model string) (*prebuilt.ConversationGraph, error) {
	client, err := s.models.Build(providerName, model, prebuilt.ChatbotLLMConfig())
	if err != nil {
		return nil, err
	}
	opts := []prebuilt.ChatbotOption{prebuilt.WithChatbotLogger(s.logger)}
	if s.checkpointer != nil {
		opts = append(opts, prebuilt.WithCheckpointer(s.checkpointer))
	}
	return prebuilt.NewChatbotGraph(client, tool.NewExecutor(s.tools...), opts...)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" && len(req.Images) == 0 {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	for i, img := range req.Images {
		if _, err := imageutil.FormatFromMIME(img.MIMEType); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("images[%d]: %v", i, err))
			return
		}
		if img.Data == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("images[%d]: data is required", i))
			return
		}
	}
	if req.ThreadID == "" {
		req.ThreadID = uuid.NewString()
	}
	providerName, model := s.selectModel(req.Provider, req.Model)

	g, err := s.chatGraph(providerName, model)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	human := state.Human(req.Message, req.Images...)
	human.ID = uuid.NewString()
	out, err := g.InvokeWithConfig(r.Context(), state.ConversationState{
		ThreadID:       req.ThreadID,
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		Provider:       providerName,
		MainLLM:        model,
		Messages:       []state.Message{human},
	}, &graph.Config{
		ThreadID:  req.ThreadID,
		Listeners: []graph.NodeListener{graph.LogListener(s.logger)},
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	added := messagesFrom(out.Messages, human.ID)
	if s.conversations != nil && req.ConversationID != "" {
		if err := s.persist(r, req.ConversationID, added); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	reply, _ := out.LastMessage()
	writeJSON(w, http.StatusOK, ChatResponse{ThreadID: req.ThreadID, Reply: reply, Messages: added})
}

// messagesFrom returns the suffix of ms starting at the message with id.
func messagesFrom(ms []state.Message, id string) []state.Message {
	for i, m := range ms {
		if m.ID == id {
			return ms[i:]
		}
	}
	return ms
}

// persist appends ms to the active branch of the conversation.
func (s *Server) persist(r *http.Request, conversationID string, ms []state.Message) error {
	path, err := s.conversations.MessagePath(r.Context(), conversationID, "")
	if err != nil {
		return err
	}
	parent := ""
	if len(path) > 0 {
		parent = path[len(path)-1].ID
	}
	for _, m := range ms {
		stored, err := s.conversations.AddMessage(r.Context(), conversation.FromState(conversationID, parent, m))
		if err != nil {
			return err
		}
		parent = stored.ID
	}
	return nil
}

// OrchestrateRequest is the body of POST /v1/orchestrate. Without Messages,
// the history is the active branch of ConversationID when a conversation
// store is configured.
type OrchestrateRequest struct {
	SessionID      string          `json:"session_id,omitempty"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Provider       string          `json:"provider,omitempty"`
	Model          string          `json:"model,omitempty"`
	Messages       []state.Message `json:"messages,omitempty"`
	Message        string          `json:"message,omitempty"`
}

func (s *Server) handleOrchestrate(w http.ResponseWriter, r *http.Request) {
	var req OrchestrateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	messages := req.Messages
	if len(messages) == 0 && req.ConversationID != "" && s.conversations != nil {
		path, err := s.conversations.MessagePath(r.Context(), req.ConversationID, "")
		if err != nil {
			s.fail(w, r, err)
			return
		}
		messages = conversation.ToState(path)
	}
	if req.Message != "" {
		messages = append(messages, state.Human(req.Message))
	}
	if len(messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required")
		return
	}
	for _, m := range messages {
		if !m.Role.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid message role %q", m.Role))
			return
		}
	}
	providerName, model := s.selectModel(req.Provider, req.Model)

	g, err := prebuilt.NewOrchestratorGraph(s.models,
		prebuilt.WithLLMConfig(s.llm),
		prebuilt.WithOrchestratorLogger(s.logger))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := g.Invoke(r.Context(), state.ConversationState{
		SessionID:      req.SessionID,
		ConversationID: req.ConversationID,
		Provider:       providerName,
		MainLLM:        model,
		Messages:       messages,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// SuggestRequest is the body of POST /v1/suggest.
type SuggestRequest struct {
	Question     string `json:"question"`
	NumQuestions int    `json:"num_questions,omitempty"`
	Provider     string `json:"provider,omitempty"`
	Model        string `json:"model,omitempty"`
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	providerName, model := s.selectModel(req.Provider, req.Model)

	client, err := s.models.Build(providerName, model, prebuilt.SuggestLLMConfig())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	g, err := prebuilt.NewSuggestGraph(client)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := g.Invoke(r.Context(), prebuilt.SuggestState{Question: req.Question, NumQuestions: req.NumQuestions})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"questions": out.Suggestions})
}

func (s *Server) handleTitle(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "URL parameter is required.")
		return
	}
	title, err := tool.FetchTitle(r.Context(), s.httpClient, url)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"title": title})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	out := map[string][]registry.ModelDescriptor{}
	for _, p := range s.registry.Providers() {
		out[p] = s.registry.Models(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var mermaid string
	switch name {
	case "chatbot":
		g, err := s.chatGraph(s.provider, s.model)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		mermaid = g.DrawMermaid()
	case "orchestrator":
		g, err := prebuilt.NewOrchestratorGraph(s.models)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		mermaid = g.DrawMermaid()
	case "suggest":
		client, err := s.models.Build(s.provider, s.model, prebuilt.SuggestLLMConfig())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		g, err := prebuilt.NewSuggestGraph(client)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		mermaid = g.DrawMermaid()
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown graph %q", name))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(mermaid))
}

var errNoConversations = errors.New("conversation store is not configured")

func (s *Server) requireConversations(w http.ResponseWriter) bool {
	if s.conversations == nil {
		writeError(w, http.StatusServiceUnavailable, errNoConversations.Error())
		return false
	}
	return true
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	if !s.requireConversations(w) {
		return
	}
	var req struct {
		UserID string `json:"user_id"`
		Title  string `json:"title"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	c, err := s.conversations.Create(r.Context(), req.UserID, req.Title)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	if !s.requireConversations(w) {
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	list, err := s.conversations.List(r.Context(), userID, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleMessagePath(w http.ResponseWriter, r *http.Request) {
	if !s.requireConversations(w) {
		return
	}
	path, err := s.conversations.MessagePath(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("leaf"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, path)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if !s.requireConversations(w) {
		return
	}
	path, err := s.conversations.MessagePath(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("leaf"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(conversation.RenderTranscript(path)))
}

func (s *Server) handleBranches(w http.ResponseWriter, r *http.Request) {
	if !s.requireConversations(w) {
		return
	}
	branches, err := s.conversations.Branches(r.Context(), chi.URLParam(r, "messageID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, branches)
}

func (s *Server) handleSwitchBranch(w http.ResponseWriter, r *http.Request) {
	if !s.requireConversations(w) {
		return
	}
	var req struct {
		MessageID string `json:"message_id"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.MessageID == "" {
		writeError(w, http.StatusBadRequest, "message_id is required")
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.conversations.SwitchBranch(r.Context(), id, req.MessageID); err != nil {
		s.fail(w, r, err)
		return
	}
	path, err := s.conversations.MessagePath(r.Context(), id, "")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, path)
}

func (s *Server) handleConversationGraph(w http.ResponseWriter, r *http.Request) {
	if !s.requireConversations(w) {
		return
	}
	tree, err := s.conversations.Graph(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// SnapshotRequest is the body of POST /v1/conversations/{id}/snapshots.
type SnapshotRequest struct {
	MessageID string          `json:"message_id"`
	Name      string          `json:"name,omitempty"`
	State     json.RawMessage `json:"state"`
}

func (s *Server) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.requireConversations(w) {
		return
	}
	var req SnapshotRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.MessageID == "" {
		writeError(w, http.StatusBadRequest, "message_id is required")
		return
	}
	if len(req.State) == 0 || string(req.State) == "null" {
		writeError(w, http.StatusBadRequest, "state is required")
		return
	}
	snap, err := s.conversations.CreateSnapshot(r.Context(), chi.URLParam(r, "id"), req.MessageID, req.Name, req.State)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if !s.requireConversations(w) {
		return
	}
	snaps, err := s.conversations.Snapshots(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}
