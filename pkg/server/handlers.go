package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/barekit/folio/pkg/agent"
	"github.com/barekit/folio/pkg/llm"
)

const errInvalidMessage = "Message is required and must be a string"

// MaxChatBodyBytes caps the size of a chat request body.
const MaxChatBodyBytes = 1 << 20

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message             json.RawMessage `json:"message"`
	ConversationHistory []llm.Message   `json:"conversationHistory"`
	SessionID           string          `json:"sessionId,omitempty"`
}

// ErrorResponse is the JSON body of every non-streamed failure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status        string `json:"status"`
	KnowledgeBase bool   `json:"knowledgeBase"`
	Chunks        int    `json:"chunks"`
}

// SessionResponse is the body of GET /api/sessions/{id}.
type SessionResponse struct {
	SessionID    string        `json:"sessionId"`
	MessageCount int64         `json:"messageCount"`
	Messages     []llm.Message `json:"messages"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if s.knowledge != nil {
		resp.KnowledgeBase = s.knowledge.IsInitialized()
		resp.Chunks = s.knowledge.Len()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	body := http.MaxBytesReader(w, r.Body, MaxChatBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: errInvalidMessage})
		return
	}
	var message string
	if err := json.Unmarshal(req.Message, &message); err != nil || message == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: errInvalidMessage})
		return
	}

	stream, err := s.agent.Ask(r.Context(), agent.Request{
		Message:   message,
		History:   req.ConversationHistory,
		SessionID: req.SessionID,
	})
	if errors.Is(err, agent.ErrEmptyMessage) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: errInvalidMessage})
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	// Hold the headers until the first fragment so that an early failure
	// can still be reported as a JSON error.
	first, ok := <-stream
	if ok && first.Err != nil {
		s.internalError(w, r, first.Err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if !ok {
		return
	}

	rc := http.NewResponseController(w)
	write := func(content string) bool {
		if _, err := w.Write([]byte(content)); err != nil {
			return false
		}
		return rc.Flush() == nil
	}

	if !write(first.Content) {
		return
	}
	fragments := 1
	for chunk := range stream {
		if chunk.Err != nil {
			s.logger.Error("streaming error", "path", r.URL.Path, "fragments", fragments, "error", chunk.Err)
			// Abort the connection so the client sees a truncated stream.
			panic(http.ErrAbortHandler)
		}
		if !write(chunk.Content) {
			return
		}
		fragments++
	}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.memory == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Session memory is not configured"})
		return
	}

	id := r.PathValue("id")
	messages, err := s.memory.Load(r.Context(), id)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	count, err := s.memory.Count(r.Context(), id)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if messages == nil {
		messages = []llm.Message{}
	}

	writeJSON(w, http.StatusOK, SessionResponse{
		SessionID:    id,
		MessageCount: count,
		Messages:     messages,
	})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("chat request failed", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "Internal server error",
		Details: err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
