package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"edubot-backend/internal/middleware"
	"edubot-backend/internal/models"
	"edubot-backend/internal/services"
)

type stubChatSender struct {
	resp *models.ChatResponse
	err  error
}

func (s *stubChatSender) SendMessage(ctx context.Context, userID uuid.UUID, req models.ChatRequest) (*models.ChatResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

type stubConversationRepo struct {
	conversations map[uuid.UUID]*models.Conversation
	deleted       map[uuid.UUID]bool
}

func newStubConversationRepo() *stubConversationRepo {
	return &stubConversationRepo{
		conversations: make(map[uuid.UUID]*models.Conversation),
		deleted:       make(map[uuid.UUID]bool),
	}
}

func (s *stubConversationRepo) GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.Conversation, error) {
	c, ok := s.conversations[id]
	if !ok || c.UserID != userID || s.deleted[id] {
		return nil, pgx.ErrNoRows
	}
	return c, nil
}

func (s *stubConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error) {
	out := make([]*models.Conversation, 0)
	for _, c := range s.conversations {
		if c.UserID == userID && !s.deleted[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubConversationRepo) DeleteOwned(ctx context.Context, id, userID uuid.UUID) error {
	c, ok := s.conversations[id]
	if !ok || c.UserID != userID || s.deleted[id] {
		return pgx.ErrNoRows
	}
	s.deleted[id] = true
	return nil
}

type stubMessageRepo struct {
	byConversation map[uuid.UUID][]*models.Message
}

func (s *stubMessageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*models.Message, error) {
	return s.byConversation[conversationID], nil
}

func authedRequest(method, target string, body string, userID uuid.UUID) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
}

// routeWithParam runs the handler through a chi router so URL params resolve.
func routeWithParam(method, pattern string, handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, handler)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// ─── Chat Handler Tests ───

func TestChat_InvalidBody(t *testing.T) {
	h := NewChatHandler(&stubChatSender{}, newStubConversationRepo(), &stubMessageRepo{})

	req := authedRequest(http.MethodPost, "/chat", "{not json", uuid.New())
	rr := httptest.NewRecorder()
	h.Chat(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestChat_EmptyMessage(t *testing.T) {
	h := NewChatHandler(&stubChatSender{
		err: &services.ValidationError{Fields: map[string]string{"message": "Le message est requis"}},
	}, newStubConversationRepo(), &stubMessageRepo{})

	req := authedRequest(http.MethodPost, "/chat", `{"message":""}`, uuid.New())
	rr := httptest.NewRecorder()
	h.Chat(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}

	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("expected code VALIDATION_ERROR, got %q", resp.Error.Code)
	}
}

func TestChat_UnknownConversation(t *testing.T) {
	h := NewChatHandler(&stubChatSender{
		err: &services.NotFoundError{Message: "Conversation introuvable"},
	}, newStubConversationRepo(), &stubMessageRepo{})

	req := authedRequest(http.MethodPost, "/chat", `{"message":"salut","conversation_id":"`+uuid.NewString()+`"}`, uuid.New())
	rr := httptest.NewRecorder()
	h.Chat(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestChat_Success(t *testing.T) {
	conversationID := uuid.New()
	messageID := uuid.New()
	h := NewChatHandler(&stubChatSender{
		resp: &models.ChatResponse{
			Response:       "2 + 3 = 5 mangues !",
			ConversationID: conversationID,
			MessageID:      messageID,
		},
	}, newStubConversationRepo(), &stubMessageRepo{})

	req := authedRequest(http.MethodPost, "/chat", `{"message":"Comment fait-on une addition ?","class_level":"cp1"}`, uuid.New())
	rr := httptest.NewRecorder()
	h.Chat(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp models.ChatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ConversationID != conversationID || resp.MessageID != messageID {
		t.Errorf("unexpected ids in response: %+v", resp)
	}
}

// ─── Conversation Query Tests ───

func TestGetConversation_NotOwnedLooksMissing(t *testing.T) {
	repo := newStubConversationRepo()
	owner := uuid.New()
	conversation := &models.Conversation{ID: uuid.New(), UserID: owner}
	repo.conversations[conversation.ID] = conversation

	h := NewChatHandler(&stubChatSender{}, repo, &stubMessageRepo{})

	intruder := uuid.New()
	reqForeign := authedRequest(http.MethodGet, "/conversation/"+conversation.ID.String(), "", intruder)
	rrForeign := routeWithParam(http.MethodGet, "/conversation/{id}", h.GetConversation, reqForeign)

	reqMissing := authedRequest(http.MethodGet, "/conversation/"+uuid.NewString(), "", intruder)
	rrMissing := routeWithParam(http.MethodGet, "/conversation/{id}", h.GetConversation, reqMissing)

	if rrForeign.Code != http.StatusNotFound || rrMissing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for both, got %d and %d", rrForeign.Code, rrMissing.Code)
	}
	if rrForeign.Body.String() != rrMissing.Body.String() {
		t.Error("foreign and missing conversations must return identical bodies")
	}
}

func TestGetConversation_MessagesChronological(t *testing.T) {
	repo := newStubConversationRepo()
	userID := uuid.New()
	conversation := &models.Conversation{ID: uuid.New(), UserID: userID}
	repo.conversations[conversation.ID] = conversation

	t0 := time.Now().Add(-time.Minute)
	messages := &stubMessageRepo{byConversation: map[uuid.UUID][]*models.Message{
		conversation.ID: {
			{ID: uuid.New(), Content: "question", IsUser: true, Timestamp: t0},
			{ID: uuid.New(), Content: "réponse", IsUser: false, Timestamp: t0.Add(time.Second)},
		},
	}}

	h := NewChatHandler(&stubChatSender{}, repo, messages)

	req := authedRequest(http.MethodGet, "/conversation/"+conversation.ID.String(), "", userID)
	rr := routeWithParam(http.MethodGet, "/conversation/{id}", h.GetConversation, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp models.Conversation
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(resp.Messages))
	}
	if !resp.Messages[0].IsUser || resp.Messages[1].IsUser {
		t.Error("messages should come back user turn first")
	}
}

func TestListConversations_EmptyIsArray(t *testing.T) {
	h := NewChatHandler(&stubChatSender{}, newStubConversationRepo(), &stubMessageRepo{})

	req := authedRequest(http.MethodGet, "/conversations", "", uuid.New())
	rr := httptest.NewRecorder()
	h.ListConversations(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("expected empty JSON array, got %q", body)
	}
}

func TestDeleteConversation_SecondDeleteIs404(t *testing.T) {
	repo := newStubConversationRepo()
	userID := uuid.New()
	conversation := &models.Conversation{ID: uuid.New(), UserID: userID}
	repo.conversations[conversation.ID] = conversation

	h := NewChatHandler(&stubChatSender{}, repo, &stubMessageRepo{})

	req1 := authedRequest(http.MethodDelete, "/conversation/"+conversation.ID.String()+"/delete", "", userID)
	rr1 := routeWithParam(http.MethodDelete, "/conversation/{id}/delete", h.DeleteConversation, req1)
	if rr1.Code != http.StatusOK {
		t.Fatalf("first delete: expected %d, got %d", http.StatusOK, rr1.Code)
	}

	req2 := authedRequest(http.MethodDelete, "/conversation/"+conversation.ID.String()+"/delete", "", userID)
	rr2 := routeWithParam(http.MethodDelete, "/conversation/{id}/delete", h.DeleteConversation, req2)
	if rr2.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected %d, got %d", http.StatusNotFound, rr2.Code)
	}
}

func TestDeleteConversation_NotOwned(t *testing.T) {
	repo := newStubConversationRepo()
	conversation := &models.Conversation{ID: uuid.New(), UserID: uuid.New()}
	repo.conversations[conversation.ID] = conversation

	h := NewChatHandler(&stubChatSender{}, repo, &stubMessageRepo{})

	req := authedRequest(http.MethodDelete, "/conversation/"+conversation.ID.String()+"/delete", "", uuid.New())
	rr := routeWithParam(http.MethodDelete, "/conversation/{id}/delete", h.DeleteConversation, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected %d for foreign conversation, got %d", http.StatusNotFound, rr.Code)
	}
}

// ─── Health Handler Tests ───

type stubAI struct{ configured bool }

func (s *stubAI) IsConfigured() bool { return s.configured }

func TestHealthCheck(t *testing.T) {
	for _, configured := range []bool{true, false} {
		h := NewHealthHandler(&stubAI{configured: configured})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		h.Check(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
		}

		var resp map[string]interface{}
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["status"] != "ok" {
			t.Errorf("expected status ok, got %v", resp["status"])
		}
		if resp["gemini_configured"] != configured {
			t.Errorf("expected gemini_configured=%v, got %v", configured, resp["gemini_configured"])
		}
	}
}

// ─── JSON Helper Tests ───

func TestErrorRespIncludesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")

	resp := errorResp("NOT_FOUND", "Conversation introuvable", req)
	if resp.Error.RequestID != "req-42" {
		t.Errorf("expected request id to be echoed, got %q", resp.Error.RequestID)
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusCreated, map[string]string{"message": "ok"})

	if rr.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}

	var out map[string]string
	if err := json.NewDecoder(bytes.NewReader(rr.Body.Bytes())).Decode(&out); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if out["message"] != "ok" {
		t.Errorf("unexpected body %v", out)
	}
}
