package avito

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTokenCached(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "client_credentials" {
			t.Errorf("unexpected grant_type %q", r.Form.Get("grant_type"))
		}
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 3600})
	}))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		token, err := client.Token(ctx, "id", "secret")
		if err != nil {
			t.Fatalf("token exchange failed: %v", err)
		}
		if token != "tok-1" {
			t.Fatalf("unexpected token %q", token)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected 1 token request, got %d", n)
	}
}

func TestTokenInvalidate(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	}))

	ctx := context.Background()
	if _, err := client.Token(ctx, "id", "secret"); err != nil {
		t.Fatalf("token exchange failed: %v", err)
	}
	client.InvalidateToken("id")
	if _, err := client.Token(ctx, "id", "secret"); err != nil {
		t.Fatalf("token exchange failed: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("expected 2 token requests, got %d", n)
	}
}

func TestTokenAPIError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusForbidden)
	}))

	if _, err := client.Token(context.Background(), "id", "bad"); err == nil {
		t.Fatalf("expected error on 403")
	}
}

func TestListChats(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messenger/v2/accounts/777/chats" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		if r.URL.Query().Get("limit") != "50" || r.URL.Query().Get("offset") != "100" {
			t.Errorf("unexpected paging params: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"chats":[
			{"id":"chat-1","context":{"value":{"title":"Диван"}},
			 "last_message":{"direction":"in","created":1700000000},
			 "users":[{"id":5,"name":"Иван"}]}
		]}`))
	}))

	chats, err := client.ListChats(context.Background(), "tok", "777", 50, 100, false)
	if err != nil {
		t.Fatalf("list chats failed: %v", err)
	}
	if len(chats) != 1 {
		t.Fatalf("expected 1 chat, got %d", len(chats))
	}
	if chats[0].ID != "chat-1" || chats[0].Title() != "Диван" {
		t.Fatalf("unexpected chat: %+v", chats[0])
	}
	if chats[0].LastActivity() != 1700000000 {
		t.Fatalf("unexpected last activity %d", chats[0].LastActivity())
	}
	if chats[0].Customer().Name != "Иван" {
		t.Fatalf("unexpected customer: %+v", chats[0].Customer())
	}
}

func TestListMessages(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messenger/v3/accounts/777/chats/chat-1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"messages":[
			{"id":"m1","direction":"in","type":"text","created":100,"content":{"text":"Здравствуйте"}},
			{"id":"m2","direction":"out","type":"text","created":200,"content":{"text":"Добрый день"}}
		]}`))
	}))

	messages, err := client.ListMessages(context.Background(), "tok", "777", "chat-1")
	if err != nil {
		t.Fatalf("list messages failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if !messages[0].Inbound() || messages[1].Inbound() {
		t.Fatalf("unexpected directions: %+v", messages)
	}
}

func TestSendMessageTruncates(t *testing.T) {
	var received string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Message struct {
				Text string `json:"text"`
			} `json:"message"`
			Type string `json:"type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		if req.Type != "text" {
			t.Errorf("unexpected type %q", req.Type)
		}
		received = req.Message.Text
	}))

	long := strings.Repeat("a", 3000)
	if err := client.SendMessage(context.Background(), "tok", "777", "chat-1", long); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if got := len([]rune(received)); got != maxMessageLength+3 {
		t.Fatalf("expected truncated length %d, got %d", maxMessageLength+3, got)
	}
	if !strings.HasSuffix(received, "...") {
		t.Fatalf("expected ellipsis suffix")
	}
}

func TestSendMessageTruncatesOnRunes(t *testing.T) {
	var received string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Message struct {
				Text string `json:"text"`
			} `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		received = req.Message.Text
	}))
	ctx := context.Background()

	// The limit counts characters, not bytes: a two-byte-per-rune text
	// under the limit goes through untouched.
	fits := strings.Repeat("д", maxMessageLength)
	if err := client.SendMessage(ctx, "tok", "777", "chat-1", fits); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if received != fits {
		t.Fatalf("message under the limit was modified")
	}

	long := strings.Repeat("д", 2500)
	if err := client.SendMessage(ctx, "tok", "777", "chat-1", long); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if got := len([]rune(received)); got != maxMessageLength+3 {
		t.Fatalf("expected truncated length %d, got %d", maxMessageLength+3, got)
	}
	if strings.ContainsRune(received, '�') {
		t.Fatalf("truncation split a rune")
	}
	if !strings.HasSuffix(received, "д...") {
		t.Fatalf("unexpected tail %q", received[len(received)-12:])
	}
}

func TestSendMessageAPIError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"chat not found"}`, http.StatusNotFound)
	}))

	err := client.SendMessage(context.Background(), "tok", "777", "chat-x", "привет")
	if err == nil {
		t.Fatalf("expected error on 404")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected status in error, got: %v", err)
	}
}
