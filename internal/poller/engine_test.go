package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mixelka/avitorelay/internal/autoreply"
	"github.com/mixelka/avitorelay/internal/avito"
	"github.com/mixelka/avitorelay/internal/config"
	"github.com/mixelka/avitorelay/internal/database"
	"github.com/mixelka/avitorelay/pkg/models"
)

// fakeMessenger serves the chat listing and per-chat message endpoints
// backed by mutable in-memory state.
type fakeMessenger struct {
	mu       sync.Mutex
	chats    []models.Conversation
	messages map[string][]models.Message
	offsets  []int
}

func (f *fakeMessenger) setChat(conv models.Conversation, msgs []models.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.chats {
		if f.chats[i].ID == conv.ID {
			f.chats[i] = conv
			f.messages[conv.ID] = msgs
			return
		}
	}
	f.chats = append(f.chats, conv)
	f.messages[conv.ID] = msgs
}

func (f *fakeMessenger) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/token/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/messenger/v2/accounts/777/chats", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		f.offsets = append(f.offsets, offset)

		page := []models.Conversation{}
		if offset < len(f.chats) {
			end := offset + limit
			if end > len(f.chats) {
				end = len(f.chats)
			}
			page = f.chats[offset:end]
		}
		json.NewEncoder(w).Encode(map[string]any{"chats": page})
	})
	mux.HandleFunc("/messenger/v3/accounts/777/chats/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		// path: .../chats/{id}/messages
		chatID := strings.TrimPrefix(r.URL.Path, "/messenger/v3/accounts/777/chats/")
		chatID = strings.TrimSuffix(chatID, "/messages")
		json.NewEncoder(w).Encode(map[string]any{"messages": f.messages[chatID]})
	})
	return mux
}

type stubNotifier struct {
	mu            sync.Mutex
	notifications []string // message texts surfaced to the operator
	tokenFailures int
}

func (n *stubNotifier) NotifyNewMessage(ctx context.Context, account *models.Account, conv *models.Conversation, msg *models.Message) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, msg.Content.Text)
	return 42, nil
}

func (n *stubNotifier) NotifyTokenFailure(ctx context.Context, account *models.Account, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tokenFailures++
}

type stubScheduler struct {
	mu     sync.Mutex
	keys   []string
	delays []time.Duration
}

func (s *stubScheduler) Schedule(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	s.delays = append(s.delays, delay)
}

type stubExecutor struct{}

func (stubExecutor) Execute(ctx context.Context, task autoreply.Task) autoreply.Outcome {
	return autoreply.OutcomeSkipped
}

type pollFixture struct {
	engine    *Engine
	db        *database.DB
	fake      *fakeMessenger
	notifier  *stubNotifier
	scheduler *stubScheduler
	account   *models.Account
}

func newPollFixture(t *testing.T, mode models.AutomationMode) *pollFixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	if err := db.SetPollingEnabled(ctx, true); err != nil {
		t.Fatalf("failed to enable polling: %v", err)
	}

	fake := &fakeMessenger{messages: map[string][]models.Message{}}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := avito.NewClient(avito.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, logger)

	account := &models.Account{
		Name:         "shop",
		ClientID:     "cid",
		ClientSecret: "cs",
		ProfileID:    "777",
		IsActive:     true,
		Mode:         mode,
	}
	if err := db.CreateAccount(ctx, account); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}

	notifier := &stubNotifier{}
	scheduler := &stubScheduler{}
	engine := NewEngine(Deps{
		Config: &config.Config{
			ActivePeriodDays:  30,
			DefaultReplyDelay: 1,
			PollInterval:      time.Minute,
		},
		DB:        db,
		Avito:     client,
		Notifier:  notifier,
		Scheduler: scheduler,
		Executor:  stubExecutor{},
		Logger:    logger,
	})

	return &pollFixture{engine: engine, db: db, fake: fake, notifier: notifier, scheduler: scheduler, account: account}
}

func conv(id string, lastActivity int64) models.Conversation {
	return models.Conversation{
		ID:          id,
		Context:     models.ChatContext{Value: models.ChatContextValue{Title: "Объявление"}},
		LastMessage: &models.LastMessage{Direction: models.DirectionIn, Created: lastActivity},
		Users:       []models.ChatUser{{ID: 1, Name: "Клиент"}},
	}
}

func inMsg(id string, created int64, text string) models.Message {
	return models.Message{ID: id, Direction: models.DirectionIn, Type: models.MessageTypeText,
		Created: created, Content: models.MessageContent{Text: text}}
}

func TestCycleSkippedWhenStopped(t *testing.T) {
	f := newPollFixture(t, models.ModeOff)
	ctx := context.Background()
	if err := f.db.SetPollingEnabled(ctx, false); err != nil {
		t.Fatalf("failed to disable polling: %v", err)
	}
	now := time.Now().Unix()
	f.fake.setChat(conv("chat-1", now), []models.Message{inMsg("m1", now, "привет")})

	f.engine.RunCycle(ctx)

	if len(f.fake.offsets) != 0 {
		t.Fatalf("chat listing requested while stopped")
	}
	if len(f.notifier.notifications) != 0 {
		t.Fatalf("notification dispatched while stopped")
	}
}

func TestColdStartSuppressesHistory(t *testing.T) {
	f := newPollFixture(t, models.ModeOff)
	ctx := context.Background()
	now := time.Now().Unix()
	f.fake.setChat(conv("chat-1", now), []models.Message{
		inMsg("m1", now-100, "старое сообщение"),
		inMsg("m2", now, "новое сообщение"),
	})

	f.engine.RunCycle(ctx)

	if len(f.notifier.notifications) != 0 {
		t.Fatalf("cold start replayed history: %v", f.notifier.notifications)
	}

	marks, err := f.db.GetWatermarks(ctx, f.account.ID)
	if err != nil {
		t.Fatalf("failed to read watermarks: %v", err)
	}
	if marks["chat-1"] != now {
		t.Fatalf("expected watermark %d, got %d", now, marks["chat-1"])
	}
}

func TestNewMessageNotifiedOnce(t *testing.T) {
	f := newPollFixture(t, models.ModeOff)
	ctx := context.Background()
	now := time.Now().Unix()
	f.fake.setChat(conv("chat-1", now-100), []models.Message{inMsg("m1", now-100, "первое")})

	// Cycle 1 establishes the watermark.
	f.engine.RunCycle(ctx)

	// A new inbound message arrives.
	f.fake.setChat(conv("chat-1", now), []models.Message{
		inMsg("m1", now-100, "первое"),
		inMsg("m2", now, "второе"),
	})
	f.engine.RunCycle(ctx)

	if len(f.notifier.notifications) != 1 || f.notifier.notifications[0] != "второе" {
		t.Fatalf("unexpected notifications: %v", f.notifier.notifications)
	}

	// Cycle 3 with unchanged state must stay quiet.
	f.engine.RunCycle(ctx)
	if len(f.notifier.notifications) != 1 {
		t.Fatalf("message re-notified: %v", f.notifier.notifications)
	}

	marks, err := f.db.GetWatermarks(ctx, f.account.ID)
	if err != nil {
		t.Fatalf("failed to read watermarks: %v", err)
	}
	if marks["chat-1"] != now {
		t.Fatalf("watermark did not advance: %d", marks["chat-1"])
	}
}

func TestAutomationSchedulesDelayedReply(t *testing.T) {
	f := newPollFixture(t, models.ModeAIFull)
	ctx := context.Background()
	now := time.Now().Unix()
	f.fake.setChat(conv("chat-1", now-100), []models.Message{inMsg("m1", now-100, "первое")})
	f.engine.RunCycle(ctx)

	f.fake.setChat(conv("chat-1", now), []models.Message{
		inMsg("m1", now-100, "первое"),
		inMsg("m2", now, "второе"),
	})
	f.engine.RunCycle(ctx)

	if len(f.scheduler.keys) != 1 || f.scheduler.keys[0] != "chat-1" {
		t.Fatalf("unexpected scheduled keys: %v", f.scheduler.keys)
	}
	if f.scheduler.delays[0] != time.Minute {
		t.Fatalf("unexpected delay: %v", f.scheduler.delays[0])
	}
}

func TestAutomationOffSchedulesNothing(t *testing.T) {
	f := newPollFixture(t, models.ModeOff)
	ctx := context.Background()
	now := time.Now().Unix()
	f.fake.setChat(conv("chat-1", now-100), []models.Message{inMsg("m1", now-100, "первое")})
	f.engine.RunCycle(ctx)

	f.fake.setChat(conv("chat-1", now), []models.Message{
		inMsg("m1", now-100, "первое"),
		inMsg("m2", now, "второе"),
	})
	f.engine.RunCycle(ctx)

	if len(f.notifier.notifications) != 1 {
		t.Fatalf("expected notification, got %v", f.notifier.notifications)
	}
	if len(f.scheduler.keys) != 0 {
		t.Fatalf("reply scheduled with automation off: %v", f.scheduler.keys)
	}
}

func TestNonTextAdvancesWatermarkSilently(t *testing.T) {
	f := newPollFixture(t, models.ModeOff)
	ctx := context.Background()
	now := time.Now().Unix()
	f.fake.setChat(conv("chat-1", now-100), []models.Message{inMsg("m1", now-100, "первое")})
	f.engine.RunCycle(ctx)

	image := models.Message{ID: "m2", Direction: models.DirectionIn, Type: "image", Created: now}
	f.fake.setChat(conv("chat-1", now), []models.Message{inMsg("m1", now-100, "первое"), image})
	f.engine.RunCycle(ctx)

	if len(f.notifier.notifications) != 0 {
		t.Fatalf("non-text message surfaced: %v", f.notifier.notifications)
	}
	marks, err := f.db.GetWatermarks(ctx, f.account.ID)
	if err != nil {
		t.Fatalf("failed to read watermarks: %v", err)
	}
	if marks["chat-1"] != now {
		t.Fatalf("watermark did not advance past non-text message: %d", marks["chat-1"])
	}
}

func TestFetchStopsAtActivityBoundary(t *testing.T) {
	f := newPollFixture(t, models.ModeOff)
	ctx := context.Background()
	now := time.Now().Unix()

	// Two full pages of recent chats, then a stale one: the fetch must
	// stop at the stale chat without requesting further pages.
	for i := 0; i < 2*pageSize; i++ {
		id := fmt.Sprintf("chat-%03d", i)
		f.fake.setChat(conv(id, now-int64(i)), []models.Message{inMsg("m", now-int64(i), "сообщение")})
	}
	stale := now - 90*24*3600
	f.fake.setChat(conv("chat-stale", stale), []models.Message{inMsg("m", stale, "старое")})

	f.engine.RunCycle(ctx)

	if len(f.fake.offsets) != 3 {
		t.Fatalf("expected 3 chat pages, requested offsets %v", f.fake.offsets)
	}

	marks, err := f.db.GetWatermarks(ctx, f.account.ID)
	if err != nil {
		t.Fatalf("failed to read watermarks: %v", err)
	}
	if len(marks) != 2*pageSize {
		t.Fatalf("expected %d watermarks, got %d", 2*pageSize, len(marks))
	}
	if _, ok := marks["chat-stale"]; ok {
		t.Fatalf("stale conversation processed")
	}
}

func TestInboundLoggedBeforeNotification(t *testing.T) {
	f := newPollFixture(t, models.ModeOff)
	ctx := context.Background()
	now := time.Now().Unix()
	f.fake.setChat(conv("chat-1", now-100), []models.Message{inMsg("m1", now-100, "первое")})
	f.engine.RunCycle(ctx)

	f.fake.setChat(conv("chat-1", now), []models.Message{
		inMsg("m1", now-100, "первое"),
		inMsg("m2", now, "второе"),
	})
	f.engine.RunCycle(ctx)

	entries, err := f.db.DeliveriesForChat(ctx, f.account.ID, "chat-1", 10)
	if err != nil {
		t.Fatalf("failed to read delivery log: %v", err)
	}
	if len(entries) != 1 || entries[0].Direction != models.DirectionIn || entries[0].MessageText != "второе" {
		t.Fatalf("unexpected delivery log: %+v", entries)
	}
}
