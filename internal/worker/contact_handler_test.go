package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"rdFolio/internal/apiclient"
	"rdFolio/internal/database"
	"rdFolio/internal/errcode"
	"rdFolio/internal/portfolio"
	"rdFolio/internal/tasks"
)

type fakeSubmitter struct {
	err            error
	calls          int
	correlationIDs []string
	last           portfolio.ContactMessage
}

func (s *fakeSubmitter) SubmitContactMessage(ctx context.Context, msg portfolio.ContactMessage) error {
	s.calls++
	s.last = msg
	s.correlationIDs = append(s.correlationIDs, apiclient.CorrelationIDFromContext(ctx))
	return s.err
}

type fakePublisher struct {
	mu       sync.Mutex
	channels []string
	messages []ContactNotifyMessage
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	p.mu.Lock()
	defer p.mu.Unlock()

	var msg ContactNotifyMessage
	if data, ok := message.([]byte); ok {
		_ = json.Unmarshal(data, &msg)
	}
	p.channels = append(p.channels, channel)
	p.messages = append(p.messages, msg)

	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(1)
	return cmd
}

func newTestStore(t *testing.T) *database.DeliveryStore {
	t.Helper()
	return database.NewDeliveryStore(newTestDB(t))
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedDelivery(t *testing.T, store *database.DeliveryStore) (*database.ContactDelivery, *asynq.Task) {
	t.Helper()
	d, err := store.Create(context.Background(), "corr-"+t.Name(), "10.0.0.1", portfolio.ContactMessage{
		Name:    "Ada",
		Email:   "ada@example.com",
		Message: "Hi",
	})
	if err != nil {
		t.Fatalf("seed delivery: %v", err)
	}
	task, err := tasks.NewContactDeliverTask(d.ID, d.CorrelationID)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	return d, task
}

func TestContactDeliverySuccessMarksSentAndNotifies(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	submitter := &fakeSubmitter{}
	publisher := &fakePublisher{}
	h := NewContactDeliveryHandler(store, submitter, publisher, nil)

	d, task := seedDelivery(t, store)
	if err := h.ProcessTask(ctx, task); err != nil {
		t.Fatalf("process task: %v", err)
	}

	if submitter.calls != 1 || submitter.last.Email != "ada@example.com" {
		t.Fatalf("unexpected submit %+v", submitter)
	}
	if submitter.correlationIDs[0] != d.CorrelationID {
		t.Fatalf("correlation id not forwarded: %v", submitter.correlationIDs)
	}

	got, _ := store.Get(ctx, d.ID)
	if got.Status != database.DeliverySent || got.Attempts != 1 {
		t.Fatalf("unexpected delivery %+v", got)
	}

	if len(publisher.messages) != 1 {
		t.Fatalf("expected one notification, got %d", len(publisher.messages))
	}
	if publisher.channels[0] != NotifyChannel(d.CorrelationID) {
		t.Fatalf("unexpected channel %q", publisher.channels[0])
	}
	msg := publisher.messages[0]
	if msg.Status != NotifyStatusCompleted || msg.ErrorCode != errcode.OK || msg.DeliveryID != d.ID {
		t.Fatalf("unexpected notification %+v", msg)
	}

	// 已发送的记录再次出队时不会重复投递。
	if err := h.ProcessTask(ctx, task); err != nil {
		t.Fatalf("reprocess: %v", err)
	}
	if submitter.calls != 1 {
		t.Fatalf("sent delivery should not be resubmitted, got %d calls", submitter.calls)
	}
}

func TestContactDeliveryRetryableFailureStaysPending(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	submitter := &fakeSubmitter{err: &apiclient.ResponseError{Method: "POST", URL: "/contact", StatusCode: 503}}
	publisher := &fakePublisher{}
	h := NewContactDeliveryHandler(store, submitter, publisher, nil)

	d, task := seedDelivery(t, store)
	err := h.ProcessTask(ctx, task)
	if err == nil {
		t.Fatal("expected error so asynq retries")
	}
	if errors.Is(err, asynq.SkipRetry) {
		t.Fatal("5xx must stay retryable")
	}

	got, _ := store.Get(ctx, d.ID)
	if got.Status != database.DeliveryPending || got.Attempts != 1 || got.LastError == "" {
		t.Fatalf("unexpected delivery %+v", got)
	}
	if len(publisher.messages) != 0 {
		t.Fatalf("no notification expected before the final attempt, got %+v", publisher.messages)
	}
}

func TestContactDeliveryRejectedIsFinal(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	submitter := &fakeSubmitter{err: &apiclient.ResponseError{Method: "POST", URL: "/contact", StatusCode: 422}}
	publisher := &fakePublisher{}
	h := NewContactDeliveryHandler(store, submitter, publisher, nil)

	d, task := seedDelivery(t, store)
	err := h.ProcessTask(ctx, task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}

	got, _ := store.Get(ctx, d.ID)
	if got.Status != database.DeliveryFailed {
		t.Fatalf("unexpected delivery %+v", got)
	}
	if len(publisher.messages) != 1 {
		t.Fatalf("expected one notification, got %d", len(publisher.messages))
	}
	msg := publisher.messages[0]
	if msg.Status != NotifyStatusFailed || msg.ErrorCode != errcode.ContactRejected || msg.ErrorMessage == "" {
		t.Fatalf("unexpected notification %+v", msg)
	}

	// 晚到的订阅者拿到的补发结果与实时推送一致。
	replay, ok := NotifyFromDelivery(got)
	if !ok || replay != msg {
		t.Fatalf("replay %+v differs from live notification %+v", replay, msg)
	}
}

func TestContactDeliveryLedgerWriteFailureRetries(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := database.NewDeliveryStore(db)
	submitter := &fakeSubmitter{err: &apiclient.ResponseError{Method: "POST", URL: "/contact", StatusCode: 422}}
	publisher := &fakePublisher{}
	h := NewContactDeliveryHandler(store, submitter, publisher, nil)

	d, task := seedDelivery(t, store)
	err := db.Callback().Update().Before("gorm:update").Register("test:fail_update", func(tx *gorm.DB) {
		_ = tx.AddError(errors.New("disk full"))
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	err = h.ProcessTask(ctx, task)
	if err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("ledger failure must stay retryable, got %v", err)
	}
	if len(publisher.messages) != 0 {
		t.Fatalf("no notification expected when the ledger was not updated, got %+v", publisher.messages)
	}

	got, _ := store.Get(ctx, d.ID)
	if got.Status != database.DeliveryPending {
		t.Fatalf("unexpected delivery %+v", got)
	}
}

func TestContactDeliveryMissingRecordSkipsRetry(t *testing.T) {
	store := newTestStore(t)
	submitter := &fakeSubmitter{}
	h := NewContactDeliveryHandler(store, submitter, nil, nil)

	task, err := tasks.NewContactDeliverTask(404, "corr-missing")
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := h.ProcessTask(context.Background(), task); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
	if submitter.calls != 0 {
		t.Fatal("missing delivery must not be submitted")
	}
}

func TestNotifyFromDelivery(t *testing.T) {
	if _, ok := NotifyFromDelivery(&database.ContactDelivery{Status: database.DeliveryPending}); ok {
		t.Fatal("pending delivery has no outcome yet")
	}

	msg, ok := NotifyFromDelivery(&database.ContactDelivery{Status: database.DeliverySent, CorrelationID: "c"})
	if !ok || msg.Status != NotifyStatusCompleted || msg.ErrorCode != errcode.OK {
		t.Fatalf("unexpected %+v", msg)
	}

	msg, ok = NotifyFromDelivery(&database.ContactDelivery{Status: database.DeliveryFailed, CorrelationID: "c"})
	if !ok || msg.Status != NotifyStatusFailed || msg.ErrorCode != errcode.UpstreamExhausted || msg.ErrorMessage != failureMessage {
		t.Fatalf("unexpected %+v", msg)
	}

	msg, ok = NotifyFromDelivery(&database.ContactDelivery{
		Status:        database.DeliveryFailed,
		CorrelationID: "c",
		ErrorCode:     errcode.ContactRejected,
	})
	if !ok || msg.ErrorCode != errcode.ContactRejected || msg.ErrorMessage != rejectedMessage {
		t.Fatalf("unexpected %+v", msg)
	}
}
