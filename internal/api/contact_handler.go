package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"rdFolio/internal/api/middleware"
	"rdFolio/internal/database"
	"rdFolio/internal/errcode"
	"rdFolio/internal/portfolio"
	"rdFolio/internal/tasks"
)

// TaskEnqueuer 是入队所需的最小能力，*asynq.Client 满足该接口。
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ContactHandler 接收联系表单：校验、限流、写台账、入队，由 worker 异步转发到上游。
type ContactHandler struct {
	store        *database.DeliveryStore
	queue        TaskEnqueuer
	counter      redisRateCounter
	limitPerHour int
	maxRetry     int
	now          func() time.Time
}

// NewContactHandler 构造联系表单处理器。limitPerHour 为 0 时不限流。
func NewContactHandler(store *database.DeliveryStore, queue TaskEnqueuer, counter redisRateCounter, limitPerHour, maxRetry int) *ContactHandler {
	return &ContactHandler{
		store:        store,
		queue:        queue,
		counter:      counter,
		limitPerHour: limitPerHour,
		maxRetry:     maxRetry,
		now:          time.Now,
	}
}

type contactAccepted struct {
	CorrelationID string `json:"correlation_id"`
	DeliveryID    uint   `json:"delivery_id"`
	Status        string `json:"status"`
}

type contactStatus struct {
	DeliveryID    uint      `json:"delivery_id"`
	CorrelationID string    `json:"correlation_id"`
	Status        string    `json:"status"`
	Attempts      int       `json:"attempts"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Submit 处理 POST /v1/contact，成功时返回 202。
func (h *ContactHandler) Submit(c *gin.Context) {
	log := middleware.LoggerFromContext(c)
	ctx := c.Request.Context()

	var msg portfolio.ContactMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		BadRequest(c, "name, email and message are required and email must be valid")
		return
	}
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.TrimSpace(msg.Email)
	msg.Message = strings.TrimSpace(msg.Message)
	if msg.Name == "" || msg.Message == "" {
		BadRequest(c, "name and message must not be blank")
		return
	}

	clientIP := c.ClientIP()
	if h.limitPerHour > 0 && h.counter != nil {
		key := hourlyRateKey("contact", clientIP, h.now())
		count, err := incrWithTTL(ctx, h.counter, key, time.Hour)
		switch {
		case err != nil:
			// Redis 不可用时放行。
			log.Warn("contact rate limit check failed", slog.Any("error", err))
		case count > int64(h.limitPerHour):
			c.Header("Retry-After", "3600")
			TooManyRequests(c)
			return
		}
	}

	// 每次提交单独生成关联 ID，客户端重复使用请求头时也不会撞上唯一索引。
	correlationID := uuid.NewString()
	log = log.With(slog.String("delivery_correlation_id", correlationID))
	delivery, err := h.store.Create(ctx, correlationID, clientIP, msg)
	if err != nil {
		log.Error("record contact delivery failed", slog.Any("error", err))
		Internal(c, "failed to record message")
		return
	}

	task, err := tasks.NewContactDeliverTask(delivery.ID, correlationID, asynq.MaxRetry(h.maxRetry))
	if err == nil {
		_, err = h.queue.EnqueueContext(ctx, task)
	}
	if err != nil {
		log.Error("enqueue contact delivery failed", slog.Any("error", err), slog.Uint64("delivery_id", uint64(delivery.ID)))
		if markErr := h.store.RecordAttempt(ctx, delivery.ID, err, true, errcode.SystemError); markErr != nil {
			log.Error("mark contact delivery failed", slog.Any("error", markErr))
		}
		Unavailable(c, "message could not be queued, please retry later")
		return
	}

	log.Info("contact message accepted", slog.Uint64("delivery_id", uint64(delivery.ID)))
	c.JSON(http.StatusAccepted, contactAccepted{
		CorrelationID: correlationID,
		DeliveryID:    delivery.ID,
		Status:        delivery.Status,
	})
}

// Status 处理 GET /v1/contact/:id，只返回投递状态，不回显留言内容。
func (h *ContactHandler) Status(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "invalid delivery id")
		return
	}

	delivery, err := h.store.Get(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, database.ErrDeliveryNotFound) {
			NotFound(c, "delivery not found")
			return
		}
		middleware.LoggerFromContext(c).Error("load contact delivery failed", slog.Any("error", err))
		Internal(c, "failed to load delivery")
		return
	}

	c.JSON(http.StatusOK, contactStatus{
		DeliveryID:    delivery.ID,
		CorrelationID: delivery.CorrelationID,
		Status:        delivery.Status,
		Attempts:      delivery.Attempts,
		CreatedAt:     delivery.CreatedAt,
		UpdatedAt:     delivery.UpdatedAt,
	})
}
