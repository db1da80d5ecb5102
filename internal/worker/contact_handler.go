package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hibiken/asynq"

	"rdFolio/internal/apiclient"
	"rdFolio/internal/database"
	"rdFolio/internal/errcode"
	"rdFolio/internal/portfolio"
	"rdFolio/internal/tasks"
)

// ContactSubmitter 是投递所需的上游能力，*apiclient.Client 满足该接口。
type ContactSubmitter interface {
	SubmitContactMessage(ctx context.Context, msg portfolio.ContactMessage) error
}

// ContactDeliveryHandler 把台账中的留言转发到上游 /contact。
// 可重试的失败交给 asynq 退避重试；上游 4xx 或最后一次尝试失败时落为 failed 并通知提交者。
type ContactDeliveryHandler struct {
	store     *database.DeliveryStore
	submitter ContactSubmitter
	publisher Publisher
	logger    *slog.Logger
}

// NewContactDeliveryHandler 构造投递任务处理器。
func NewContactDeliveryHandler(store *database.DeliveryStore, submitter ContactSubmitter, publisher Publisher, logger *slog.Logger) *ContactDeliveryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContactDeliveryHandler{
		store:     store,
		submitter: submitter,
		publisher: publisher,
		logger:    logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ContactDeliveryHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := tasks.ParseContactDeliverPayload(t)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	log := h.logger.With(
		slog.Uint64("delivery_id", uint64(payload.DeliveryID)),
		slog.String("correlation_id", payload.CorrelationID),
	)

	delivery, err := h.store.Get(ctx, payload.DeliveryID)
	if err != nil {
		if errors.Is(err, database.ErrDeliveryNotFound) {
			log.Warn("contact delivery missing, dropping task")
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	if delivery.Status == database.DeliverySent {
		log.Info("contact delivery already sent")
		return nil
	}

	msg, err := delivery.Message()
	if err != nil {
		if ferr := h.finish(ctx, log, delivery, err, true, errcode.SystemError); ferr != nil {
			return ferr
		}
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	submitCtx := apiclient.WithCorrelationID(ctx, delivery.CorrelationID)
	submitErr := h.submitter.SubmitContactMessage(submitCtx, msg)
	if submitErr == nil {
		if err := h.finish(ctx, log, delivery, nil, true, errcode.OK); err != nil {
			return err
		}
		log.Info("contact message delivered")
		return nil
	}

	if rejected(submitErr) {
		if err := h.finish(ctx, log, delivery, submitErr, true, errcode.ContactRejected); err != nil {
			return err
		}
		return fmt.Errorf("contact rejected by backend: %v: %w", submitErr, asynq.SkipRetry)
	}

	final := isFinalAsynqAttempt(ctx)
	if err := h.finish(ctx, log, delivery, submitErr, final, errcode.UpstreamExhausted); err != nil {
		return err
	}
	log.Warn("deliver contact message failed",
		slog.Bool("final_attempt", final),
		slog.Any("error", submitErr),
	)
	return fmt.Errorf("submit contact message: %w", submitErr)
}

// finish 写回台账；到达终态时发布通知。
// 台账写入失败时返回错误且不发通知，由 asynq 重试；通知失败只记日志。
func (h *ContactDeliveryHandler) finish(ctx context.Context, log *slog.Logger, delivery *database.ContactDelivery, attemptErr error, final bool, code int) error {
	if err := h.store.RecordAttempt(ctx, delivery.ID, attemptErr, final, code); err != nil {
		log.Error("update contact delivery failed", slog.Any("error", err))
		return fmt.Errorf("record contact delivery attempt: %w", err)
	}
	if attemptErr != nil && !final {
		return nil
	}

	notify := ContactNotifyMessage{
		Status:        NotifyStatusCompleted,
		DeliveryID:    delivery.ID,
		CorrelationID: delivery.CorrelationID,
		ErrorCode:     code,
	}
	if attemptErr != nil {
		notify.Status = NotifyStatusFailed
		notify.ErrorMessage = failureText(code)
	}
	if h.publisher == nil {
		return nil
	}
	if err := publishNotify(ctx, h.publisher, notify); err != nil {
		log.Error("publish contact notification failed", slog.Any("error", err))
	}
	return nil
}

// rejected 表示上游明确拒绝了这条留言（4xx），重试不会成功。
func rejected(err error) bool {
	status := apiclient.StatusCode(err)
	return status >= http.StatusBadRequest && status < http.StatusInternalServerError &&
		status != http.StatusTooManyRequests && status != http.StatusRequestTimeout
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
