package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"rdFolio/internal/database"
	"rdFolio/internal/errcode"
)

// 推送给前端的投递状态。
const (
	NotifyStatusCompleted = "completed"
	NotifyStatusFailed    = "failed"
)

// ContactNotifyMessage 是通过 Redis Pub/Sub 转发给 WebSocket 客户端的消息。
// 字段名与前端解析保持一致。
type ContactNotifyMessage struct {
	Status        string `json:"status"`
	DeliveryID    uint   `json:"delivery_id"`
	CorrelationID string `json:"correlation_id"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// Publisher 是发布通知所需的最小 Redis 能力，*redis.Client 满足该接口。
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// NotifyChannel 返回某次提交对应的 Redis 频道名。
func NotifyChannel(correlationID string) string {
	return "contact_notify:" + correlationID
}

// NotifyFromDelivery 根据台账中的终态构造通知；pending 记录返回 false。
// WebSocket 订阅晚于投递完成时用它补发结果。
func NotifyFromDelivery(d *database.ContactDelivery) (ContactNotifyMessage, bool) {
	msg := ContactNotifyMessage{
		DeliveryID:    d.ID,
		CorrelationID: d.CorrelationID,
	}
	switch d.Status {
	case database.DeliverySent:
		msg.Status = NotifyStatusCompleted
		msg.ErrorCode = errcode.OK
	case database.DeliveryFailed:
		msg.Status = NotifyStatusFailed
		msg.ErrorCode = d.ErrorCode
		if msg.ErrorCode == errcode.OK {
			// 早于 error_code 列写入的记录。
			msg.ErrorCode = errcode.UpstreamExhausted
		}
		msg.ErrorMessage = failureText(msg.ErrorCode)
	default:
		return ContactNotifyMessage{}, false
	}
	return msg, true
}

func failureText(code int) string {
	if code == errcode.ContactRejected {
		return rejectedMessage
	}
	return failureMessage
}

const (
	failureMessage  = "留言暂时无法送达，请稍后重试"
	rejectedMessage = "留言未被接受，请检查内容后重新提交"
)

func publishNotify(ctx context.Context, publisher Publisher, msg ContactNotifyMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := NotifyChannel(msg.CorrelationID)
	if err := publisher.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}
