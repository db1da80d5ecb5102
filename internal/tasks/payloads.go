package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeContactDeliver = "contact:deliver"
)

// ContactDeliverPayload 只携带台账主键，留言内容从数据库读取。
type ContactDeliverPayload struct {
	DeliveryID    uint   `json:"delivery_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewContactDeliverTask 构造一个联系留言投递任务。
func NewContactDeliverTask(deliveryID uint, correlationID string, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(ContactDeliverPayload{
		DeliveryID:    deliveryID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeContactDeliver, payload, opts...), nil
}

// ParseContactDeliverPayload 解析任务负载。
func ParseContactDeliverPayload(t *asynq.Task) (ContactDeliverPayload, error) {
	var p ContactDeliverPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return ContactDeliverPayload{}, fmt.Errorf("decode %s payload: %w", t.Type(), err)
	}
	if p.DeliveryID == 0 {
		return ContactDeliverPayload{}, fmt.Errorf("%s payload missing delivery_id", t.Type())
	}
	return p, nil
}
