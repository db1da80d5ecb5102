package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"rdFolio/internal/portfolio"
)

// ErrDeliveryNotFound 表示台账中没有对应记录。
var ErrDeliveryNotFound = errors.New("contact delivery not found")

// DeliveryStore 封装联系投递台账的读写。
type DeliveryStore struct {
	db *gorm.DB
}

// NewDeliveryStore 构造台账存取对象。
func NewDeliveryStore(db *gorm.DB) *DeliveryStore {
	return &DeliveryStore{db: db}
}

// Create 以 pending 状态写入一条新的投递记录。
func (s *DeliveryStore) Create(ctx context.Context, correlationID, clientIP string, msg portfolio.ContactMessage) (*ContactDelivery, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal contact message: %w", err)
	}
	delivery := &ContactDelivery{
		CorrelationID: correlationID,
		Name:          msg.Name,
		Email:         msg.Email,
		Payload:       datatypes.JSON(payload),
		Status:        DeliveryPending,
		ClientIP:      clientIP,
	}
	if err := s.db.WithContext(ctx).Create(delivery).Error; err != nil {
		return nil, fmt.Errorf("create contact delivery: %w", err)
	}
	return delivery, nil
}

// Get 按主键读取记录。
func (s *DeliveryStore) Get(ctx context.Context, id uint) (*ContactDelivery, error) {
	var delivery ContactDelivery
	if err := s.db.WithContext(ctx).First(&delivery, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeliveryNotFound
		}
		return nil, fmt.Errorf("load contact delivery %d: %w", id, err)
	}
	return &delivery, nil
}

// GetByCorrelationID 按关联 ID 读取记录。
func (s *DeliveryStore) GetByCorrelationID(ctx context.Context, correlationID string) (*ContactDelivery, error) {
	var delivery ContactDelivery
	err := s.db.WithContext(ctx).Where("correlation_id = ?", correlationID).First(&delivery).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeliveryNotFound
		}
		return nil, fmt.Errorf("load contact delivery %q: %w", correlationID, err)
	}
	return &delivery, nil
}

// Message 还原投递记录里保存的留言。
func (d *ContactDelivery) Message() (portfolio.ContactMessage, error) {
	var msg portfolio.ContactMessage
	if err := json.Unmarshal(d.Payload, &msg); err != nil {
		return portfolio.ContactMessage{}, fmt.Errorf("decode contact payload of delivery %d: %w", d.ID, err)
	}
	return msg, nil
}

// RecordAttempt 累加尝试次数，attemptErr 为 nil 时标记为 sent。
// final 为 true 且仍失败时标记为 failed 并记下 code，否则保持 pending 等待重试。
func (s *DeliveryStore) RecordAttempt(ctx context.Context, id uint, attemptErr error, final bool, code int) error {
	updates := map[string]any{
		"attempts": gorm.Expr("attempts + 1"),
	}
	switch {
	case attemptErr == nil:
		updates["status"] = DeliverySent
		updates["last_error"] = ""
		updates["error_code"] = 0
	case final:
		updates["status"] = DeliveryFailed
		updates["last_error"] = truncate(attemptErr.Error(), 1024)
		updates["error_code"] = code
	default:
		updates["last_error"] = truncate(attemptErr.Error(), 1024)
	}

	result := s.db.WithContext(ctx).Model(&ContactDelivery{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("update contact delivery %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDeliveryNotFound
	}
	return nil
}

// ListByStatus 按创建时间倒序列出指定状态的记录。
func (s *DeliveryStore) ListByStatus(ctx context.Context, status string, limit int) ([]ContactDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	var deliveries []ContactDelivery
	err := s.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Limit(limit).
		Find(&deliveries).Error
	if err != nil {
		return nil, fmt.Errorf("list %s contact deliveries: %w", status, err)
	}
	return deliveries, nil
}

// ResetForRetry 把 failed 记录改回 pending 并清零尝试次数，供人工重新入队。
func (s *DeliveryStore) ResetForRetry(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).
		Model(&ContactDelivery{}).
		Where("id = ? AND status = ?", id, DeliveryFailed).
		Updates(map[string]any{
			"status":     DeliveryPending,
			"attempts":   0,
			"last_error": "",
			"error_code": 0,
		})
	if result.Error != nil {
		return fmt.Errorf("reset contact delivery %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDeliveryNotFound
	}
	return nil
}

// truncate 按字节截断，但不切开多字节字符，Postgres 拒收非法 UTF-8。
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
