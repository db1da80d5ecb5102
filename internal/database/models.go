package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 投递状态。
const (
	DeliveryPending = "pending"
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
)

// ContactDelivery 记录一次联系表单提交转发到上游 /contact 的过程。
// 留言本身由上游保存，这里只保留用于重试的副本。
type ContactDelivery struct {
	gorm.Model
	CorrelationID string         `gorm:"uniqueIndex;size:64"`
	Name          string         `gorm:"size:255"`
	Email         string         `gorm:"size:255"`
	Payload       datatypes.JSON `gorm:"type:jsonb"` // portfolio.ContactMessage 原样序列化
	Status        string         `gorm:"size:16;index"`
	Attempts      int
	LastError     string `gorm:"size:1024"`
	ErrorCode     int    // 终态失败时的 errcode，补发通知时原样返回
	ClientIP      string `gorm:"size:64"`
}
