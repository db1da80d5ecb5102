package api

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"

	"rdFolio/internal/api/middleware"
	"rdFolio/internal/storage"
)

// ResumeStorage 是静态简历对象所需的存储能力，*storage.Client 满足该接口。
type ResumeStorage interface {
	StatObject(ctx context.Context, objectKey string) (storage.ObjectInfo, error)
	PresignDownload(ctx context.Context, objectKey, filename string, ttl time.Duration) (string, error)
}

// ResumeHandler 把简历下载请求重定向到对象存储的限时链接。
// 简历是预先上传的静态文件，这里不负责生成。
type ResumeHandler struct {
	storage   ResumeStorage
	objectKey string
	ttl       time.Duration
}

// NewResumeHandler 构造简历下载处理器。
func NewResumeHandler(store ResumeStorage, objectKey string, ttl time.Duration) *ResumeHandler {
	return &ResumeHandler{
		storage:   store,
		objectKey: objectKey,
		ttl:       ttl,
	}
}

// Filename 是下载时展示给浏览器的文件名，也用作公开路由。
func (h *ResumeHandler) Filename() string {
	return path.Base(h.objectKey)
}

// Download 校验对象存在后 302 跳转到签名链接。
func (h *ResumeHandler) Download(c *gin.Context) {
	ctx := c.Request.Context()
	log := middleware.LoggerFromContext(c).With(slog.String("object_key", h.objectKey))

	if _, err := h.storage.StatObject(ctx, h.objectKey); err != nil {
		if storage.IsNoSuchKey(err) {
			NotFound(c, "resume not found")
			return
		}
		log.Error("stat resume object failed", slog.Any("error", err))
		BadGateway(c, "resume storage unavailable")
		return
	}

	url, err := h.storage.PresignDownload(ctx, h.objectKey, h.Filename(), h.ttl)
	if err != nil {
		log.Error("presign resume download failed", slog.Any("error", err))
		BadGateway(c, "resume storage unavailable")
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, url)
}
