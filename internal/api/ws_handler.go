package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"rdFolio/internal/api/middleware"
	"rdFolio/internal/database"
	"rdFolio/internal/worker"
)

// NotifySubscriber 订阅某个频道，返回消息通道与关闭函数。
// 返回前必须已经完成订阅，调用方随后补查台账不会漏掉消息。
type NotifySubscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func() error, error)
}

// DeliveryLookup 用于补发订阅前已经到达终态的投递结果。
type DeliveryLookup interface {
	GetByCorrelationID(ctx context.Context, correlationID string) (*database.ContactDelivery, error)
}

// RedisSubscriber 基于 Redis Pub/Sub 实现 NotifySubscriber。
type RedisSubscriber struct {
	Client *redis.Client
}

// Subscribe 实现 NotifySubscriber。
func (s RedisSubscriber) Subscribe(ctx context.Context, channel string) (<-chan []byte, func() error, error) {
	pubsub := s.Client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %q: %w", channel, err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, pubsub.Close, nil
}

// WsHandler 把联系留言的投递结果推送给提交者。
type WsHandler struct {
	subscriber     NotifySubscriber
	deliveries     DeliveryLookup
	logger         *slog.Logger
	upgrader       websocket.Upgrader
	allowedOrigins []string
	pingInterval   time.Duration
}

// NewWsHandler 构造 WebSocket 处理器。allowedOrigins 为空时只接受同源。
func NewWsHandler(subscriber NotifySubscriber, deliveries DeliveryLookup, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &WsHandler{
		subscriber:     subscriber,
		deliveries:     deliveries,
		logger:         logger,
		allowedOrigins: allowedOrigins,
		pingInterval:   30 * time.Second,
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *WsHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.allowedOrigins) == 0 {
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
	for _, allowed := range h.allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

type wsSubscribeMessage struct {
	Type          string `json:"type"`
	CorrelationID string `json:"correlation_id"`
}

var errSubscribeRequired = errors.New("subscribe message required")

// HandleConnection 升级连接，等待客户端发送订阅消息，推送一次终态结果后关闭。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	baseLog := middleware.LoggerFromContext(c).With(slog.String("client_ip", c.ClientIP()))

	correlationCh := make(chan string, 1)
	errCh := make(chan error, 2)
	go h.readLoop(ctx, conn, correlationCh, errCh, cancel)

	var correlationID string
	select {
	case <-ctx.Done():
		return
	case err := <-errCh:
		baseLog.Warn("websocket subscribe failed", slog.Any("error", err))
		return
	case correlationID = <-correlationCh:
	}

	log := baseLog.With(slog.String("correlation_id", correlationID))
	if err := h.forwardOutcome(ctx, conn, correlationID, errCh, log); err != nil {
		log.Info("websocket connection closed", slog.Any("error", err))
		return
	}
	writeClose(conn, websocket.CloseNormalClosure, "done")
	log.Info("contact outcome delivered over websocket")
}

// readLoop 读取首条订阅消息，之后继续读以便感知客户端断开。
func (h *WsHandler) readLoop(
	ctx context.Context,
	conn *websocket.Conn,
	correlationCh chan<- string,
	errCh chan<- error,
	cancel context.CancelFunc,
) {
	subscribed := false
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				errCh <- fmt.Errorf("read message: %w", err)
			}
			cancel()
			return
		}
		if subscribed {
			continue
		}

		var sub wsSubscribeMessage
		if err := json.Unmarshal(message, &sub); err != nil || sub.Type != "subscribe" || !middleware.ValidCorrelationID(sub.CorrelationID) {
			writeClose(conn, websocket.ClosePolicyViolation, "subscribe required")
			errCh <- errSubscribeRequired
			cancel()
			return
		}
		subscribed = true
		correlationCh <- sub.CorrelationID
	}
}

// forwardOutcome 先订阅再查台账：已是终态直接推送，否则等待 worker 发布。
func (h *WsHandler) forwardOutcome(ctx context.Context, conn *websocket.Conn, correlationID string, errCh <-chan error, log *slog.Logger) error {
	messages, closeSub, err := h.subscriber.Subscribe(ctx, worker.NotifyChannel(correlationID))
	if err != nil {
		writeClose(conn, websocket.CloseInternalServerErr, "subscribe failed")
		return err
	}
	defer func() {
		if err := closeSub(); err != nil {
			log.Warn("close subscription failed", slog.Any("error", err))
		}
	}()

	delivery, err := h.deliveries.GetByCorrelationID(ctx, correlationID)
	if err != nil {
		if errors.Is(err, database.ErrDeliveryNotFound) {
			writeClose(conn, websocket.ClosePolicyViolation, "unknown correlation id")
		} else {
			writeClose(conn, websocket.CloseInternalServerErr, "lookup failed")
		}
		return err
	}
	if notify, done := worker.NotifyFromDelivery(delivery); done {
		return writeJSON(conn, notify)
	}

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case payload, ok := <-messages:
			if !ok {
				return errors.New("subscription closed")
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return fmt.Errorf("write message: %w", err)
			}
			return nil
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

func writeClose(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}
