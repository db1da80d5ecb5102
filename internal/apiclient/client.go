package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rdFolio/internal/config"
	"rdFolio/internal/metrics"
	"rdFolio/internal/portfolio"
)

// 上游资源路径，均相对于 BaseURL。
const (
	ResourceExperiences = "experiences"
	ResourceProjects    = "projects"
	ResourceSkills      = "skills"
	ResourceEducation   = "education"
	ResourceContact     = "contact"
)

const maxErrorBodyBytes = 8 * 1024

// Client 封装对上游 portfolio API 的调用。不缓存、不重试。
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option 调整 Client 的可选行为。
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client，测试里用来注入 httptest 的客户端。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New 根据配置构造 Client，BaseURL 在构造时注入而不是写死在包里。
func New(cfg config.BackendConfig, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("backend config: %w", err)
	}

	// Timeout 为 0 时 http.Client 不设超时。
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL 返回规范化后的上游地址。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchExperiences 拉取工作经历列表，保持后端顺序。
func (c *Client) FetchExperiences(ctx context.Context) ([]portfolio.Experience, error) {
	return getList[portfolio.Experience](ctx, c, ResourceExperiences)
}

// FetchProjects 拉取项目列表。
func (c *Client) FetchProjects(ctx context.Context) ([]portfolio.Project, error) {
	return getList[portfolio.Project](ctx, c, ResourceProjects)
}

// FetchSkills 拉取技能列表。
func (c *Client) FetchSkills(ctx context.Context) ([]portfolio.Skill, error) {
	return getList[portfolio.Skill](ctx, c, ResourceSkills)
}

// FetchEducation 拉取教育经历列表。
func (c *Client) FetchEducation(ctx context.Context) ([]portfolio.Education, error) {
	return getList[portfolio.Education](ctx, c, ResourceEducation)
}

// SubmitContactMessage 提交联系表单。失败原样返回给调用方，由调用方决定如何告知用户。
func (c *Client) SubmitContactMessage(ctx context.Context, message portfolio.ContactMessage) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal contact message: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, ResourceContact, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	// 成功时响应体没有约定内容，读掉即可复用连接。
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func getList[T any](ctx context.Context, c *Client, resource string) ([]T, error) {
	resp, err := c.do(ctx, http.MethodGet, resource, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var items []T
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, &ResponseError{
			Method:     http.MethodGet,
			URL:        c.resourceURL(resource),
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}
	return items, nil
}

// do 发出请求，非 2xx 视为 ResponseError，请求未完成视为 TransportError。
func (c *Client) do(ctx context.Context, method, resource string, body io.Reader) (_ *http.Response, err error) {
	start := time.Now()
	outcome := metrics.OutcomeOK
	defer func() {
		switch {
		case err == nil:
		case IsTransport(err):
			outcome = metrics.OutcomeTransportErr
		default:
			outcome = metrics.OutcomeResponseErr
		}
		metrics.ObserveBackendRequest(resource, outcome, time.Since(start).Seconds())
	}()

	target := c.resourceURL(resource)
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", resource, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &ResponseError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	return resp, nil
}

func (c *Client) resourceURL(resource string) string {
	return c.baseURL + "/" + strings.TrimPrefix(resource, "/")
}

type correlationIDKey struct{}

// WithCorrelationID 把 Correlation ID 挂到上下文，后续上游请求会透传该 Header。
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext 取出上下文中的 Correlation ID。
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}
