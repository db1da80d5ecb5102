package apiclient

import (
	"errors"
	"fmt"
)

// TransportError 表示请求没能完成（拨号失败、连接被重置、上下文取消等）。
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: transport: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ResponseError 表示上游返回了非 2xx 状态，或响应体无法解析。
// 解析失败时 StatusCode 为实际收到的 2xx 状态码，Err 为解码错误。
type ResponseError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *ResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: status %d: malformed payload: %v", e.Method, e.URL, e.StatusCode, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

// IsTransport 判断错误链中是否包含 TransportError。
func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsResponse 判断错误链中是否包含 ResponseError。
func IsResponse(err error) bool {
	var target *ResponseError
	return errors.As(err, &target)
}

// StatusCode 返回 ResponseError 中的状态码，其他错误返回 0。
func StatusCode(err error) int {
	var target *ResponseError
	if errors.As(err, &target) {
		return target.StatusCode
	}
	return 0
}
