package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：留言本身被上游拒绝，重试无意义
// - 5xxx：系统错误（上游不可用、重试耗尽）
const (
	OK                = 0
	ContactRejected   = 4022
	SystemError       = 5000
	UpstreamExhausted = 5003
)
