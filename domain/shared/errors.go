/*
Package shared - 领域层共享错误定义

设计原则:
1. 领域层定义哨兵错误(sentinel errors)，用于 errors.Is() 类型安全判断
2. DomainError 在创建时捕获堆栈，但延迟格式化（按需打印）
3. 领域错误不包含 HTTP 状态码等传输层概念

错误分类:
- ErrInvalidInput   校验失败（ValidationError）
- ErrStateConflict  当前状态不允许该操作（StateConflictError）
- ErrNotFound       资源不存在
- ErrForbidden      操作者无权限（PermissionError）
- ErrExpired        操作撞上支付截止时间，订单已被自动取消（ExpiryRace）
- ErrConflict       乐观锁重试耗尽后的并发修改冲突
- ErrUnsupported    明确不支持的操作（换货完成）
*/
package shared

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ============================================================================
// 哨兵错误 (Sentinel Errors)
// ============================================================================

var (
	// ErrNotFound 资源未找到
	ErrNotFound = errors.New("not found")

	// ErrConflict 资源冲突（并发修改、唯一约束冲突）
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput 无效输入（参数校验失败）
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized 未认证（缺少操作者身份）
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden 禁止访问（已认证但无权限）
	ErrForbidden = errors.New("forbidden")

	// ErrStateConflict 状态冲突：当前状态不满足操作前置条件
	ErrStateConflict = errors.New("state conflict")

	// ErrExpired 支付窗口已过期，订单已被系统自动取消
	ErrExpired = errors.New("payment window expired")

	// ErrUnsupported 未实现的业务操作
	ErrUnsupported = errors.New("unsupported operation")
)

// ============================================================================
// 领域错误结构体 (Domain Error)
// ============================================================================

// DomainError 领域错误 - 携带业务上下文和堆栈的结构化错误
type DomainError struct {
	// Err 底层哨兵错误，用于 errors.Is() 判断
	Err error

	// Entity 发生错误的实体名称（如 "merchant_order", "after_sale"）
	Entity string

	// Message 人类可读的错误描述
	Message string

	// Field 可选：发生错误的字段名（用于校验错误）
	Field string

	stack []uintptr
}

// Error 实现 error 接口
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap 实现错误链，支持 errors.Is() 和 errors.As()
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Stack 按需格式化堆栈（只在打印日志时调用）
func (e *DomainError) Stack() []string {
	return FormatStack(e.stack)
}

// ExpiryRaceError 操作与自动取消竞争失败
// 自动取消已经提交，错误携带被取消的订单及其最终状态，调用方据此刷新视图。
type ExpiryRaceError struct {
	OrderIDs        []string
	ResultingStatus string
	Message         string

	stack []uintptr
}

func (e *ExpiryRaceError) Error() string {
	return e.Message
}

func (e *ExpiryRaceError) Unwrap() error {
	return ErrExpired
}

func (e *ExpiryRaceError) Stack() []string {
	return FormatStack(e.stack)
}

// ============================================================================
// 堆栈捕获辅助函数
// ============================================================================

// CaptureStack 捕获当前调用栈（导出供子领域包使用）
// skip: 跳过的帧数（通常为 3：Callers, CaptureStack, NewXxxError）
func CaptureStack(skip int) []uintptr {
	var pcs [32]uintptr
	n := runtime.Callers(skip, pcs[:])
	return pcs[:n]
}

// FormatStack 格式化堆栈帧为字符串切片，过滤 runtime 内部帧，最多返回 10 帧
func FormatStack(stack []uintptr) []string {
	if len(stack) == 0 {
		return nil
	}

	frames := runtime.CallersFrames(stack)
	var result []string
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			result = append(result, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more || len(result) > 10 {
			break
		}
	}
	return result
}

// ============================================================================
// 领域错误构造函数
// ============================================================================

// NewNotFoundError 创建"未找到"领域错误
func NewNotFoundError(entity, id string) error {
	msg := entity + " not found"
	if id != "" {
		msg += ": " + id
	}
	return &DomainError{
		Err:     ErrNotFound,
		Entity:  entity,
		Message: msg,
		stack:   CaptureStack(3),
	}
}

// NewConflictError 创建"并发冲突"领域错误
func NewConflictError(entity, message string) error {
	return &DomainError{
		Err:     ErrConflict,
		Entity:  entity,
		Message: message,
		stack:   CaptureStack(3),
	}
}

// NewValidationError 创建"校验失败"领域错误
func NewValidationError(entity, field, reason string) error {
	return &DomainError{
		Err:     ErrInvalidInput,
		Entity:  entity,
		Field:   field,
		Message: reason,
		stack:   CaptureStack(3),
	}
}

// NewForbiddenError 创建"禁止访问"领域错误
func NewForbiddenError(entity, reason string) error {
	return &DomainError{
		Err:     ErrForbidden,
		Entity:  entity,
		Message: reason,
		stack:   CaptureStack(3),
	}
}

// NewUnauthorizedError 创建"未认证"领域错误
func NewUnauthorizedError(reason string) error {
	return &DomainError{
		Err:     ErrUnauthorized,
		Entity:  "actor",
		Message: reason,
		stack:   CaptureStack(3),
	}
}

// NewStateConflictError 创建"状态冲突"领域错误
func NewStateConflictError(entity, message string) error {
	return &DomainError{
		Err:     ErrStateConflict,
		Entity:  entity,
		Message: message,
		stack:   CaptureStack(3),
	}
}

// NewUnsupportedError 创建"不支持的操作"领域错误
func NewUnsupportedError(entity, message string) error {
	return &DomainError{
		Err:     ErrUnsupported,
		Entity:  entity,
		Message: message,
		stack:   CaptureStack(3),
	}
}

// NewExpiryRaceError 创建过期竞争错误
func NewExpiryRaceError(resultingStatus string, orderIDs ...string) error {
	return &ExpiryRaceError{
		OrderIDs:        orderIDs,
		ResultingStatus: resultingStatus,
		Message:         "payment window expired, order was cancelled automatically",
		stack:           CaptureStack(3),
	}
}

// ============================================================================
// Stacker 接口
// ============================================================================

// Stacker 可提供堆栈的错误接口，API 层用它统一提取堆栈
type Stacker interface {
	Stack() []string
}

// NewDomainError 以子域哨兵错误构造领域错误（带堆栈）
// err 应当包装了本包的分类哨兵，使 errors.Is 能同时判断两者
func NewDomainError(err error, entity, message string) error {
	return &DomainError{
		Err:     err,
		Entity:  entity,
		Message: message,
		stack:   CaptureStack(3),
	}
}
