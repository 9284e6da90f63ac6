package errors

import (
	"errors"
	"fmt"
	"net/http"

	"marketplace/domain/inventory"
	"marketplace/domain/shared"
)

// ErrorCode 错误码
type ErrorCode string

const (
	// 通用错误码
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeBadRequest     ErrorCode = "BAD_REQUEST"
	CodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	CodeForbidden      ErrorCode = "FORBIDDEN"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeTooManyRequest ErrorCode = "TOO_MANY_REQUESTS"
	CodeValidation     ErrorCode = "VALIDATION_ERROR"

	// 业务错误码
	CodeStateConflict          ErrorCode = "STATE_CONFLICT"
	CodeOrderExpired           ErrorCode = "ORDER_EXPIRED"
	CodeConcurrentModification ErrorCode = "CONCURRENT_MODIFICATION"
	CodeUnsupported            ErrorCode = "UNSUPPORTED"
)

// AppError 应用错误
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode 返回对应的HTTP状态码
func (e *AppError) HTTPStatusCode() int {
	switch e.Code {
	case CodeBadRequest, CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeStateConflict, CodeOrderExpired, CodeConcurrentModification:
		return http.StatusConflict
	case CodeTooManyRequest:
		return http.StatusTooManyRequests
	case CodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// WithDetails 附加结构化细节
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// New 创建新错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// 常用错误构造函数

func BadRequest(message string) *AppError {
	return New(CodeBadRequest, message)
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, message)
}

func Internal(message string) *AppError {
	return New(CodeInternal, message)
}

func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return New(CodeForbidden, message)
}

func TooManyRequests(message string) *AppError {
	return New(CodeTooManyRequest, message)
}

func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

// Is 检查是否为特定错误码
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return FromDomainError(err)
}

// shortfallCarrier 库存不足错误携带的短缺明细
type shortfallCarrier interface {
	Shortfalls() []inventory.Shortfall
}

// FromDomainError 将领域错误映射为应用错误
// 只按哨兵错误分类；无法识别的错误一律视为内部错误，消息不外泄
func FromDomainError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	// ExpiryRace 必须先于其他分类判断：它同时携带了自动取消的结果
	var race *shared.ExpiryRaceError
	if errors.As(err, &race) {
		return Wrap(err, CodeOrderExpired, race.Error()).WithDetails(map[string]any{
			"auto_cancelled":    true,
			"status":            race.ResultingStatus,
			"expired_order_ids": race.OrderIDs,
		})
	}

	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		appErr := Wrap(err, CodeValidation, err.Error())
		var sc shortfallCarrier
		if errors.As(err, &sc) && len(sc.Shortfalls()) > 0 {
			items := make([]map[string]any, 0, len(sc.Shortfalls()))
			for _, s := range sc.Shortfalls() {
				items = append(items, map[string]any{
					"product_id": s.ProductID,
					"requested":  s.Requested,
					"available":  s.Available,
				})
			}
			appErr.WithDetails(map[string]any{"shortfalls": items})
		}
		var de *shared.DomainError
		if errors.As(err, &de) && de.Field != "" {
			appErr.WithDetails(map[string]any{"field": de.Field})
		}
		return appErr
	case errors.Is(err, shared.ErrNotFound):
		return Wrap(err, CodeNotFound, err.Error())
	case errors.Is(err, shared.ErrUnauthorized):
		return Wrap(err, CodeUnauthorized, err.Error())
	case errors.Is(err, shared.ErrForbidden):
		return Wrap(err, CodeForbidden, err.Error())
	case errors.Is(err, shared.ErrExpired):
		return Wrap(err, CodeOrderExpired, err.Error())
	case errors.Is(err, shared.ErrStateConflict):
		return Wrap(err, CodeStateConflict, err.Error())
	case errors.Is(err, shared.ErrConflict):
		return Wrap(err, CodeConcurrentModification, "the resource was modified concurrently, please retry")
	case errors.Is(err, shared.ErrUnsupported):
		return Wrap(err, CodeUnsupported, err.Error())
	default:
		return Wrap(err, CodeInternal, "internal server error")
	}
}
