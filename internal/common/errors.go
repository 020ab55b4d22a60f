package common

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError 应用级错误结构
// Status 是对调用方暴露的 HTTP 语义状态码
type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装错误
func WrapError(code, message string, err error) error {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  statusForCode(code),
		Err:     err,
	}
}

// NewError 创建新错误
func NewError(code, message string) error {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  statusForCode(code),
	}
}

// NewUpstreamError GitHub 返回了非成功状态，状态码原样透传
func NewUpstreamError(status int, err error) error {
	return &AppError{
		Code:    ErrCodeGitHubAPI,
		Message: fmt.Sprintf("GitHub API 返回 %d", status),
		Status:  status,
		Err:     err,
	}
}

// 错误码常量
const (
	ErrCodeGitHubAPI     = "GITHUB_API_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeDatabase      = "DATABASE_ERROR"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeInvalidFormat = "INVALID_FORMAT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

func statusForCode(code string) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeInvalidInput, ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case ErrCodeGitHubAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf 取出错误链上的错误码，非 AppError 视为内部错误
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// StatusOf 把错误映射为状态码，nil 为 200
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// IsCode 判断错误链上是否带有指定错误码
func IsCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// PublicMessage 给最终用户看的简短原因，不包含内部细节
func PublicMessage(err error) string {
	switch CodeOf(err) {
	case "":
		return "OK"
	case ErrCodeNotFound:
		return "User not found"
	case ErrCodeRateLimited:
		return "Rate limit exceeded"
	case ErrCodeGitHubAPI:
		return "GitHub API error"
	case ErrCodeInvalidFormat:
		return "Unsupported export format"
	case ErrCodeInvalidInput:
		var appErr *AppError
		errors.As(err, &appErr)
		return appErr.Message
	default:
		return "Internal error"
	}
}
