package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound 任务不存在
var ErrNotFound = errors.New("task not found")

// ConflictError 状态冲突错误
// 期望状态与实际状态不一致时返回,包括: 任务被其他人持有、任务已提交、锁不可用
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", e.Reason)
}

// NewConflict 创建状态冲突错误
func NewConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

// ValidationError 校验错误
// 携带所有不合法的字段,而不是只返回第一个
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Fields, ", "))
}

// NewValidation 创建校验错误
func NewValidation(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// IsNotFound 判断是否为不存在错误
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict 判断是否为冲突错误
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsValidation 判断是否为校验错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
