package utils

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptyID ID 为空
	ErrEmptyID = errors.New("ID is empty")
	// ErrInvalidIDFormat ID 格式不合法
	ErrInvalidIDFormat = errors.New("ID contains invalid characters")
	// ErrIDTooLong ID 过长
	ErrIDTooLong = errors.New("ID exceeds maximum length")
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateTaskID 验证任务 ID 格式
// 只允许字母、数字、连字符、下划线,最长 64 字符
func ValidateTaskID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyID
	}
	if len(id) > 64 {
		return ErrIDTooLong
	}
	if !idPattern.MatchString(id) {
		return ErrInvalidIDFormat
	}
	return nil
}

// ValidateActorID 验证标注人 ID 格式
// 与任务 ID 相同的字符集约束
func ValidateActorID(actor string) error {
	return ValidateTaskID(actor)
}
