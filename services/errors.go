package services

import (
	"errors"
	"fmt"
)

var (
	ErrTickInFlight   = errors.New("上一轮同步尚未完成")
	ErrValidation     = errors.New("前置条件不满足")
	ErrRelayFailed    = errors.New("交易已提交，但通知事件转发失败")
	ErrMissingField   = errors.New("事件缺少必要字段")
	ErrGameIDRequired = errors.New("缺少游戏ID")
	ErrNoSnapshot     = errors.New("尚未同步到游戏状态")
)

// ValidationError 本地前置检查失败，未发起任何网络请求
type ValidationError struct {
	Reason string
	Cause  error // 可选的具体原因，如 ErrNoSnapshot
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrValidation, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func noSnapshot(gameID string) error {
	reason := ErrNoSnapshot.Error()
	if gameID != "" {
		reason = fmt.Sprintf("%s: %s", reason, gameID)
	}
	return &ValidationError{Reason: reason, Cause: ErrNoSnapshot}
}
