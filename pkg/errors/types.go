package errors

import "errors"

// ========== 业务错误类型定义 ==========
//
// 核心服务只返回以下几类错误，HTTP层根据类型映射为响应码：
//   ValidationError      参数或业务规则校验失败（未知权限项、AUDIT只读规则等）
//   StateTransitionError 申请单状态机非法转移（终态后再处理）
//   AccessDeniedError    权限评估链判定为拒绝
//   NotFoundError        资源、申请单或权限记录不存在
//   ConflictError        重复提交、外部ID冲突等唯一性冲突

// ValidationError 校验错误
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NewValidation 创建校验错误
func NewValidation(reason string) error {
	return &ValidationError{Reason: reason}
}

// StateTransitionError 状态转移错误
type StateTransitionError struct {
	From string // 当前状态
	To   string // 目标状态
}

func (e *StateTransitionError) Error() string {
	return "无法从状态 " + e.From + " 转移到 " + e.To
}

// AccessDeniedError 权限拒绝错误
type AccessDeniedError struct {
	Reason string
}

func (e *AccessDeniedError) Error() string {
	if e.Reason == "" {
		return "权限不足"
	}
	return e.Reason
}

// NotFoundError 资源不存在错误
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return e.What + "不存在"
}

// ConflictError 唯一性冲突错误
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// ========== 类型判断辅助 ==========

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsStateTransition(err error) bool {
	var target *StateTransitionError
	return errors.As(err, &target)
}

func IsAccessDenied(err error) bool {
	var target *AccessDeniedError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}
