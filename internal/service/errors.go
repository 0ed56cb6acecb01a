// Package service 实现业务生命周期：项目状态机、报价、评价、支付
// 以及用户注册登录。每个转换操作同步校验权限和状态，成功后返回
// 一份副作用清单（notify.Effects）交由调用层分发。
package service

import (
	"errors"
	"fmt"
)

// Code 操作失败的分类。HTTP 层按它映射状态码。
type Code string

const (
	CodeInvalid   Code = "INVALID"
	CodeNotFound  Code = "NOT_FOUND"
	CodeForbidden Code = "FORBIDDEN"
	CodeConflict  Code = "CONFLICT"
	CodeInternal  Code = "INTERNAL"
)

// Error 带分类的业务错误。转换操作只返回这五类之一，
// 不向调用方泄露底层存储错误。
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func Invalid(format string, args ...any) *Error {
	return &Error{Code: CodeInvalid, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

func Internal(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// CodeOf 提取错误分类，非业务错误一律视为 INTERNAL
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
