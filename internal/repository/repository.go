// Package repository PostgreSQL 持久层。状态转换一律用
// 「期望当前状态」的条件 UPDATE（比较行数），不做读-改-写。
package repository

import "errors"

// ErrDuplicate 唯一约束冲突（组合键或唯一列）
var ErrDuplicate = errors.New("repository: duplicate key")

// isUniqueViolation 见 pgerr.go
