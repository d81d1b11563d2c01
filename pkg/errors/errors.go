package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrDependencyUnavailable 外部依赖（邮件、通知等）不可用
// 仅用于日志与指标，不向调用方传播
var ErrDependencyUnavailable = errors.New("外部依赖不可用")
