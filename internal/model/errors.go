package model

import "fmt"

// ValidationError 输入校验错误，在任何网络调用之前拒绝，不会自动重试
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("输入校验失败: %s %s", e.Field, e.Reason)
}

// ProviderError DNS提供商API调用失败或未返回Zone ID
type ProviderError struct {
	Provider string // 提供商标签
	Response string // 提供商原始响应
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("提供商 %s 调用失败: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("提供商 %s 调用失败: %s", e.Provider, e.Response)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// StoreError 持久化层不可用，仅中止当前周期，不终止调度循环
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("存储操作 %s 失败: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
