package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 使用场景：
//   - 交互校验错误：INVALID_INPUT（字段越界）
//   - 算法分发错误：UNKNOWN_ALGORITHM
//   - 存储错误：NOT_FOUND, NOT_SUPPORTED
//   - 模型重训错误：REFIT_FAILED（空数据集等，仅内部记录）
type DomainError struct {
	Code    string // 错误代码（如 "INVALID_INPUT", "NOT_FOUND"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "model", "service"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound         = "NOT_FOUND"          // 资源不存在
	ErrorCodeNotSupported     = "NOT_SUPPORTED"      // 操作不支持
	ErrorCodeUnavailable      = "UNAVAILABLE"        // 服务不可用
	ErrorCodeInvalidInput     = "INVALID_INPUT"      // 输入无效（交互字段越界）
	ErrorCodeUnknownAlgorithm = "UNKNOWN_ALGORITHM"  // 未知的推荐算法
	ErrorCodeRefitFailed      = "REFIT_FAILED"       // 模型重训失败
	ErrorCodeInternalError    = "INTERNAL_ERROR"     // 内部错误
)

// 模块名称常量
const (
	ModuleStore     = "store"     // 存储模块
	ModuleContent   = "content"   // 内容索引模块
	ModuleModel     = "model"     // 模型模块
	ModuleService   = "service"   // 服务模块
	ModuleScheduler = "scheduler" // 刷新调度模块
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool { return hasCode(err, ErrorCodeNotSupported) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT（交互校验失败）
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// IsUnknownAlgorithm 检查错误是否为 UNKNOWN_ALGORITHM
func IsUnknownAlgorithm(err error) bool { return hasCode(err, ErrorCodeUnknownAlgorithm) }

// IsRefitFailed 检查错误是否为 REFIT_FAILED
func IsRefitFailed(err error) bool { return hasCode(err, ErrorCodeRefitFailed) }
