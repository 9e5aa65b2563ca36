// Package errors 定义业务错误码和错误处理
package errors

import (
	"fmt"
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新的应用错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithMessage 修改错误消息
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: message,
		Err:     e.Err,
	}
}

// WithError 添加原始错误
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// 通用错误码 (1000-1999)
var (
	ErrUnknown         = New(1000, "未知错误")
	ErrInvalidParams   = New(1001, "参数错误")
	ErrNotFound        = New(1002, "资源不存在")
	ErrAlreadyExists   = New(1003, "资源已存在")
	ErrDatabaseError   = New(1004, "数据库错误")
	ErrCacheError      = New(1005, "缓存错误")
	ErrInternalError   = New(1006, "内部错误")
	ErrExternalService = New(1007, "外部服务错误")
	ErrRateLimitExceed = New(1008, "请求过于频繁")
	ErrOperationFailed = New(1009, "操作失败")
)

// 认证错误码 (2000-2999)
var (
	ErrUnauthorized     = New(2000, "未登录")
	ErrTokenExpired     = New(2001, "登录已过期")
	ErrTokenInvalid     = New(2002, "无效的令牌")
	ErrTokenRefreshFail = New(2003, "刷新令牌失败")
	ErrPermissionDenied = New(2004, "权限不足")
	ErrAccountDisabled  = New(2005, "账号已禁用")
	ErrPasswordError    = New(2006, "密码错误")
	ErrAdminNotFound    = New(2007, "管理员不存在")
	ErrWalletInvalid    = New(2008, "无效的钱包地址")
)

// 链端错误码 (6000-6999)
//
// 四类失败语义：输入非法（进不了网络）、链端不可用（连不上）、
// 合约调用失败（到了链上但被拒绝）、返回数据无法解析（到了链上但读不懂）。
var (
	ErrProviderUnavailable = New(6000, "链端服务不可用")
	ErrContractCallFailed  = New(6001, "合约调用失败")
	ErrTxReverted          = New(6002, "交易被合约拒绝")
	ErrTxConfirmTimeout    = New(6003, "等待交易确认超时")
	ErrInsufficientFunds   = New(6004, "账户余额不足")
	ErrParseFailure        = New(6005, "链上记录解析失败")
	ErrTxPending           = New(6006, "存在未确认的同类交易")
)

// 房晚通证错误码 (7000-7999)
var (
	ErrRoomIDOutOfRange   = New(7000, "房间编号超出可编码范围")
	ErrDateRangeInvalid   = New(7001, "无效的日期区间")
	ErrPriceRangeInvalid  = New(7002, "无效的价格区间")
	ErrTokenIDsEmpty      = New(7003, "通证列表为空")
	ErrTokenIDsDuplicated = New(7004, "通证列表存在重复")
	ErrRoomDayNotFound    = New(7005, "房晚通证不存在")
	ErrRoomNotAvailable   = New(7006, "房晚不可预订")
	ErrNotBooked          = New(7007, "房晚未处于已预订状态")
	ErrNotTokenOwner      = New(7008, "非通证持有人")
	ErrPriceMismatch      = New(7009, "支付金额与当前挂牌价不符")
	ErrRoomDayLocked      = New(7010, "房晚正在处理中，请稍后重试")
	ErrMintRangeTooLarge  = New(7011, "铸造范围超出限制")
)

// 元数据错误码 (8000-8999)
var (
	ErrMetadataUnavailable = New(8000, "元数据不可用")
)

// IsAppError 判断是否为应用错误
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError 获取应用错误
func GetAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrUnknown.WithError(err)
}
