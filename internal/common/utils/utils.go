// Package utils 提供通用工具函数
package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// weiPerEther 1 ETH 对应的 wei 数量
var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// GenerateReceiptNo 生成交易流水号
// 格式: 前缀 + 年月日时分秒 + 6位随机数
func GenerateReceiptNo(prefix string) string {
	now := time.Now()
	timestamp := now.Format("20060102150405")
	random := GenerateRandomNumber(6)
	return fmt.Sprintf("%s%s%s", prefix, timestamp, random)
}

// GenerateRandomNumber 生成指定长度的随机数字字符串
func GenerateRandomNumber(length int) string {
	var result strings.Builder
	for i := 0; i < length; i++ {
		n, _ := rand.Int(rand.Reader, big.NewInt(10))
		result.WriteString(strconv.Itoa(int(n.Int64())))
	}
	return result.String()
}

// ValidateWalletAddress 验证以太坊地址格式
func ValidateWalletAddress(addr string) bool {
	pattern := `^0x[0-9a-fA-F]{40}$`
	matched, _ := regexp.MatchString(pattern, addr)
	return matched
}

// ValidateTxHash 验证交易哈希格式
func ValidateTxHash(hash string) bool {
	pattern := `^0x[0-9a-fA-F]{64}$`
	matched, _ := regexp.MatchString(pattern, hash)
	return matched
}

// ValidateEmail 验证邮箱
func ValidateEmail(email string) bool {
	pattern := `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	matched, _ := regexp.MatchString(pattern, email)
	return matched
}

// FormatEther 将 wei 金额格式化为 ETH 字符串，只在展示边界使用
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	quo := new(big.Int)
	rem := new(big.Int)
	quo.QuoRem(wei, weiPerEther, rem)
	if rem.Sign() == 0 {
		return quo.String()
	}
	frac := fmt.Sprintf("%018s", rem.String())
	frac = strings.TrimRight(frac, "0")
	return quo.String() + "." + frac
}

// ParseEther 将十进制 ETH 字符串解析为 wei 金额
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("金额为空")
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("金额不能为负数")
	}
	parts := strings.SplitN(s, ".", 2)
	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 18 {
		return nil, fmt.Errorf("金额精度超过 18 位小数")
	}
	frac = frac + strings.Repeat("0", 18-len(frac))

	w, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return nil, fmt.Errorf("无效的金额: %s", s)
	}
	f, ok := new(big.Int).SetString(frac, 10)
	if !ok {
		return nil, fmt.Errorf("无效的金额: %s", s)
	}

	wei := new(big.Int).Mul(w, weiPerEther)
	return wei.Add(wei, f), nil
}

// ParseWei 解析十进制 wei 字符串
func ParseWei(s string) (*big.Int, error) {
	wei, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || wei.Sign() < 0 {
		return nil, fmt.Errorf("无效的 wei 金额: %s", s)
	}
	return wei, nil
}

// SumWei 累加 wei 金额
func SumWei(amounts []*big.Int) *big.Int {
	total := new(big.Int)
	for _, a := range amounts {
		if a != nil {
			total.Add(total, a)
		}
	}
	return total
}

// StringPtr 返回字符串指针
func StringPtr(s string) *string {
	return &s
}

// IntPtr 返回整数指针
func IntPtr(i int) *int {
	return &i
}

// Int64Ptr 返回 int64 指针
func Int64Ptr(i int64) *int64 {
	return &i
}

// Float64Ptr 返回 float64 指针
func Float64Ptr(f float64) *float64 {
	return &f
}

// TimePtr 返回时间指针
func TimePtr(t time.Time) *time.Time {
	return &t
}

// SafeString 安全获取字符串指针的值
func SafeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SafeInt 安全获取整数指针的值
func SafeInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

// SafeInt64 安全获取 int64 指针的值
func SafeInt64(i *int64) int64 {
	if i == nil {
		return 0
	}
	return *i
}

// Contains 判断切片是否包含元素
func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// Unique 切片去重
func Unique[T comparable](slice []T) []T {
	seen := make(map[T]struct{})
	result := make([]T, 0, len(slice))
	for _, v := range slice {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}
	return result
}

// Max 返回两个数中的较大值
func Max[T int | int64 | float64](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Min 返回两个数中的较小值
func Min[T int | int64 | float64](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Pagination 分页参数
type Pagination struct {
	Page     int   `json:"page" form:"page"`
	PageSize int   `json:"page_size" form:"page_size"`
	Total    int64 `json:"total"`
}

// GetOffset 获取偏移量
func (p *Pagination) GetOffset() int {
	return (p.Page - 1) * p.PageSize
}

// GetLimit 获取限制数
func (p *Pagination) GetLimit() int {
	return p.PageSize
}

// Normalize 规范化分页参数
func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 10
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

// GetTotalPages 获取总页数
func (p *Pagination) GetTotalPages() int {
	if p.Total == 0 {
		return 0
	}
	pages := int(p.Total) / p.PageSize
	if int(p.Total)%p.PageSize > 0 {
		pages++
	}
	return pages
}
