// Package metadata 提供房晚通证元数据客户端
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config 元数据服务配置
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Metadata 通证元数据
type Metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Image       string      `json:"image,omitempty"`
	Attributes  []Attribute `json:"attributes,omitempty"`
}

// Attribute 元数据属性
type Attribute struct {
	TraitType string      `json:"trait_type"`
	Value     interface{} `json:"value"`
}

// Client 元数据客户端
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient 创建元数据客户端
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Fetch 获取单个通证的元数据
//
// 任何失败（网络、非 2xx、解析）都只返回错误；
// 元数据缺失不影响链上数据本身，由调用方决定降级策略。
func (c *Client) Fetch(ctx context.Context, tokenID int64) (*Metadata, error) {
	url := fmt.Sprintf("%s/%d", c.baseURL, tokenID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build metadata request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata for token %d: %w", tokenID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("metadata for token %d: unexpected status %d", tokenID, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read metadata for token %d: %w", tokenID, err)
	}

	var meta Metadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata for token %d: %w", tokenID, err)
	}

	return &meta, nil
}
