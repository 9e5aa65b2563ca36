// Package metadata 元数据客户端单元测试
package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Fetch(t *testing.T) {
	t.Run("成功获取元数据", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/20250601101", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"name": "Room 101 - 2025-06-01",
				"description": "Standard room",
				"image": "https://cdn.example.com/101.png",
				"attributes": [{"trait_type": "roomType", "value": "STANDARD"}]
			}`))
		}))
		defer srv.Close()

		client := NewClient(&Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
		meta, err := client.Fetch(context.Background(), 20250601101)
		require.NoError(t, err)
		assert.Equal(t, "Room 101 - 2025-06-01", meta.Name)
		assert.Equal(t, "Standard room", meta.Description)
		require.Len(t, meta.Attributes, 1)
		assert.Equal(t, "roomType", meta.Attributes[0].TraitType)
	})

	t.Run("404返回错误", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		client := NewClient(&Config{BaseURL: srv.URL})
		meta, err := client.Fetch(context.Background(), 1)
		assert.Error(t, err)
		assert.Nil(t, meta)
	})

	t.Run("非法JSON返回错误", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not-json`))
		}))
		defer srv.Close()

		client := NewClient(&Config{BaseURL: srv.URL})
		_, err := client.Fetch(context.Background(), 1)
		assert.Error(t, err)
	})

	t.Run("服务不可达返回错误", func(t *testing.T) {
		client := NewClient(&Config{BaseURL: "http://127.0.0.1:1", Timeout: 500 * time.Millisecond})
		_, err := client.Fetch(context.Background(), 1)
		assert.Error(t, err)
	})

	t.Run("上下文取消返回错误", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		client := NewClient(&Config{BaseURL: srv.URL})
		_, err := client.Fetch(ctx, 1)
		assert.Error(t, err)
	})
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	client := NewClient(&Config{BaseURL: "http://localhost:3000/api/metadata/"})
	assert.Equal(t, "http://localhost:3000/api/metadata", client.baseURL)
}
