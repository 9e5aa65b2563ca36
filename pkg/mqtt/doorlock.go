// Package mqtt 提供酒店门锁通信服务
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
)

// Topic 定义
const (
	// 门锁上报主题
	TopicLockAck    = "room/+/ack"    // 命令响应
	TopicLockStatus = "room/+/status" // 门锁状态上报

	// 服务端下发主题
	TopicLockCommand = "room/%d/command" // 命令下发
)

// MessageType 消息类型
const (
	MsgTypeAck     = "ack"     // 响应
	MsgTypeStatus  = "status"  // 状态
	MsgTypeCheckIn = "checkin" // 入住开锁
	MsgTypeRevoke  = "revoke"  // 撤销门禁
)

// CheckInPayload 入住命令数据
//
// 核销成功后下发，门锁据此放行对应日期的住客。
type CheckInPayload struct {
	CommandID string `json:"command_id"`
	TokenID   int64  `json:"token_id"`
	RoomID    int64  `json:"room_id"`
	Date      string `json:"date"` // YYYY-MM-DD
	Guest     string `json:"guest,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// CommandPayload 命令数据
type CommandPayload struct {
	CommandID   string                 `json:"command_id"`
	CommandType string                 `json:"command_type"`
	Data        map[string]interface{} `json:"data,omitempty"`
	Timestamp   int64                  `json:"timestamp"`
}

// AckPayload 响应数据
type AckPayload struct {
	RoomID    int64  `json:"room_id"`
	CommandID string `json:"command_id"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// StatusPayload 门锁状态数据
type StatusPayload struct {
	RoomID       int64 `json:"room_id"`
	OnlineStatus int8  `json:"online_status"`
	BatteryLevel int   `json:"battery_level,omitempty"`
	Timestamp    int64 `json:"timestamp"`
}

// LockHandler 门锁消息处理器接口
type LockHandler interface {
	OnAck(ctx context.Context, roomID int64, payload *AckPayload) error
	OnStatus(ctx context.Context, roomID int64, payload *StatusPayload) error
}

// LockMessageHandler 门锁消息处理器
type LockMessageHandler struct {
	client  *Client
	handler LockHandler
}

// NewLockMessageHandler 创建门锁消息处理器
func NewLockMessageHandler(client *Client, handler LockHandler) *LockMessageHandler {
	return &LockMessageHandler{
		client:  client,
		handler: handler,
	}
}

// Start 启动消息处理
func (h *LockMessageHandler) Start(ctx context.Context) error {
	topics := map[string]MessageHandler{
		TopicLockAck:    h.handleAck,
		TopicLockStatus: h.handleStatus,
	}

	if err := h.client.SubscribeMultiple(topics); err != nil {
		return fmt.Errorf("subscribe lock topics error: %w", err)
	}

	log.Println("[LockHandler] Started listening for door lock messages")
	return nil
}

// Stop 停止消息处理
func (h *LockMessageHandler) Stop() error {
	if err := h.client.Unsubscribe(TopicLockAck, TopicLockStatus); err != nil {
		return fmt.Errorf("unsubscribe lock topics error: %w", err)
	}

	log.Println("[LockHandler] Stopped listening for door lock messages")
	return nil
}

// handleAck 处理响应消息
func (h *LockMessageHandler) handleAck(topic string, payload []byte) {
	roomID, ok := extractRoomID(topic)
	if !ok {
		log.Printf("[LockHandler] Invalid ack topic: %s", topic)
		return
	}

	var data AckPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		log.Printf("[LockHandler] Parse ack error: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.handler.OnAck(ctx, roomID, &data); err != nil {
		log.Printf("[LockHandler] Handle ack error: %v", err)
	}
}

// handleStatus 处理状态消息
func (h *LockMessageHandler) handleStatus(topic string, payload []byte) {
	roomID, ok := extractRoomID(topic)
	if !ok {
		log.Printf("[LockHandler] Invalid status topic: %s", topic)
		return
	}

	var data StatusPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		log.Printf("[LockHandler] Parse status error: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.handler.OnStatus(ctx, roomID, &data); err != nil {
		log.Printf("[LockHandler] Handle status error: %v", err)
	}
}

// extractRoomID 从主题中提取房间编号
func extractRoomID(topic string) (int64, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return 0, false
	}
	var id int64
	if _, err := fmt.Sscanf(parts[1], "%d", &id); err != nil {
		return 0, false
	}
	return id, true
}
