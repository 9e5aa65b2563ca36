// Package mqtt 提供酒店门锁通信服务
package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notifier 入住通知发送器
//
// 核销上链成功后向房间门锁下发开锁授权；门锁离线时命令
// 由 broker 暂存，这里只负责发送与等待确认。
type Notifier struct {
	client     *Client
	pending    map[string]*pendingNotice
	mu         sync.RWMutex
	ackTimeout time.Duration
}

// pendingNotice 待响应通知
type pendingNotice struct {
	CommandID string
	RoomID    int64
	Created   time.Time
	AckChan   chan *AckPayload
}

// NotifyResult 通知结果
type NotifyResult struct {
	Success bool
	Message string
}

// NewNotifier 创建入住通知发送器
func NewNotifier(client *Client, ackTimeout time.Duration) *Notifier {
	if ackTimeout == 0 {
		ackTimeout = 30 * time.Second
	}

	return &Notifier{
		client:     client,
		pending:    make(map[string]*pendingNotice),
		ackTimeout: ackTimeout,
	}
}

// SendCheckIn 下发入住开锁授权并等待门锁确认
func (n *Notifier) SendCheckIn(ctx context.Context, roomID, tokenID int64, date, guest string) (*NotifyResult, error) {
	commandID := uuid.New().String()

	payload := &CommandPayload{
		CommandID:   commandID,
		CommandType: MsgTypeCheckIn,
		Data: map[string]interface{}{
			"token_id": tokenID,
			"room_id":  roomID,
			"date":     date,
			"guest":    guest,
		},
		Timestamp: time.Now().Unix(),
	}

	pending := &pendingNotice{
		CommandID: commandID,
		RoomID:    roomID,
		Created:   time.Now(),
		AckChan:   make(chan *AckPayload, 1),
	}

	n.mu.Lock()
	n.pending[commandID] = pending
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		delete(n.pending, commandID)
		n.mu.Unlock()
		close(pending.AckChan)
	}()

	topic := fmt.Sprintf(TopicLockCommand, roomID)
	if err := n.client.PublishWithContext(ctx, topic, payload); err != nil {
		return nil, fmt.Errorf("publish checkin notice error: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case ack := <-pending.AckChan:
		return &NotifyResult{
			Success: ack.Success,
			Message: ack.Message,
		}, nil
	case <-time.After(n.ackTimeout):
		return nil, fmt.Errorf("checkin notice timeout: %s", commandID)
	}
}

// SendCheckInAsync 下发入住开锁授权（不等待确认）
//
// 核销主流程不依赖门锁在线，默认走异步。
func (n *Notifier) SendCheckInAsync(ctx context.Context, roomID, tokenID int64, date, guest string) (string, error) {
	commandID := uuid.New().String()

	payload := &CommandPayload{
		CommandID:   commandID,
		CommandType: MsgTypeCheckIn,
		Data: map[string]interface{}{
			"token_id": tokenID,
			"room_id":  roomID,
			"date":     date,
			"guest":    guest,
		},
		Timestamp: time.Now().Unix(),
	}

	topic := fmt.Sprintf(TopicLockCommand, roomID)
	if err := n.client.PublishWithContext(ctx, topic, payload); err != nil {
		return "", fmt.Errorf("publish checkin notice error: %w", err)
	}

	return commandID, nil
}

// HandleAck 处理门锁响应
func (n *Notifier) HandleAck(ack *AckPayload) {
	n.mu.RLock()
	pending, ok := n.pending[ack.CommandID]
	n.mu.RUnlock()

	if ok {
		select {
		case pending.AckChan <- ack:
		default:
		}
	}
}

// CleanupExpired 清理过期的待响应通知
func (n *Notifier) CleanupExpired() {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now()
	for id, pending := range n.pending {
		if now.Sub(pending.Created) > n.ackTimeout*2 {
			delete(n.pending, id)
		}
	}
}

// StartCleanup 启动清理协程
func (n *Notifier) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.CleanupExpired()
		}
	}
}
