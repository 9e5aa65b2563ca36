package mqtt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRoomID(t *testing.T) {
	tests := []struct {
		topic  string
		roomID int64
		ok     bool
	}{
		{"room/101/ack", 101, true},
		{"room/7/status", 7, true},
		{"room/abc/ack", 0, false},
		{"malformed", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			id, ok := extractRoomID(tt.topic)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.roomID, id)
			}
		})
	}
}

func TestNotifier_HandleAck(t *testing.T) {
	n := NewNotifier(nil, time.Second)

	pending := &pendingNotice{
		CommandID: "cmd-1",
		RoomID:    101,
		Created:   time.Now(),
		AckChan:   make(chan *AckPayload, 1),
	}
	n.pending["cmd-1"] = pending

	n.HandleAck(&AckPayload{CommandID: "cmd-1", RoomID: 101, Success: true})

	select {
	case ack := <-pending.AckChan:
		require.NotNil(t, ack)
		assert.True(t, ack.Success)
	default:
		t.Fatal("ack not delivered")
	}

	// 未注册的命令不应 panic
	n.HandleAck(&AckPayload{CommandID: "unknown"})
}

func TestNotifier_CleanupExpired(t *testing.T) {
	n := NewNotifier(nil, 10*time.Millisecond)

	n.pending["old"] = &pendingNotice{
		CommandID: "old",
		Created:   time.Now().Add(-time.Minute),
		AckChan:   make(chan *AckPayload, 1),
	}
	n.pending["fresh"] = &pendingNotice{
		CommandID: "fresh",
		Created:   time.Now(),
		AckChan:   make(chan *AckPayload, 1),
	}

	n.CleanupExpired()

	assert.NotContains(t, n.pending, "old")
	assert.Contains(t, n.pending, "fresh")
}
