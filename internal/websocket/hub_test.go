package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/isdelr/task-manager-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestHub_PublishReachesOnlyOwner(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	alice1 := NewClient(hub, nil, 1)
	alice2 := NewClient(hub, nil, 1)
	bob := NewClient(hub, nil, 2)
	for _, c := range []*Client{alice1, alice2, bob} {
		require.True(t, hub.Add(c))
	}

	taskID := int64(5)
	hub.Publish(1, models.Event{ID: 10, UserID: 1, Type: models.EventTaskCreated, Message: "Task 'x' created", TaskID: &taskID})

	for _, c := range []*Client{alice1, alice2} {
		var msg struct {
			Action  string       `json:"action"`
			Payload models.Event `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(receive(t, c), &msg))
		assert.Equal(t, ActionTaskEvent, msg.Action)
		assert.Equal(t, int64(10), msg.Payload.ID)
		assert.Equal(t, models.EventTaskCreated, msg.Payload.Type)
	}

	select {
	case <-bob.Send:
		t.Fatal("bob received alice's event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_RemoveClosesSend(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	c := NewClient(hub, nil, 1)
	require.True(t, hub.Add(c))
	hub.Remove(c)

	select {
	case _, ok := <-c.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}

	// Removing twice is harmless.
	hub.Remove(c)
}

func TestHub_StoppedHubRejectsClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	hub.Stop()

	assert.False(t, hub.Add(NewClient(hub, nil, 1)))
	hub.SendToUser(1, []byte("dropped"))
}
