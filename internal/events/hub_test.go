package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublishSubscribe(t *testing.T) {
	hub := NewHub(10)

	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Publish(StatusEvent{BatchID: "b-1", UnitID: "u-1", Status: "running"})
	hub.Publish(StatusEvent{BatchID: "b-1", UnitID: "u-1", Status: "succeeded"})

	first := <-ch
	second := <-ch

	assert.Equal(t, "running", first.Status)
	assert.Equal(t, "succeeded", second.Status)
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.False(t, first.At.IsZero())
}

func TestHubSnapshotSince(t *testing.T) {
	hub := NewHub(10)

	for i := 0; i < 5; i++ {
		hub.Publish(StatusEvent{UnitID: "u", Status: "running"})
	}

	all := hub.SnapshotSince(0)
	require.Len(t, all, 5)
	assert.Equal(t, int64(1), all[0].Seq)

	tail := hub.SnapshotSince(3)
	require.Len(t, tail, 2)
	assert.Equal(t, int64(4), tail[0].Seq)
	assert.Equal(t, int64(5), tail[1].Seq)
}

func TestHubRingOverwritesOldest(t *testing.T) {
	hub := NewHub(3)

	for i := 0; i < 5; i++ {
		hub.Publish(StatusEvent{UnitID: "u"})
	}

	snap := hub.SnapshotSince(0)
	require.Len(t, snap, 3)
	assert.Equal(t, int64(3), snap[0].Seq)
	assert.Equal(t, int64(5), snap[2].Seq)
}

func TestHubSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	hub := NewHub(4)

	// Never drained; its buffer fills and further events drop.
	_, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			hub.Publish(StatusEvent{UnitID: "u"})
		}
		close(done)
	}()

	<-done // would deadlock if Publish blocked on the full channel
	assert.Len(t, hub.SnapshotSince(0), 4)
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(4)
	ch, cancel := hub.Subscribe()

	cancel()
	_, open := <-ch
	assert.False(t, open)

	// A second cancel is a no-op.
	cancel()

	hub.Publish(StatusEvent{UnitID: "u"})
}
