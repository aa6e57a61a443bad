package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartAllocatesSequentialIDs(t *testing.T) {
	r := NewRegistry(DefaultFeedCapacity)

	for i, want := range []string{"sub-1", "sub-2", "sub-3"} {
		id, msg := r.Start()
		assert.Equal(t, want, id)
		assert.Equal(t, i+1, r.Count())
		assert.Equal(t, "Subscription "+want+" started - listening for updates...", msg.Message)
		assert.False(t, msg.New)
	}
}

func TestStopRemovesOldestFirst(t *testing.T) {
	r := NewRegistry(DefaultFeedCapacity)
	r.Start()
	r.Start()

	id, msg, ok := r.Stop()
	require.True(t, ok)
	assert.Equal(t, "sub-1", id)
	assert.Equal(t, "Subscription sub-1 stopped", msg.Message)
	assert.Equal(t, []string{"sub-2"}, r.Active())

	// ids are never reused
	next, _ := r.Start()
	assert.Equal(t, "sub-3", next)
}

func TestStopOnEmptyIsNoop(t *testing.T) {
	r := NewRegistry(DefaultFeedCapacity)

	_, _, ok := r.Stop()
	assert.False(t, ok)
	assert.Zero(t, r.Count())
	assert.Empty(t, r.Feed())
}

func TestStopID(t *testing.T) {
	r := NewRegistry(DefaultFeedCapacity)
	r.Start()
	r.Start()
	r.Start()

	_, ok := r.StopID("sub-2")
	require.True(t, ok)
	assert.Equal(t, []string{"sub-1", "sub-3"}, r.Active())

	_, ok = r.StopID("sub-2")
	assert.False(t, ok)
}

func TestTriggerReachesEveryActiveSubscription(t *testing.T) {
	r := NewRegistry(DefaultFeedCapacity)
	assert.Empty(t, r.Trigger())

	r.Start()
	r.Start()
	msgs := r.Trigger()

	require.Len(t, msgs, 2)
	assert.Equal(t, "[sub-1] New post created: Real-time Update", msgs[0].Message)
	assert.Equal(t, "[sub-2] New post created: Real-time Update", msgs[1].Message)
	assert.True(t, msgs[0].New)
	assert.NotNil(t, msgs[0].Data)
}

func TestBroadcastMutation(t *testing.T) {
	r := NewRegistry(DefaultFeedCapacity)
	assert.Empty(t, r.BroadcastMutation("CreatePost"))

	r.Start()
	r.Start()
	r.Start()
	before := len(r.Feed())

	msgs := r.BroadcastMutation("CreatePost")
	assert.Len(t, msgs, 3)
	assert.Len(t, r.Feed(), before+3)
	assert.Equal(t, "[sub-3] Mutation CreatePost triggered update", msgs[2].Message)
}

func TestFeedIsBounded(t *testing.T) {
	r := NewRegistry(DefaultFeedCapacity)
	r.Start()
	for i := 0; i < 60; i++ {
		r.Trigger()
	}

	feed := r.Feed()
	assert.Len(t, feed, 50)
	for _, msg := range feed {
		assert.True(t, msg.New, "start message should have been evicted")
	}
}
