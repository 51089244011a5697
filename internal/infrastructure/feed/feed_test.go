package feed

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stream-listener/internal/infrastructure/stream"
)

func TestPublishKeepsBoundedHistory(t *testing.T) {
	f := New(3)
	for i := 0; i < 5; i++ {
		_, ok := f.Publish(stream.Message(fmt.Sprintf("m%d", i)))
		require.True(t, ok)
	}

	history := f.History()
	require.Len(t, history, 3)
	assert.Equal(t, "m2", history[0].Body)
	assert.Equal(t, uint64(3), history[0].Seq)
	assert.Equal(t, "m4", history[2].Body)
	assert.Equal(t, uint64(5), f.Len())
}

func TestRecordCarriesEventFields(t *testing.T) {
	f := New(0)
	rec, _ := f.Publish(stream.ErrorEvent("reset"))
	assert.Equal(t, "error", rec.Kind)
	assert.Equal(t, "reset", rec.Description)
	assert.Empty(t, rec.Body)
	assert.False(t, rec.ReceivedAt.IsZero())
}

func TestSubscribeReceivesSnapshotThenLive(t *testing.T) {
	f := New(10)
	f.Publish(stream.Opened())

	snapshot, ch, cancel := f.Subscribe()
	defer cancel()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "opened", snapshot[0].Kind)
	assert.Equal(t, 1, f.SubscriberCount())

	f.Publish(stream.Message("live"))
	rec := <-ch
	assert.Equal(t, "live", rec.Body)

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, f.SubscriberCount())
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	f := New(2)
	_, ch, cancel := f.Subscribe()
	defer cancel()

	for i := 0; i < 3; i++ {
		f.Publish(stream.Message("x"))
	}
	assert.Zero(t, f.SubscriberCount())

	n := 0
	for range ch {
		n++
	}
	assert.Equal(t, 2, n)
}

func TestCloseEndsSubscriptions(t *testing.T) {
	f := New(4)
	_, ch, _ := f.Subscribe()

	f.Close()
	f.Close()
	_, ok := <-ch
	assert.False(t, ok)
	assert.True(t, f.IsClosed())

	_, published := f.Publish(stream.Message("late"))
	assert.False(t, published)

	select {
	case <-f.Done():
	default:
		t.Fatal("Done should be closed")
	}

	_, late, _ := f.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}
