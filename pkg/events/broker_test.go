package events_test

import (
	"testing"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_PublishReachesSessionSubscribers(t *testing.T) {
	b := events.NewBroker()

	ch1, cancel1 := b.Subscribe("s1")
	defer cancel1()
	ch2, cancel2 := b.Subscribe("s2")
	defer cancel2()

	turn := 3
	b.Publish(&domain.SnapshotDiff{SessionID: "s1", Turn: &turn})

	select {
	case diff := <-ch1:
		require.NotNil(t, diff.Turn)
		assert.Equal(t, 3, *diff.Turn)
	default:
		t.Fatal("expected a diff for s1")
	}

	select {
	case <-ch2:
		t.Fatal("s2 must not see s1 diffs")
	default:
	}
}

func TestBroker_SlowSubscriberDrops(t *testing.T) {
	b := events.NewBroker(events.WithBuffer(1))
	ch, cancel := b.Subscribe("s")
	defer cancel()

	b.Publish(&domain.SnapshotDiff{SessionID: "s"})
	b.Publish(&domain.SnapshotDiff{SessionID: "s"})

	assert.Len(t, ch, 1)
}

func TestBroker_CancelClosesAndUnregisters(t *testing.T) {
	b := events.NewBroker()
	ch, cancel := b.Subscribe("s")
	assert.Equal(t, 1, b.Subscribers("s"))

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.Subscribers("s"))

	assert.NotPanics(t, func() { b.Publish(&domain.SnapshotDiff{SessionID: "s"}) })
	assert.NotPanics(t, func() { b.Publish(nil) })
}

func TestBroker_CloseSession(t *testing.T) {
	b := events.NewBroker()
	ch1, cancel1 := b.Subscribe("s")
	ch2, _ := b.Subscribe("s")

	b.CloseSession("s")

	_, open := <-ch1
	assert.False(t, open)
	_, open = <-ch2
	assert.False(t, open)

	assert.NotPanics(t, cancel1, "cancel after CloseSession is a no-op")
}
