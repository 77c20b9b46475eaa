package stream_test

import (
	"testing"
	"time"

	"github.com/fwojciec/drip/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_RunsInPostingOrder(t *testing.T) {
	t.Parallel()
	q := stream.NewQueue()
	var got []int
	for i := range 100 {
		require.True(t, q.Post(func() { got = append(got, i) }))
	}
	q.Close()

	select {
	case <-q.Done():
	case <-time.After(time.Second):
		t.Fatal("queue did not drain")
	}
	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestQueue_PostAfterCloseIsDropped(t *testing.T) {
	t.Parallel()
	q := stream.NewQueue()
	q.Close()
	ran := false
	assert.False(t, q.Post(func() { ran = true }))
	<-q.Done()
	assert.False(t, ran)
}
