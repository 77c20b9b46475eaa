package stream_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/drip/stream"
	"github.com/stretchr/testify/assert"
)

func TestScheduler_TicksUntilTickReturnsFalse(t *testing.T) {
	t.Parallel()
	var ticks atomic.Int32
	s := stream.NewScheduler(time.Millisecond, func() bool {
		return ticks.Add(1) < 3
	})
	s.Start()

	assert.Eventually(t, s.Stopped, time.Second, time.Millisecond)
	assert.Equal(t, int32(3), ticks.Load())

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(3), ticks.Load(), "no tick after the scheduler halted")
}

func TestScheduler_NoTickAfterStop(t *testing.T) {
	t.Parallel()
	var ticks atomic.Int32
	s := stream.NewScheduler(time.Millisecond, func() bool {
		ticks.Add(1)
		return true
	})
	s.Start()
	assert.Eventually(t, func() bool { return ticks.Load() > 0 }, time.Second, time.Millisecond)

	s.Stop()
	after := ticks.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, after, ticks.Load())
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	t.Parallel()
	s := stream.NewScheduler(time.Millisecond, func() bool { return true })
	s.Start()
	assert.NotPanics(t, func() {
		s.Stop()
		s.Stop()
	})
	assert.True(t, s.Stopped())
}

func TestScheduler_StartAfterStopDoesNothing(t *testing.T) {
	t.Parallel()
	var ticks atomic.Int32
	s := stream.NewScheduler(time.Millisecond, func() bool {
		ticks.Add(1)
		return true
	})
	s.Stop()
	s.Start()
	time.Sleep(10 * time.Millisecond)
	assert.False(t, s.Started())
	assert.Zero(t, ticks.Load())
}

func TestScheduler_StopFromInsideTick(t *testing.T) {
	t.Parallel()
	var ticks atomic.Int32
	var s *stream.Scheduler
	s = stream.NewScheduler(time.Millisecond, func() bool {
		ticks.Add(1)
		s.Stop()
		return true
	})
	s.Start()
	assert.Eventually(t, s.Stopped, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), ticks.Load())
}
