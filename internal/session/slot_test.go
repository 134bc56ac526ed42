package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webqa/internal/domain"
)

type namedPipeline string

func (p namedPipeline) Run(ctx context.Context, q string) (domain.Answer, error) {
	return domain.Answer{Text: string(p)}, nil
}

func TestSlot_EmptyAtStart(t *testing.T) {
	s := NewSlot()

	h, release, ok := s.Acquire()
	release()

	assert.False(t, ok)
	assert.Nil(t, h)
	_, ok = s.Status()
	assert.False(t, ok)
}

func TestSlot_LastPublishWins(t *testing.T) {
	// Given: two publishes
	s := NewSlot()
	first := s.Publish(namedPipeline("a"), Info{Collection: "c1"}, nil)
	second := s.Publish(namedPipeline("b"), Info{Collection: "c2"}, nil)

	// When: acquiring
	h, release, ok := s.Acquire()
	defer release()

	// Then: the second pipeline is active with a higher generation
	require.True(t, ok)
	assert.Equal(t, namedPipeline("b"), h.Pipeline)
	assert.Equal(t, "c2", h.Info.Collection)
	assert.Greater(t, second.Generation, first.Generation)
	info, ok := s.Status()
	require.True(t, ok)
	assert.Equal(t, second.Generation, info.Generation)
}

func TestSlot_RetiredHandleClosesAfterLastRelease(t *testing.T) {
	// Given: an in-flight holder of the first pipeline
	s := NewSlot()
	var closed atomic.Int32
	s.Publish(namedPipeline("a"), Info{}, func() { closed.Add(1) })
	h, release, ok := s.Acquire()
	require.True(t, ok)

	// When: a new pipeline is published
	s.Publish(namedPipeline("b"), Info{}, nil)

	// Then: the old one stays usable until released, then closes once
	assert.Equal(t, int32(0), closed.Load())
	ans, err := h.Pipeline.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "a", ans.Text)
	release()
	release()
	assert.Equal(t, int32(1), closed.Load())
}

func TestSlot_UnheldHandleClosesOnPublish(t *testing.T) {
	s := NewSlot()
	var closed atomic.Int32
	s.Publish(namedPipeline("a"), Info{}, func() { closed.Add(1) })

	s.Publish(namedPipeline("b"), Info{}, nil)

	assert.Equal(t, int32(1), closed.Load())
}

func TestSlot_Close(t *testing.T) {
	s := NewSlot()
	var closed atomic.Int32
	s.Publish(namedPipeline("a"), Info{}, func() { closed.Add(1) })

	s.Close()

	assert.Equal(t, int32(1), closed.Load())
	_, _, ok := s.Acquire()
	assert.False(t, ok)
}

func TestSlot_ConcurrentPublishAndAcquire(t *testing.T) {
	// Given: concurrent publishers and readers
	s := NewSlot()
	var closes atomic.Int32
	const publishes = 50

	var wg sync.WaitGroup
	for i := 0; i < publishes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Publish(namedPipeline("p"), Info{}, func() { closes.Add(1) })
		}()
	}
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, release, ok := s.Acquire()
			defer release()
			if ok {
				_, _ = h.Pipeline.Run(context.Background(), "q")
			}
		}()
	}
	wg.Wait()

	// Then: every replaced handle was closed exactly once, the active one was not
	assert.Equal(t, int32(publishes-1), closes.Load())
	info, ok := s.Status()
	require.True(t, ok)
	assert.Equal(t, uint64(publishes), info.Generation)
}
