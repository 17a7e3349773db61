package brand

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolder_PublishCurrentGeneration(t *testing.T) {
	var h Holder
	assert.Nil(t, h.Current())

	at := time.Unix(100, 0)
	cfg := DefaultConfig()
	assert.True(t, h.Publish(h.Begin(), cfg, at))

	snap := h.Current()
	require.NotNil(t, snap)
	assert.Same(t, cfg, snap.Config)
	assert.Equal(t, at, snap.LoadedAt)
}

func TestHolder_StaleTicketDiscarded(t *testing.T) {
	var h Holder
	old := h.Begin()

	h.Invalidate()
	fresh := h.Begin()

	newer := DefaultConfig()
	assert.True(t, h.Publish(fresh, newer, time.Now()))
	assert.False(t, h.Publish(old, DefaultConfig(), time.Now()), "late result from older generation")
	assert.Same(t, newer, h.Current().Config)
}

func TestHolder_InvalidateClears(t *testing.T) {
	var h Holder
	h.Publish(h.Begin(), DefaultConfig(), time.Now())
	h.Invalidate()
	assert.Nil(t, h.Current())
}

func TestHolder_ConcurrentReaders(t *testing.T) {
	var h Holder
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.Publish(h.Begin(), DefaultConfig(), time.Now())
		}()
		go func() {
			defer wg.Done()
			if snap := h.Current(); snap != nil {
				assert.True(t, snap.Config.Complete())
			}
		}()
	}
	wg.Wait()
}
