package actions

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinatorBeginEnd(t *testing.T) {
	c := NewCoordinator()

	require.True(t, c.Begin("at://a/post/1", KindLike))
	assert.True(t, c.Pending("at://a/post/1", KindLike))

	// Second trigger of the same pair is rejected
	assert.False(t, c.Begin("at://a/post/1", KindLike))

	c.End("at://a/post/1", KindLike)
	assert.False(t, c.Pending("at://a/post/1", KindLike))
	assert.True(t, c.Begin("at://a/post/1", KindLike))
}

func TestCoordinatorKindsIndependent(t *testing.T) {
	c := NewCoordinator()

	require.True(t, c.Begin("at://a/post/1", KindLike))
	assert.True(t, c.Begin("at://a/post/1", KindRepost))
	assert.True(t, c.Begin("at://a/post/2", KindLike))
}

func TestCoordinatorEndIdempotent(t *testing.T) {
	c := NewCoordinator()

	c.End("at://a/post/1", KindLike)
	c.End("at://a/post/1", KindLike)
	assert.True(t, c.Begin("at://a/post/1", KindLike))
}

func TestCoordinatorConcurrentBegin(t *testing.T) {
	c := NewCoordinator()

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Begin("at://a/post/1", KindLike) {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won)
}
