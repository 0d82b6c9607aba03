package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptimisticRefs(t *testing.T) {
	ref := NewOptimisticRef()
	assert.True(t, IsOptimisticRef(ref))
	assert.NotEqual(t, ref, NewOptimisticRef())

	assert.False(t, IsOptimisticRef(""))
	assert.False(t, IsOptimisticRef("at://did:plc:alice/app.bsky.feed.like/1"))
}
