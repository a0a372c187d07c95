package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketAllowsBurstThenBlocks(t *testing.T) {
	bucket := newTokenBucket(3, time.Hour)

	for i := 0; i < 3; i++ {
		assert.True(t, bucket.take(), "frame %d should pass within the burst", i)
	}
	assert.False(t, bucket.take(), "frame beyond burst should be rejected")
}

func TestTokenBucketRefills(t *testing.T) {
	bucket := newTokenBucket(1, 10*time.Millisecond)

	require.True(t, bucket.take())
	assert.False(t, bucket.take())

	require.Eventually(t, bucket.take, time.Second, time.Millisecond,
		"bucket should refill after the interval")
}

func TestTokenBucketSanitizesBadParameters(t *testing.T) {
	bucket := newTokenBucket(0, -time.Second)

	assert.True(t, bucket.take(), "sanitized bucket should allow at least one frame")
}
