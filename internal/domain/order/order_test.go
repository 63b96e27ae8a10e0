package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusNew, StatusProcessing, true},
		{StatusNew, StatusCancelled, true},
		{StatusNew, StatusDone, false},
		{StatusProcessing, StatusDone, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusProcessing, StatusNew, false},
		{StatusDone, StatusCancelled, false},
		{StatusDone, StatusProcessing, false},
		{StatusCancelled, StatusNew, false},
		{StatusCancelled, StatusDone, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestHashIdempotencyKey(t *testing.T) {
	a := HashIdempotencyKey("owner", "key")

	assert.Len(t, a, 64)
	assert.Equal(t, a, HashIdempotencyKey("owner", "key"), "deterministic")
	assert.NotEqual(t, a, HashIdempotencyKey("other", "key"), "owner scopes the hash")
	assert.NotEqual(t, a, HashIdempotencyKey("owner", "key2"))

	// Owner and key are delimited, not concatenated.
	assert.NotEqual(t, HashIdempotencyKey("ab", "c"), HashIdempotencyKey("a", "bc"))
}
