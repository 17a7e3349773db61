package idgen

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestWithPrefix_RoundTripsThroughValid(t *testing.T) {
	id := WithPrefix("vis_")
	assert.True(t, Valid("vis_", id))
	assert.False(t, Valid("req_", id))
	assert.False(t, Valid("vis_", "vis_nothex"))
	assert.False(t, Valid("vis_", "vis_"+uuid.NewString()))
}

func TestHex_Length(t *testing.T) {
	assert.Len(t, Hex(8), 16)
}
