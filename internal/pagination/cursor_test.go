package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(s string) string { return s }

func TestEncodeDecode_RoundTrip(t *testing.T) {
	encoded := Encode("acme")
	assert.NotEmpty(t, encoded)

	key, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "acme", key)
}

func TestDecode_Empty(t *testing.T) {
	key, err := Decode("")
	assert.NoError(t, err)
	assert.Empty(t, key)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode("not-base64!!!")
	assert.ErrorIs(t, err, ErrInvalidCursor)

	// Valid base64 without the key prefix
	_, err = Decode("bm9waXBl") // "nopipe"
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ParseLimit(""))
	assert.Equal(t, DefaultLimit, ParseLimit("-3"))
	assert.Equal(t, 10, ParseLimit("10"))
	assert.Equal(t, MaxLimit, ParseLimit("100000"))
}

func TestWindow_WalksAllPages(t *testing.T) {
	items := []string{"acme", "globex", "hooli", "initech", "umbrella"}

	page, next, err := Window(items, "", 2, identity)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "globex"}, page)
	require.NotEmpty(t, next)

	page, next, err = Window(items, next, 2, identity)
	require.NoError(t, err)
	assert.Equal(t, []string{"hooli", "initech"}, page)

	page, next, err = Window(items, next, 2, identity)
	require.NoError(t, err)
	assert.Equal(t, []string{"umbrella"}, page)
	assert.Empty(t, next)
}

func TestWindow_CursorForRemovedKey(t *testing.T) {
	items := []string{"acme", "hooli"}
	page, _, err := Window(items, Encode("globex"), 10, identity)
	require.NoError(t, err)
	assert.Equal(t, []string{"hooli"}, page)
}

func TestWindow_InvalidCursor(t *testing.T) {
	_, _, err := Window([]string{"a"}, "%%%", 10, identity)
	assert.ErrorIs(t, err, ErrInvalidCursor)
}
