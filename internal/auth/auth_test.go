package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() (*Manager, *time.Time) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	m := NewManager("test-secret-test-secret-test-secret", time.Hour, false)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestIssueAndParse(t *testing.T) {
	m, _ := newTestManager()

	token, err := m.Issue("  Ada@Example.com ", "vis_1")
	require.NoError(t, err)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Email())
	assert.Equal(t, "vis_1", claims.Visitor)
}

func TestIssue_RejectsBadEmail(t *testing.T) {
	m, _ := newTestManager()
	for _, email := range []string{"", "ada", "@example.com", "ada@", "ada@example", "a@b@c.com", "ada @example.com", "ada@.com"} {
		_, err := m.Issue(email, "")
		assert.ErrorIs(t, err, ErrInvalidEmail, email)
	}
}

func TestParse_Expired(t *testing.T) {
	m, now := newTestManager()
	token, err := m.Issue("ada@example.com", "")
	require.NoError(t, err)

	*now = now.Add(2 * time.Hour)
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestParse_WrongKey(t *testing.T) {
	m, _ := newTestManager()
	other := NewManager("another-secret-another-secret-xx", time.Hour, false)
	other.now = m.now

	token, err := other.Issue("ada@example.com", "")
	require.NoError(t, err)
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestParse_RejectsNoneAlgorithm(t *testing.T) {
	m, _ := newTestManager()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "ada@example.com",
		ExpiresAt: jwt.NewNumericDate(m.now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestParse_Empty(t *testing.T) {
	m, _ := newTestManager()
	_, err := m.Parse("")
	assert.ErrorIs(t, err, ErrNoSession)
}
