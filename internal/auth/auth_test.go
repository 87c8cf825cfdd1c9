package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/hangman/apps/go-server/internal/apperr"
)

func TestIssueVerify(t *testing.T) {
	iss := NewIssuer("test-secret", 0)

	tok, exp, err := iss.Issue("alice", "ABC-123")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(DefaultTTL), exp, time.Minute)

	claims, err := iss.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Claims{Player: "alice", GameID: "ABC-123"}, claims)
}

func TestIssueAdmin(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)

	tok, _, err := iss.IssueAdmin("alice", "ABC-123")
	require.NoError(t, err)
	claims, err := iss.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Claims{Player: "alice", GameID: "ABC-123", Admin: true}, claims)

	// same name and game, but no role
	tok, _, err = iss.Issue("alice", "ABC-123")
	require.NoError(t, err)
	claims, err = iss.Verify(tok)
	require.NoError(t, err)
	assert.False(t, claims.Admin)
}

func TestVerifyFailures(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)
	good, _, err := iss.Issue("alice", "ABC-123")
	require.NoError(t, err)

	expiredIss := NewIssuer("test-secret", time.Hour)
	expiredIss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := expiredIss.Issue("alice", "ABC-123")
	require.NoError(t, err)

	otherSecret, _, err := NewIssuer("other-secret", time.Hour).Issue("alice", "ABC-123")
	require.NoError(t, err)

	noGame, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":     "alice",
		"game_id": "ABC-123",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	type testCase struct {
		description string
		token       string
		want        error
	}

	testCases := []testCase{
		{description: "expired", token: expired, want: ErrTokenExpired},
		{description: "wrong secret", token: otherSecret, want: ErrTokenInvalid},
		{description: "garbage", token: "not.a.jwt", want: ErrTokenInvalid},
		{description: "empty", token: "", want: ErrTokenInvalid},
		{description: "truncated", token: good[:len(good)-4], want: ErrTokenInvalid},
		{description: "missing game id", token: noGame, want: ErrTokenInvalid},
		{description: "alg none", token: unsigned, want: ErrTokenInvalid},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			_, err := iss.Verify(tc.token)
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, apperr.Credential)
		})
	}
}

func TestPin(t *testing.T) {
	h, err := HashPin("1234")
	require.NoError(t, err)
	assert.NotEqual(t, "1234", h)
	assert.True(t, CheckPin(h, "1234"))
	assert.False(t, CheckPin(h, "4321"))
	assert.False(t, CheckPin(h, ""))

	empty, err := HashPin("")
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.False(t, CheckPin(empty, ""))
}
