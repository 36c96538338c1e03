package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDevProviderIssueThenValidate(t *testing.T) {
	p := NewDevProvider()
	token, playerID, err := p.Issue("Alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, playerID)

	u, err := p.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, playerID, u.PlayerID)
	require.Equal(t, "Alice", u.Nickname)
}

func TestDevProviderRejectsUnknownToken(t *testing.T) {
	p := NewDevProvider()
	_, err := p.ValidateToken(context.Background(), "not-a-real-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestDevProviderIssuesDistinctTokens(t *testing.T) {
	p := NewDevProvider()
	t1, id1, err := p.Issue("Alice")
	require.NoError(t, err)
	t2, id2, err := p.Issue("Bob")
	require.NoError(t, err)
	require.NotEqual(t, t1, t2)
	require.NotEqual(t, id1, id2)
}
