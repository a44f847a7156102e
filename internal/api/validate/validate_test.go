package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	require.NoError(t, Email("amy@example.com"))
	require.Error(t, Email(""))
	require.Error(t, Email("not-an-email"))
	require.Error(t, Email("a b@example.com"))
	require.Error(t, Email(strings.Repeat("x", 315)+"@x.com"))
}

func TestPassword(t *testing.T) {
	require.NoError(t, Password("secret"))
	require.Error(t, Password("short"))
	require.Error(t, Password(strings.Repeat("p", 73)))
}

func TestSessionName(t *testing.T) {
	require.NoError(t, SessionName("Bali trip"))
	require.Error(t, SessionName("   "))
	require.Error(t, SessionName(strings.Repeat("n", 101)))
}

func TestMessageText(t *testing.T) {
	require.NoError(t, MessageText(""))
	require.NoError(t, MessageText("Yoga in Bali"))
	require.Error(t, MessageText(strings.Repeat("m", 2001)))
}

func TestSignUp(t *testing.T) {
	require.NoError(t, SignUp("amy@example.com", "secret1", nil))
	require.Error(t, SignUp("bad", "secret1", nil))
	require.Error(t, SignUp("amy@example.com", "no", nil))
	long := strings.Repeat("f", 101)
	require.Error(t, SignUp("amy@example.com", "secret1", &long))
}
