package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	defer rl.Close()

	const user int64 = 42

	for i := 0; i < 3; i++ {
		require.True(t, rl.Allow(user), "запрос %d должен пройти", i+1)
	}
	require.False(t, rl.Allow(user), "четвёртый запрос в окне не проходит")

	// Лимит отдельный на каждого пользователя
	require.True(t, rl.Allow(43))
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := NewRateLimiter(1, 50*time.Millisecond)
	defer rl.Close()

	const user int64 = 42

	require.True(t, rl.Allow(user))
	require.False(t, rl.Allow(user))

	// Окно уехало — запрос снова проходит
	time.Sleep(60 * time.Millisecond)
	require.True(t, rl.Allow(user))
}
