package admin

import (
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
)

// encodeTestHash собирает хеш в том же формате, что scripts/generate_hash.go.
func encodeTestHash(password string, salt []byte) string {
	var (
		memory      uint32 = 1024 // маленькие параметры, чтобы тест был быстрым
		iterations  uint32 = 1
		parallelism uint8  = 1
		keyLength   uint32 = 32
	)
	hash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, keyLength)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory, iterations, parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))
}

func TestVerifyArgon2id(t *testing.T) {
	salt := []byte("0123456789abcdef")
	encoded := encodeTestHash("секретный-пароль", salt)

	require.True(t, verifyArgon2id("секретный-пароль", encoded))
	require.False(t, verifyArgon2id("неверный", encoded))
	require.False(t, verifyArgon2id("", encoded))
}

func TestVerifyArgon2idMalformedHash(t *testing.T) {
	// Испорченный хеш — отказ, а не паника
	require.False(t, verifyArgon2id("пароль", ""))
	require.False(t, verifyArgon2id("пароль", "$argon2id$v=19$мусор"))
	require.False(t, verifyArgon2id("пароль", "$argon2id$v=19$m=1024,t=1,p=1$не-base64!!$тоже"))
}

func TestGenerateSecureToken(t *testing.T) {
	a := generateSecureToken()
	b := generateSecureToken()
	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
}
