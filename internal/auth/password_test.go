package auth

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	stored, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, VerifyPassword("correct horse battery staple", stored))
	assert.False(t, VerifyPassword("wrong horse battery staple", stored))
}

func TestHashPasswordSaltIsFresh(t *testing.T) {
	first, err := HashPassword("hunter22")
	require.NoError(t, err)
	second, err := HashPassword("hunter22")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, VerifyPassword("hunter22", first))
	assert.True(t, VerifyPassword("hunter22", second))
}

func TestHashPasswordFormat(t *testing.T) {
	stored, err := HashPassword("secretpass")
	require.NoError(t, err)

	saltPart, hashPart, ok := strings.Cut(stored, ":")
	require.True(t, ok)

	salt, err := base64.StdEncoding.DecodeString(saltPart)
	require.NoError(t, err)
	assert.Len(t, salt, 16)

	digest, err := base64.StdEncoding.DecodeString(hashPart)
	require.NoError(t, err)
	assert.Len(t, digest, 32)
}

func TestVerifyPasswordMalformedStored(t *testing.T) {
	cases := []struct {
		name   string
		stored string
	}{
		{"empty", ""},
		{"no delimiter", "c2FsdA=="},
		{"bad salt base64", "!!!:c2FsdA=="},
		{"bad hash base64", "c2FsdA==:!!!"},
		{"plain text", "not a credential"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, VerifyPassword("anything", tc.stored))
		})
	}
}
