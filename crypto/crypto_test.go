package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	env, err := Seal([]byte(`{"notes":{}}`), "hunter2")
	require.NoError(t, err)
	assert.Len(t, env.Salt, saltSize)
	assert.NotContains(t, string(env.Ciphertext), "notes")

	got, err := Open(*env, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, `{"notes":{}}`, string(got))
}

func TestOpen_WrongPassphrase(t *testing.T) {
	env, err := Seal([]byte("secret"), "right")
	require.NoError(t, err)

	_, err = Open(*env, "wrong")
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestOpen_TruncatedNonce(t *testing.T) {
	env, err := Seal([]byte("secret"), "pw")
	require.NoError(t, err)
	env.Nonce = env.Nonce[:4]

	_, err = Open(*env, "pw")
	assert.ErrorIs(t, err, ErrDecrypt)
}
