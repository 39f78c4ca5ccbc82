package security

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	encrypted, err := c.EncryptString("binance-secret-key")
	require.NoError(t, err)
	assert.NotEqual(t, "binance-secret-key", encrypted)

	decrypted, err := c.DecryptString(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "binance-secret-key", decrypted)
}

func TestCipherRandomIV(t *testing.T) {
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	first, err := c.EncryptString("same input")
	require.NoError(t, err)
	second, err := c.EncryptString("same input")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestNewCipherRejectsBadKey(t *testing.T) {
	_, err := NewCipher("not base64!!!")
	assert.Error(t, err)

	short := base64.StdEncoding.EncodeToString([]byte("too short"))
	_, err = NewCipher(short)
	assert.Error(t, err)
}

func TestDecryptStringRejectsGarbage(t *testing.T) {
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	_, err = c.DecryptString("%%%")
	assert.Error(t, err)

	tiny := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	_, err = c.DecryptString(tiny)
	assert.Error(t, err)
}
