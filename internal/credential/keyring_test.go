package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStore_RoundTrip tests set, get and delete against an in-memory keyring
func TestStore_RoundTrip(t *testing.T) {
	store := NewStore(keyring.NewArrayKeyring(nil))
	key := IMAPKey("me@example.com")

	require.NoError(t, store.Set(key, "s3cret"))

	value, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", value)

	require.NoError(t, store.Delete(key))

	_, err = store.Get(key)
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestStore_Missing reports ErrNotFound for unknown keys
func TestStore_Missing(t *testing.T) {
	store := NewStore(keyring.NewArrayKeyring(nil))

	_, err := store.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIMAPKey(t *testing.T) {
	assert.Equal(t, "imap:me@example.com", IMAPKey("me@example.com"))
}
