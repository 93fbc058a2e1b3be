package vault

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-journal/internal/interfaces"
	"trading-journal/internal/types"
)

func TestVaults(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	bv, err := OpenBadger(OpenOptions{Path: t.TempDir(), EncryptionKey: key})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bv.Close() })

	vaults := map[string]interfaces.CredentialVault{
		"memory": NewMemory(),
		"badger": bv,
	}

	for name, v := range vaults {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			creds := types.Credentials{Login: "5001", Password: "investor", Server: "ICMarkets-Demo"}

			_, ok, err := v.Get(ctx, "a1")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, v.Put(ctx, "a1", creds))
			got, ok, err := v.Get(ctx, "a1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, creds, got)

			require.NoError(t, v.Delete(ctx, "a1"))
			_, ok, err = v.Get(ctx, "a1")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestBadgerPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	v, err := OpenBadger(OpenOptions{Path: dir})
	require.NoError(t, err)
	require.NoError(t, v.Put(ctx, "a1", types.Credentials{AccessToken: "tok"}))
	require.NoError(t, v.Close())

	v, err = OpenBadger(OpenOptions{Path: dir})
	require.NoError(t, err)
	defer v.Close()

	got, ok, err := v.Get(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", got.AccessToken)

	_, _, err = v.Get(ctx, " ")
	assert.Error(t, err)
}

func TestOpenBadgerRequiresPath(t *testing.T) {
	_, err := OpenBadger(OpenOptions{})
	assert.Error(t, err)
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("")
	require.NoError(t, err)
	assert.Nil(t, k)

	hexKey := strings.Repeat("ab", 32)
	k, err = ParseKey("0x" + hexKey)
	require.NoError(t, err)
	assert.Len(t, k, 32)

	k, err = ParseKey(base64.StdEncoding.EncodeToString(make([]byte, 32)))
	require.NoError(t, err)
	assert.Len(t, k, 32)

	_, err = ParseKey("abcd")
	assert.Error(t, err)

	_, err = ParseKey("not a key!")
	assert.Error(t, err)
}
