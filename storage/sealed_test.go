package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	testSealSecret = []byte("0123456789abcdef0123456789abcdef")
	testSealSalt   = []byte("fedcba9876543210")
)

func newSealedTest(t *testing.T) (*Sealed, *Memory) {
	t.Helper()
	inner := NewMemory()
	st, err := NewSealed(inner, testSealSecret, testSealSalt)
	require.NoError(t, err)
	return st, inner
}

func TestSealedContract(t *testing.T) {
	st, _ := newSealedTest(t)
	testStorageContract(t, st)
}

func TestSealedStoresCiphertext(t *testing.T) {
	st, inner := newSealedTest(t)
	ctx := context.Background()

	require.NoError(t, st.Write(ctx, testID('a'), []byte("plain session blob")))
	raw, err := inner.Read(ctx, testID('a'))
	require.NoError(t, err)
	require.NotContains(t, string(raw), "plain session blob")

	plain, err := st.Read(ctx, testID('a'))
	require.NoError(t, err)
	require.Equal(t, []byte("plain session blob"), plain)
}

func TestSealedDetectsTamperingAndSwaps(t *testing.T) {
	st, inner := newSealedTest(t)
	ctx := context.Background()

	require.NoError(t, st.Write(ctx, testID('a'), []byte("blob")))
	raw, err := inner.Read(ctx, testID('a'))
	require.NoError(t, err)

	// Same ciphertext under another id must fail: the id is associated data.
	require.NoError(t, inner.Write(ctx, testID('b'), raw))
	_, err = st.Read(ctx, testID('b'))
	require.ErrorIs(t, err, ErrCorrupt)

	raw[len(raw)-1] ^= 0xff
	require.NoError(t, inner.Write(ctx, testID('a'), raw))
	_, err = st.Read(ctx, testID('a'))
	require.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, inner.Write(ctx, testID('a'), []byte{1, 2}))
	_, err = st.Read(ctx, testID('a'))
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestNewSealedValidatesKeyMaterial(t *testing.T) {
	_, err := NewSealed(NewMemory(), []byte("short"), testSealSalt)
	require.Error(t, err)
	_, err = NewSealed(NewMemory(), testSealSecret, []byte("short"))
	require.Error(t, err)
	_, err = NewSealed(nil, testSealSecret, testSealSalt)
	require.Error(t, err)
}
