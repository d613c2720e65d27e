package blob

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAndData(t *testing.T) {
	b := New([]byte("hello"), MemoryModeDuplicate, nil)
	defer b.Destroy()
	require.Equal(t, 5, b.Len())
	require.Equal(t, []byte("hello"), b.Data())
}

func TestNullBlobIsHarmless(t *testing.T) {
	var b *Blob
	require.Equal(t, 0, b.Len())
	require.Nil(t, b.Data())
	b.Destroy() // must not panic
	b.MakeImmutable()
	require.False(t, b.IsImmutable())

	require.Equal(t, 0, Null().Len())
}

func TestSubBlobBounds(t *testing.T) {
	parent := New([]byte("0123456789"), MemoryModeDuplicate, nil)
	defer parent.Destroy()

	sub := parent.NewSubBlob(2, 4)
	defer sub.Destroy()
	require.Equal(t, []byte("2345"), sub.Data())

	// Clamped when the requested range overruns the parent.
	clamped := parent.NewSubBlob(8, 100)
	defer clamped.Destroy()
	require.Equal(t, []byte("89"), clamped.Data())

	// Out of range entirely.
	oob := parent.NewSubBlob(100, 4)
	defer oob.Destroy()
	require.Equal(t, 0, oob.Len())
}

func TestDestroyCallsHookOnce(t *testing.T) {
	calls := 0
	b := New([]byte("x"), MemoryModeDuplicate, func() { calls++ })
	b.Reference()
	b.Destroy()
	require.Equal(t, 0, calls)
	b.Destroy()
	require.Equal(t, 1, calls)
}

func TestGetDataWritableDuplicatesReadOnly(t *testing.T) {
	orig := []byte("abc")
	b := New(orig, MemoryModeReadOnly, nil)
	defer b.Destroy()

	w := b.GetDataWritable()
	w[0] = 'z'
	require.Equal(t, byte('a'), orig[0], "original backing array must not be mutated")
	require.Equal(t, byte('z'), b.Data()[0])
}

func TestMakeImmutableIsOneWayLatch(t *testing.T) {
	b := New([]byte("abc"), MemoryModeDuplicate, nil)
	defer b.Destroy()
	require.False(t, b.IsImmutable())
	b.MakeImmutable()
	require.True(t, b.IsImmutable())
}
