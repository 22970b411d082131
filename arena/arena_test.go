package arena

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocFitsInFirstBlock(t *testing.T) {
	a, err := New(128)
	require.NoError(t, err)

	b1, err := a.Alloc(64)
	require.NoError(t, err)
	b2, err := a.Alloc(64)
	require.NoError(t, err)

	assert.Len(t, b1, 64)
	assert.Len(t, b2, 64)
	assert.Equal(t, 64, cap(b1), "capacity must be clipped to the allocation")
	assert.Equal(t, 1, a.Blocks())
	assert.Equal(t, 128, a.Used())
}

func TestAllocChainsNewBlock(t *testing.T) {
	a, err := New(16, WithGrowth(32))
	require.NoError(t, err)

	_, err = a.Alloc(10)
	require.NoError(t, err)

	// Does not fit the remaining 6 bytes.
	b, err := a.Alloc(20)
	require.NoError(t, err)
	assert.Len(t, b, 20)
	assert.Equal(t, 2, a.Blocks())
	assert.Equal(t, 48, a.Capacity())

	// Larger than growth: block sized to the request.
	big, err := a.Alloc(100)
	require.NoError(t, err)
	assert.Len(t, big, 100)
	assert.Equal(t, 3, a.Blocks())
	assert.Equal(t, 148, a.Capacity())
}

func TestResetReusesBlocksAndZeroes(t *testing.T) {
	a, err := New(16, WithGrowth(16))
	require.NoError(t, err)

	b, err := a.Alloc(16)
	require.NoError(t, err)
	for i := range b {
		b[i] = 0xff
	}
	_, err = a.Alloc(16)
	require.NoError(t, err)
	require.Equal(t, 2, a.Blocks())

	a.Reset()
	assert.Equal(t, 0, a.Used())

	again, err := a.Alloc(16)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 16), again)

	_, err = a.Alloc(16)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Blocks(), "reset must reuse the existing chain")
	assert.Equal(t, 32, a.Capacity())
}

func TestLimitExhaustion(t *testing.T) {
	a, err := New(32, WithGrowth(32), WithLimit(64))
	require.NoError(t, err)

	_, err = a.Alloc(32)
	require.NoError(t, err)
	_, err = a.Alloc(32)
	require.NoError(t, err)

	_, err = a.Alloc(1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExhausted))

	_, err = New(128, WithLimit(64))
	assert.True(t, errors.Is(err, ErrExhausted))
}

func TestAllocInvalid(t *testing.T) {
	a, err := New(8)
	require.NoError(t, err)

	_, err = a.Alloc(-1)
	assert.Error(t, err)

	zero, err := a.Alloc(0)
	require.NoError(t, err)
	assert.Empty(t, zero)

	a.Destroy()
	_, err = a.Alloc(1)
	assert.Error(t, err)
	assert.Equal(t, 0, a.Capacity())
}

func BenchmarkAllocReset(b *testing.B) {
	a, err := New(1 << 20)
	require.NoError(b, err)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for j := 0; j < 16; j++ {
			if _, err := a.Alloc(36864); err != nil {
				b.Fatal(err)
			}
		}
		a.Reset()
	}
}
