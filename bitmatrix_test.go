package eventrouter

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitMatrix_SetClearTest(t *testing.T) {
	m := NewBitMatrix(3, 40)

	assert.False(t, m.Test(0, 0))
	m.Set(0, 0)
	assert.True(t, m.Test(0, 0))
	m.Clear(0, 0)
	assert.False(t, m.Test(0, 0))

	// A bit beyond the first word still works (exercises word rollover).
	m.Set(1, 35)
	assert.True(t, m.Test(1, 35))
	assert.False(t, m.Test(1, 34))
}

func TestBitMatrix_RowsDoNotShareStorage(t *testing.T) {
	m := NewBitMatrix(2, 8)

	m.Set(0, 7)
	m.Set(1, 0)

	assert.True(t, m.Test(0, 7))
	assert.True(t, m.Test(1, 0))

	m.Clear(1, 0)
	assert.True(t, m.Test(0, 7), "clearing row 1 must not clobber row 0")
}

func TestBitMatrix_AtomicVariantsRoundTrip(t *testing.T) {
	m := NewBitMatrix(1, 64)

	assert.False(t, m.TestAtomic(0, 50))
	m.SetAtomic(0, 50)
	assert.True(t, m.TestAtomic(0, 50))
	m.ClearAtomic(0, 50)
	assert.False(t, m.TestAtomic(0, 50))
}

func TestBitMatrix_ConcurrentSetsSameRow(t *testing.T) {
	m := NewBitMatrix(1, 32)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(bit int) {
			defer wg.Done()
			m.SetAtomic(0, bit)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 32; i++ {
		assert.True(t, m.TestAtomic(0, i), "bit %d should have survived concurrent sets", i)
	}
}

func TestBitMatrix_InvalidColumnPanics(t *testing.T) {
	m := NewBitMatrix(1, 4)
	require.Panics(t, func() { m.Set(0, 4) })
	require.Panics(t, func() { m.Set(0, -1) })
}
