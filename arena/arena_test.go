package arena

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vec3 struct {
	X, Y, Z float64
}

func TestAllocReusesFreedBlocks(t *testing.T) {
	a := New(0)
	p := Allocate(a, vec3{1, 2, 3})
	q := Allocate(a, vec3{4, 5, 6})
	require.NotEqual(t, Null, p)
	require.NotEqual(t, p, q)

	a.Free(p)
	r := a.Alloc(20)
	assert.Equal(t, p, r, "block of the same size class should be recycled")
	assert.Equal(t, vec3{}, *Ref[vec3](a, r), "recycled block should be zeroed")
	assert.Equal(t, vec3{4, 5, 6}, *Ref[vec3](a, q))
}

func TestHandlesSurviveGrowth(t *testing.T) {
	a := New(0)
	initialCap := a.Cap()
	p := Allocate(a, uint64(42))

	for i := 0; i < 1000; i++ {
		Allocate(a, vec3{X: float64(i)})
	}

	assert.Greater(t, a.Cap(), initialCap)
	assert.Equal(t, uint64(42), *Ref[uint64](a, p))
}

func TestFreeInvariants(t *testing.T) {
	a := New(0)
	p := a.Alloc(8)
	a.Free(p)

	assert.Panics(t, func() { a.Free(p) }, "double free")
	assert.Panics(t, func() { Ref[uint64](a, Null) }, "null dereference")
	assert.NotPanics(t, func() { a.Free(Null) })
}

func TestReallocPreservesContent(t *testing.T) {
	a := New(0)
	p := Allocate(a, vec3{7, 8, 9})
	assert.Equal(t, p, a.Realloc(p, 16), "fits in the current class")

	moved := a.Realloc(p, 256)
	require.NotEqual(t, p, moved)
	assert.Equal(t, vec3{7, 8, 9}, *Ref[vec3](a, moved))
	assert.GreaterOrEqual(t, a.BlockSize(moved), 256)
}

func TestCloneDoesNotAlias(t *testing.T) {
	a := New(0)
	p := Allocate(a, vec3{1, 1, 1})

	clone := a.Clone()
	Ref[vec3](clone, p).X = 99

	assert.Equal(t, 1.0, Ref[vec3](a, p).X)
	assert.Equal(t, 99.0, Ref[vec3](clone, p).X)
	assert.Equal(t, a.Alloc(8), clone.Alloc(8), "clones allocate identically")
}

func TestCopyFrom(t *testing.T) {
	tests := []struct {
		name       string
		dstBlocks  int
		srcBlocks  int
		expectLive int64
	}{
		{name: "Smaller destination", dstBlocks: 1, srcBlocks: 200, expectLive: 200 * 32},
		{name: "Larger destination", dstBlocks: 200, srcBlocks: 1, expectLive: 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := New(0)
			var last MemPtr
			for i := 0; i < tt.srcBlocks; i++ {
				last = Allocate(src, vec3{X: float64(i)})
			}
			dst := New(0)
			for i := 0; i < tt.dstBlocks; i++ {
				Allocate(dst, vec3{Y: 5})
			}

			dst.CopyFrom(src)

			assert.Equal(t, src.Len(), dst.Len())
			assert.Equal(t, tt.expectLive, dst.Live())
			assert.Equal(t, float64(tt.srcBlocks-1), Ref[vec3](dst, last).X)
			next := dst.Alloc(24)
			assert.Equal(t, vec3{}, *Ref[vec3](dst, next), "memory past the copied range is zero")
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	a := New(0)
	p := Allocate(a, vec3{3, 2, 1})
	q := Allocate(a, uint32(5))
	a.Free(q)

	data, err := a.MarshalBinary()
	require.NoError(t, err)

	restored := New(0)
	require.NoError(t, restored.UnmarshalBinary(data))
	assert.Equal(t, vec3{3, 2, 1}, *Ref[vec3](restored, p))
	assert.Equal(t, a.Len(), restored.Len())
	assert.Equal(t, a.Live(), restored.Live())
	assert.Equal(t, a.Alloc(4), restored.Alloc(4), "free lists survive the round trip")
}

func TestUnmarshalRejectsCorruptBuffers(t *testing.T) {
	a := New(0)
	Allocate(a, uint64(1))
	data, err := a.MarshalBinary()
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "Empty", data: nil},
		{name: "Truncated", data: data[:len(data)-8]},
		{name: "Wrong magic", data: append([]byte{0, 0, 0, 0}, data[4:]...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(0).UnmarshalBinary(tt.data)
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrCorrupt))
		})
	}
}

func TestPointerTypesRejected(t *testing.T) {
	type named struct {
		Name string
	}
	a := New(0)
	assert.Panics(t, func() { Allocate(a, named{Name: "x"}) })
	assert.Panics(t, func() { NewArray[*vec3](a, 1) })
	assert.NotPanics(t, func() { NewArray[[4]vec3](a, 1) })
}

func TestReset(t *testing.T) {
	a := New(0)
	for i := 0; i < 100; i++ {
		Allocate(a, vec3{})
	}
	capacity := a.Cap()
	a.Reset()

	assert.Equal(t, 8, a.Len())
	assert.Equal(t, int64(0), a.Live())
	assert.Equal(t, capacity, a.Cap())
}
