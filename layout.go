package rewind

import (
	"bytes"
	"reflect"

	"github.com/cespare/xxhash/v2"

	"github.com/TheBitDrifter/rewind/arena"
)

// span is a run of bytes in a value that holds field data. Padding between fields falls outside
// every span, so its contents never affect comparisons or hashes.
type span struct {
	off, end uintptr
}

func layoutOf(typ reflect.Type) []span {
	var out []span
	appendLayout(&out, typ, 0)
	return out
}

func appendLayout(out *[]span, typ reflect.Type, base uintptr) {
	switch typ.Kind() {
	case reflect.Struct:
		for i := 0; i < typ.NumField(); i++ {
			f := typ.Field(i)
			appendLayout(out, f.Type, base+f.Offset)
		}
	case reflect.Array:
		elem := typ.Elem()
		for i := 0; i < typ.Len(); i++ {
			appendLayout(out, elem, base+uintptr(i)*elem.Size())
		}
	default:
		if typ.Size() == 0 {
			return
		}
		s := span{off: base, end: base + typ.Size()}
		if n := len(*out); n > 0 && (*out)[n-1].end == s.off {
			(*out)[n-1].end = s.end
			return
		}
		*out = append(*out, s)
	}
}

// sameValue reports whether a and b hold the same field bytes.
func sameValue[T any](layout []span, a, b *T) bool {
	x, y := arena.AsBytes(a), arena.AsBytes(b)
	for _, s := range layout {
		if !bytes.Equal(x[s.off:s.end], y[s.off:s.end]) {
			return false
		}
	}
	return true
}

func writeValue[T any](d *xxhash.Digest, layout []span, v *T) {
	b := arena.AsBytes(v)
	for _, s := range layout {
		_, _ = d.Write(b[s.off:s.end])
	}
}
