// Package sparse implements sparse sets whose dense, key and sparse arrays
// live in an alloc.Allocator buffer.
//
// Every array is allocated in multiples of 8 bytes so that, as long as all
// users of an allocator do the same, every array starts 8-byte aligned.
// Addresses are recomputed from the allocator on each access: any operation
// that may allocate (Set, Add) invalidates pointers obtained earlier.
package sparse

import (
	"reflect"
	"unsafe"

	"github.com/DesertImage/ecs-burst-sub000/internal/core/alloc"
	"github.com/rotisserie/eris"
)

const (
	defaultDenseCap  = 16
	defaultSparseCap = 64
)

var (
	ErrKeyNotFound = eris.New("sparse: key not found")
	ErrPointerType = eris.New("sparse: element type contains pointers")
)

// zeroSlot backs Get for zero-size elements.
var zeroSlot [8]byte

// Erased is a sparse set keyed by uint32 whose element size is supplied at
// construction. An element size of 0 stores keys only.
//
// sparse[key] is 0 when key is absent, else denseIndex+1, and
// sparse[key] != 0 implies keys[sparse[key]-1] == key.
type Erased struct {
	a         *alloc.Allocator
	elemSize  int
	stride    int
	dense     alloc.Ptr
	keys      alloc.Ptr
	sparse    alloc.Ptr
	count     int
	denseCap  int
	sparseCap int
}

// NewErased allocates the three arrays of an empty set.
func NewErased(a *alloc.Allocator, elemSize, denseCap, sparseCap int) (*Erased, error) {
	if elemSize < 0 {
		return nil, eris.Errorf("sparse: negative element size %d", elemSize)
	}
	if denseCap <= 0 {
		denseCap = defaultDenseCap
	}
	if sparseCap <= 0 {
		sparseCap = defaultSparseCap
	}
	s := &Erased{
		a:         a,
		elemSize:  elemSize,
		stride:    alignUp(elemSize),
		denseCap:  denseCap,
		sparseCap: sparseCap,
	}
	var err error
	if s.stride > 0 {
		if s.dense, err = a.Allocate(s.stride * denseCap); err != nil {
			return nil, eris.Wrap(err, "sparse: allocate dense")
		}
	}
	if s.keys, err = a.Allocate(alignUp(4 * denseCap)); err != nil {
		return nil, eris.Wrap(err, "sparse: allocate keys")
	}
	if s.sparse, err = a.Allocate(alignUp(4 * sparseCap)); err != nil {
		return nil, eris.Wrap(err, "sparse: allocate sparse")
	}
	clear(s.sparseSlice())
	return s, nil
}

// ElemSize returns the element size given at construction.
func (s *Erased) ElemSize() int { return s.elemSize }

// Len returns the number of keys in the set.
func (s *Erased) Len() int { return s.count }

// Cap returns the dense capacity.
func (s *Erased) Cap() int { return s.denseCap }

// SparseCap returns the sparse capacity (largest storable key + 1).
func (s *Erased) SparseCap() int { return s.sparseCap }

// Contains reports whether key is in the set.
func (s *Erased) Contains(key uint32) bool {
	if int(key) >= s.sparseCap {
		return false
	}
	return s.sparseSlice()[key] != 0
}

// Index returns the dense index of key.
func (s *Erased) Index(key uint32) (int, bool) {
	if int(key) >= s.sparseCap {
		return 0, false
	}
	i := s.sparseSlice()[key]
	if i == 0 {
		return 0, false
	}
	return int(i - 1), true
}

// Set stores elemSize bytes from src under key, overwriting an existing
// value. A nil src stores a zero value. src may point into the allocator
// this set lives in, including at one of its own values.
func (s *Erased) Set(key uint32, src unsafe.Pointer) {
	if idx, ok := s.Index(key); ok {
		s.write(idx, src)
		return
	}
	if int(key) >= s.sparseCap || s.count >= s.denseCap {
		// growth moves and frees blocks, so src must be read first
		src = s.snapshot(src)
	}
	if int(key) >= s.sparseCap {
		s.growSparse(int(key) + 1)
	}
	if s.count >= s.denseCap {
		s.growDense()
	}
	idx := s.count
	s.keySlice()[idx] = key
	s.write(idx, src)
	s.sparseSlice()[key] = uint32(idx + 1)
	s.count++
}

// Add is Set: adding a present key overwrites its value.
func (s *Erased) Add(key uint32, src unsafe.Pointer) { s.Set(key, src) }

// Get returns the address of key's value.
func (s *Erased) Get(key uint32) (unsafe.Pointer, error) {
	idx, ok := s.Index(key)
	if !ok {
		return nil, eris.Wrapf(ErrKeyNotFound, "key %d", key)
	}
	return s.ValueAt(idx), nil
}

// Remove deletes key by moving the last element into its slot.
// Dense order is not preserved.
func (s *Erased) Remove(key uint32) error {
	idx, ok := s.Index(key)
	if !ok {
		return eris.Wrapf(ErrKeyNotFound, "remove key %d", key)
	}
	last := s.count - 1
	keys := s.keySlice()
	sp := s.sparseSlice()
	if idx != last {
		moved := keys[last]
		keys[idx] = moved
		if s.stride > 0 {
			copy(s.slot(idx), s.slot(last))
		}
		sp[moved] = uint32(idx + 1)
	}
	sp[key] = 0
	s.count--
	return nil
}

// Clear empties the set without releasing memory.
func (s *Erased) Clear() {
	s.count = 0
	clear(s.sparseSlice())
}

// KeyAt returns the key stored at dense index i.
func (s *Erased) KeyAt(i int) uint32 {
	return s.keySlice()[i]
}

// ValueAt returns the address of the value at dense index i.
func (s *Erased) ValueAt(i int) unsafe.Pointer {
	if s.stride == 0 {
		return unsafe.Pointer(&zeroSlot)
	}
	return unsafe.Add(s.a.At(s.dense), i*s.stride)
}

// Keys returns a copy of the keys in dense order.
func (s *Erased) Keys() []uint32 {
	out := make([]uint32, s.count)
	copy(out, s.keySlice()[:s.count])
	return out
}

// Dispose releases the arrays back to the allocator.
func (s *Erased) Dispose() error {
	if !s.dense.IsNil() {
		if err := s.a.Free(s.dense); err != nil {
			return err
		}
	}
	if err := s.a.Free(s.keys); err != nil {
		return err
	}
	if err := s.a.Free(s.sparse); err != nil {
		return err
	}
	s.dense, s.keys, s.sparse = alloc.Ptr{}, alloc.Ptr{}, alloc.Ptr{}
	s.count, s.denseCap, s.sparseCap = 0, 0, 0
	return nil
}

// snapshot copies the value at src to the Go heap.
func (s *Erased) snapshot(src unsafe.Pointer) unsafe.Pointer {
	if src == nil || s.elemSize == 0 {
		return src
	}
	buf := make([]uint64, (s.elemSize+7)/8)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&buf[0])), s.elemSize), unsafe.Slice((*byte)(src), s.elemSize))
	return unsafe.Pointer(&buf[0])
}

func (s *Erased) write(idx int, src unsafe.Pointer) {
	if s.stride == 0 {
		return
	}
	dst := s.slot(idx)
	if src == nil {
		clear(dst)
		return
	}
	copy(dst, unsafe.Slice((*byte)(src), s.elemSize))
}

func (s *Erased) slot(idx int) []byte {
	return unsafe.Slice((*byte)(s.ValueAt(idx)), s.elemSize)
}

func (s *Erased) keySlice() []uint32 {
	return unsafe.Slice((*uint32)(s.a.At(s.keys)), s.denseCap)
}

func (s *Erased) sparseSlice() []uint32 {
	return unsafe.Slice((*uint32)(s.a.At(s.sparse)), s.sparseCap)
}

func (s *Erased) growDense() {
	newCap := s.denseCap * 2
	if s.stride > 0 {
		s.a.MustResize(&s.dense, s.stride*newCap)
	}
	s.a.MustResize(&s.keys, alignUp(4*newCap))
	s.denseCap = newCap
}

// growSparse grows the sparse array to max(2*cap, need) and zeroes the new
// tail, which may hold bytes from a previously freed block.
func (s *Erased) growSparse(need int) {
	oldCap := s.sparseCap
	newCap := max(oldCap*2, need)
	s.a.MustResize(&s.sparse, alignUp(4*newCap))
	s.sparseCap = newCap
	clear(s.sparseSlice()[oldCap:])
}

func alignUp(n int) int {
	return (n + 7) &^ 7
}

// PointerFree reports whether values of t contain no Go pointers and can
// therefore live in an allocator buffer the garbage collector does not scan.
func PointerFree(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return t.Len() == 0 || PointerFree(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !PointerFree(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
