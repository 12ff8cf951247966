package alloc

import (
	"unsafe"

	"github.com/rotisserie/eris"
)

// DefaultSize is the buffer size used when New is given a non-positive size.
const DefaultSize = 4096

var (
	ErrInvalidSize = eris.New("alloc: size must be positive")
	ErrInvalidPtr  = eris.New("alloc: ptr out of range")
	ErrStalePtr    = eris.New("alloc: ptr already freed")
	ErrDisposed    = eris.New("alloc: allocator disposed")
)

const none int32 = -1

// Ptr is a handle to an allocated block. It is not an address: the buffer
// moves on growth, so every access goes through Resolve or Bytes.
// A Ptr is valid from Allocate until the matching Free on the same allocator.
type Ptr struct {
	ID   int32  // index into the block table
	Gen  uint32 // generation of the block record when handed out
	Size int    // requested size in bytes
}

// IsNil reports whether p was never handed out by an allocator.
func (p Ptr) IsNil() bool { return p.Gen == 0 }

// block is one record of the address-ordered block list.
type block struct {
	offset int
	size   int
	prev   int32
	next   int32
	gen    uint32
	free   bool
	dead   bool // record retired by coalescing, waiting in freeIDs
}

// Block is a read-only view of a block handed to Walk.
type Block struct {
	ID     int32
	Offset int
	Size   int
	Free   bool
}

// Stats summarizes the allocator state.
type Stats struct {
	Size        int // buffer size in bytes
	Used        int // bytes in allocated blocks
	Free        int // bytes in free blocks
	Blocks      int
	FreeBlocks  int
	LargestFree int
	Grows       int
}

// Allocator owns one contiguous buffer and hands out variable-size blocks
// from it with first-fit placement, eager coalescing and growth on
// exhaustion. It is not safe for concurrent mutation.
type Allocator struct {
	words   []uint64 // backing store, 8-byte aligned
	size    int
	blocks  []block
	freeIDs []int32
	first   int32
	last    int32
	grows   int
	onGrow  func(oldSize, newSize int)

	disposed bool
}

// New creates an allocator with a buffer of size bytes made of one free block.
func New(size int) *Allocator {
	if size <= 0 {
		size = DefaultSize
	}
	a := &Allocator{
		words:  make([]uint64, wordsFor(size)),
		size:   size,
		blocks: make([]block, 0, 64),
		first:  none,
		last:   none,
	}
	id := a.newRecord()
	a.blocks[id] = block{offset: 0, size: size, prev: none, next: none, gen: a.blocks[id].gen, free: true}
	a.first, a.last = id, id
	return a
}

// OnGrow installs a hook called after every buffer growth.
func (a *Allocator) OnGrow(fn func(oldSize, newSize int)) {
	a.onGrow = fn
}

// Size returns the current buffer size in bytes.
func (a *Allocator) Size() int { return a.size }

// Allocate returns a block of exactly size bytes. The buffer grows when no
// free block fits, so the only failure is a non-positive size.
func (a *Allocator) Allocate(size int) (Ptr, error) {
	if a.disposed {
		return Ptr{}, ErrDisposed
	}
	if size <= 0 {
		return Ptr{}, eris.Wrapf(ErrInvalidSize, "allocate %d bytes", size)
	}
	for {
		if id := a.findFit(size); id != none {
			return a.take(id, size), nil
		}
		a.grow(size)
	}
}

// MustAllocate is Allocate that panics on error.
func (a *Allocator) MustAllocate(size int) Ptr {
	p, err := a.Allocate(size)
	if err != nil {
		panic(err)
	}
	return p
}

// Free returns the block to the free list and merges it with free neighbours.
func (a *Allocator) Free(p Ptr) error {
	if err := a.check(p); err != nil {
		return err
	}
	id := p.ID
	b := &a.blocks[id]
	b.free = true
	b.gen = nextGen(b.gen)

	for {
		prev := a.blocks[id].prev
		if prev == none || !a.blocks[prev].free {
			break
		}
		a.blocks[prev].size += a.blocks[id].size
		a.unlink(id)
		id = prev
	}
	for {
		next := a.blocks[id].next
		if next == none || !a.blocks[next].free {
			break
		}
		a.blocks[id].size += a.blocks[next].size
		a.unlink(next)
	}
	return nil
}

// MustFree is Free that panics on error.
func (a *Allocator) MustFree(p Ptr) {
	if err := a.Free(p); err != nil {
		panic(err)
	}
}

// Resize moves the block behind *p to a new block of newSize bytes, copying
// min(old, new) bytes, and rewrites *p in place.
func (a *Allocator) Resize(p *Ptr, newSize int) error {
	if err := a.check(*p); err != nil {
		return err
	}
	np, err := a.Allocate(newSize)
	if err != nil {
		return err
	}
	oldOff := a.blocks[p.ID].offset
	newOff := a.blocks[np.ID].offset
	n := min(p.Size, newSize)
	buf := a.bytes()
	copy(buf[newOff:newOff+n], buf[oldOff:oldOff+n])
	if err := a.Free(*p); err != nil {
		return err
	}
	*p = np
	return nil
}

// MustResize is Resize that panics on error.
func (a *Allocator) MustResize(p *Ptr, newSize int) {
	if err := a.Resize(p, newSize); err != nil {
		panic(err)
	}
}

// Resolve returns the current address of the block. The address is only
// valid until the next Allocate or Resize on this allocator.
func (a *Allocator) Resolve(p Ptr) (unsafe.Pointer, error) {
	if err := a.check(p); err != nil {
		return nil, err
	}
	return a.At(p), nil
}

// MustResolve is Resolve that panics on error.
func (a *Allocator) MustResolve(p Ptr) unsafe.Pointer {
	ptr, err := a.Resolve(p)
	if err != nil {
		panic(err)
	}
	return ptr
}

// At resolves p without validation. Callers own the validity of p.
func (a *Allocator) At(p Ptr) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(unsafe.SliceData(a.words)), a.blocks[p.ID].offset)
}

// Bytes returns the block contents as a slice with len == cap == p.Size.
func (a *Allocator) Bytes(p Ptr) ([]byte, error) {
	if err := a.check(p); err != nil {
		return nil, err
	}
	off := a.blocks[p.ID].offset
	return a.bytes()[off : off+p.Size : off+p.Size], nil
}

// Stats walks the block list and reports usage.
func (a *Allocator) Stats() Stats {
	s := Stats{Size: a.size, Grows: a.grows}
	for id := a.first; id != none; id = a.blocks[id].next {
		b := a.blocks[id]
		s.Blocks++
		if b.free {
			s.Free += b.size
			s.FreeBlocks++
			s.LargestFree = max(s.LargestFree, b.size)
		} else {
			s.Used += b.size
		}
	}
	return s
}

// Walk visits blocks in address order until fn returns false.
func (a *Allocator) Walk(fn func(Block) bool) {
	for id := a.first; id != none; id = a.blocks[id].next {
		b := a.blocks[id]
		if !fn(Block{ID: id, Offset: b.offset, Size: b.size, Free: b.free}) {
			return
		}
	}
}

// Validate checks the block list: blocks partition the buffer in address
// order with no gaps, and no two free blocks are adjacent.
func (a *Allocator) Validate() error {
	if a.disposed {
		return ErrDisposed
	}
	offset := 0
	prev := none
	prevFree := false
	for id := a.first; id != none; id = a.blocks[id].next {
		b := a.blocks[id]
		switch {
		case b.dead:
			return eris.Errorf("alloc: retired block %d still linked", id)
		case b.prev != prev:
			return eris.Errorf("alloc: block %d prev=%d, want %d", id, b.prev, prev)
		case b.offset != offset:
			return eris.Errorf("alloc: block %d at offset %d, want %d", id, b.offset, offset)
		case b.size <= 0:
			return eris.Errorf("alloc: block %d has size %d", id, b.size)
		case b.free && prevFree:
			return eris.Errorf("alloc: free block %d follows a free block", id)
		}
		offset += b.size
		prev = id
		prevFree = b.free
	}
	if prev != a.last {
		return eris.Errorf("alloc: last=%d, list ends at %d", a.last, prev)
	}
	if offset != a.size {
		return eris.Errorf("alloc: blocks cover %d bytes of %d", offset, a.size)
	}
	return nil
}

// Dispose releases the buffer. Every outstanding Ptr becomes invalid.
func (a *Allocator) Dispose() {
	a.words = nil
	a.blocks = nil
	a.freeIDs = nil
	a.first, a.last = none, none
	a.size = 0
	a.disposed = true
}

func (a *Allocator) check(p Ptr) error {
	if a.disposed {
		return ErrDisposed
	}
	if p.ID < 0 || int(p.ID) >= len(a.blocks) {
		return eris.Wrapf(ErrInvalidPtr, "ptr id %d", p.ID)
	}
	b := &a.blocks[p.ID]
	if b.dead || b.free || b.gen != p.Gen {
		return eris.Wrapf(ErrStalePtr, "ptr id %d gen %d", p.ID, p.Gen)
	}
	return nil
}

// findFit scans the block list from the head for the first free block that
// can hold size bytes.
func (a *Allocator) findFit(size int) int32 {
	for id := a.first; id != none; id = a.blocks[id].next {
		b := &a.blocks[id]
		if b.free && b.size >= size {
			return id
		}
	}
	return none
}

// take marks block id allocated, splitting off a free remainder when the
// block is larger than size.
func (a *Allocator) take(id int32, size int) Ptr {
	if a.blocks[id].size > size {
		rem := a.newRecord()
		b := &a.blocks[id]
		r := &a.blocks[rem]
		r.offset = b.offset + size
		r.size = b.size - size
		r.free = true
		r.prev = id
		r.next = b.next
		if b.next != none {
			a.blocks[b.next].prev = rem
		} else {
			a.last = rem
		}
		b.next = rem
		b.size = size
	}
	b := &a.blocks[id]
	b.free = false
	return Ptr{ID: id, Gen: b.gen, Size: size}
}

// grow enlarges the buffer to max(2*size, size+requested) and extends the
// tail with the new space.
func (a *Allocator) grow(requested int) {
	oldSize := a.size
	newSize := max(oldSize*2, oldSize+requested)
	words := make([]uint64, wordsFor(newSize))
	copy(words, a.words)
	a.words = words
	a.size = newSize
	a.grows++

	delta := newSize - oldSize
	if a.last != none && a.blocks[a.last].free {
		a.blocks[a.last].size += delta
	} else {
		id := a.newRecord()
		b := &a.blocks[id]
		b.offset = oldSize
		b.size = delta
		b.free = true
		b.prev = a.last
		b.next = none
		if a.last != none {
			a.blocks[a.last].next = id
		} else {
			a.first = id
		}
		a.last = id
	}
	if a.onGrow != nil {
		a.onGrow(oldSize, newSize)
	}
}

// unlink removes block id from the list and retires its record.
func (a *Allocator) unlink(id int32) {
	b := &a.blocks[id]
	if b.prev != none {
		a.blocks[b.prev].next = b.next
	} else {
		a.first = b.next
	}
	if b.next != none {
		a.blocks[b.next].prev = b.prev
	} else {
		a.last = b.prev
	}
	b.dead = true
	b.free = false
	b.prev, b.next = none, none
	b.gen = nextGen(b.gen)
	a.freeIDs = append(a.freeIDs, id)
}

// newRecord returns a fresh or recycled block record id. The record keeps
// its generation so stale handles to a recycled id stay invalid.
func (a *Allocator) newRecord() int32 {
	if n := len(a.freeIDs); n > 0 {
		id := a.freeIDs[n-1]
		a.freeIDs = a.freeIDs[:n-1]
		gen := a.blocks[id].gen
		a.blocks[id] = block{prev: none, next: none, gen: gen}
		return id
	}
	a.blocks = append(a.blocks, block{prev: none, next: none, gen: 1})
	return int32(len(a.blocks) - 1)
}

func (a *Allocator) bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(a.words))), a.size)
}

func wordsFor(size int) int {
	return (size + 7) / 8
}

func nextGen(g uint32) uint32 {
	g++
	if g == 0 {
		g = 1
	}
	return g
}
