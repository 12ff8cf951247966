package sparse

import (
	"errors"
	"math/rand"
	"testing"
	"unsafe"

	"github.com/DesertImage/ecs-burst-sub000/internal/core/alloc"
)

type vec struct{ X, Y float32 }

type withPtr struct {
	Name string
}

type marker struct{}

func TestAddContainsRead(t *testing.T) {
	s := MustNew[vec](alloc.New(256), 4, 8)
	s.Add(3, vec{1, 2})
	if !s.Contains(3) {
		t.Fatal("expected key 3")
	}
	if got := s.MustRead(3); got != (vec{1, 2}) {
		t.Fatalf("read %+v", got)
	}
	if s.Contains(4) {
		t.Fatal("key 4 should be absent")
	}
}

func TestSetOverwrites(t *testing.T) {
	s := MustNew[vec](alloc.New(256), 4, 8)
	s.Set(1, vec{1, 1})
	s.Set(1, vec{5, 6})
	if s.Len() != 1 {
		t.Fatalf("overwrite should not add, len=%d", s.Len())
	}
	if got := s.MustRead(1); got != (vec{5, 6}) {
		t.Fatalf("read %+v", got)
	}
}

func TestGetReturnsWritablePointer(t *testing.T) {
	s := MustNew[vec](alloc.New(256), 4, 8)
	s.Add(2, vec{})
	s.MustGet(2).X = 7
	if s.MustRead(2).X != 7 {
		t.Fatal("write through Get pointer lost")
	}
}

func TestRemoveSwapsLast(t *testing.T) {
	s := MustNew[vec](alloc.New(256), 4, 8)
	s.Add(1, vec{1, 0})
	s.Add(2, vec{2, 0})
	s.Add(3, vec{3, 0})

	if err := s.Remove(1); err != nil {
		t.Fatal(err)
	}
	if s.Contains(1) {
		t.Fatal("key 1 should be gone")
	}
	keys := s.Keys()
	if len(keys) != 2 || keys[0] != 3 || keys[1] != 2 {
		t.Fatalf("expected last key swapped into slot 0, got %v", keys)
	}
	if s.MustRead(3).X != 3 || s.MustRead(2).X != 2 {
		t.Fatal("values moved with their keys incorrectly")
	}
}

func TestRemoveAbsent(t *testing.T) {
	s := MustNew[vec](alloc.New(256), 4, 8)
	if err := s.Remove(9); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if _, err := s.Get(1000); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound for key beyond sparse capacity, got %v", err)
	}
}

func TestRemoveOnlyThenAddReusesSlot(t *testing.T) {
	s := MustNew[vec](alloc.New(256), 1, 8)
	s.Add(5, vec{5, 5})
	if err := s.Remove(5); err != nil {
		t.Fatal(err)
	}
	s.Add(6, vec{6, 6})
	if s.Cap() != 1 {
		t.Fatalf("dense array grew to %d", s.Cap())
	}
	if s.Len() != 1 || !s.Contains(6) || s.Contains(5) {
		t.Fatal("unexpected membership after reuse")
	}
}

func TestGrowth(t *testing.T) {
	a := alloc.New(64)
	s := MustNew[vec](a, 2, 4)
	for k := uint32(0); k < 100; k += 3 {
		s.Add(k, vec{float32(k), 0})
	}
	if s.Erased().SparseCap() < 100 {
		t.Fatalf("sparse capacity %d", s.Erased().SparseCap())
	}
	for k := uint32(0); k < 100; k++ {
		want := k%3 == 0
		if s.Contains(k) != want {
			t.Fatalf("key %d contains=%v", k, !want)
		}
		if want && s.MustRead(k).X != float32(k) {
			t.Fatalf("key %d value %v", k, s.MustRead(k))
		}
	}
	if err := a.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestSparseGrowthZeroesReusedMemory(t *testing.T) {
	a := alloc.New(512)
	junk := a.MustAllocate(256)
	b, _ := a.Bytes(junk)
	for i := range b {
		b[i] = 0xFF
	}
	a.MustFree(junk)

	s := MustNew[uint32](a, 2, 2)
	s.Add(40, 1)
	for k := uint32(0); k < 40; k++ {
		if s.Contains(k) {
			t.Fatalf("key %d appears present from stale memory", k)
		}
	}
}

func TestClear(t *testing.T) {
	s := MustNew[vec](alloc.New(256), 4, 8)
	s.Add(1, vec{})
	s.Add(2, vec{})
	capBefore := s.Cap()
	s.Clear()
	if s.Len() != 0 || s.Contains(1) || s.Contains(2) {
		t.Fatal("clear left entries behind")
	}
	if s.Cap() != capBefore {
		t.Fatal("clear should keep capacity")
	}
}

func TestZeroSizeValues(t *testing.T) {
	s := MustNew[marker](alloc.New(128), 2, 8)
	s.Add(1, marker{})
	s.Add(7, marker{})
	if !s.Contains(7) || s.Len() != 2 {
		t.Fatal("keys-only set lost a key")
	}
	if _, err := s.Get(7); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(1); err != nil {
		t.Fatal(err)
	}
	if s.Contains(1) {
		t.Fatal("key 1 should be gone")
	}
}

func TestPointerTypesRejected(t *testing.T) {
	if _, err := New[withPtr](alloc.New(64), 1, 1); !errors.Is(err, ErrPointerType) {
		t.Fatalf("expected ErrPointerType, got %v", err)
	}
	if _, err := New[[]int](alloc.New(64), 1, 1); !errors.Is(err, ErrPointerType) {
		t.Fatalf("expected ErrPointerType for slices, got %v", err)
	}
}

func TestEachAllowsRemovingVisited(t *testing.T) {
	s := MustNew[int32](alloc.New(256), 4, 16)
	for k := uint32(1); k <= 10; k++ {
		s.Add(k, int32(k))
	}
	seen := map[uint32]bool{}
	s.Each(func(key uint32, v *int32) bool {
		if seen[key] {
			t.Fatalf("key %d visited twice", key)
		}
		seen[key] = true
		if *v%2 == 0 {
			if err := s.Remove(key); err != nil {
				t.Fatal(err)
			}
		}
		return true
	})
	if len(seen) != 10 {
		t.Fatalf("visited %d keys", len(seen))
	}
	if s.Len() != 5 {
		t.Fatalf("expected 5 odd keys left, got %d", s.Len())
	}
}

func TestDispose(t *testing.T) {
	a := alloc.New(256)
	before := a.Stats().Used
	s := MustNew[vec](a, 4, 8)
	s.Add(1, vec{})
	if err := s.Dispose(); err != nil {
		t.Fatal(err)
	}
	if a.Stats().Used != before {
		t.Fatalf("dispose leaked %d bytes", a.Stats().Used-before)
	}
}

func TestRandomOpsMatchMap(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := alloc.New(128)
	s := MustNew[int64](a, 1, 1)
	ref := map[uint32]int64{}
	for step := 0; step < 20000; step++ {
		k := uint32(rng.Intn(500))
		switch rng.Intn(3) {
		case 0, 1:
			v := rng.Int63()
			s.Set(k, v)
			ref[k] = v
		case 2:
			_, ok := ref[k]
			err := s.Remove(k)
			if ok != (err == nil) {
				t.Fatalf("step %d: remove %d err=%v, present=%v", step, k, err, ok)
			}
			delete(ref, k)
		}
	}
	if s.Len() != len(ref) {
		t.Fatalf("len %d, want %d", s.Len(), len(ref))
	}
	for k, v := range ref {
		if got := s.MustRead(k); got != v {
			t.Fatalf("key %d = %d, want %d", k, got, v)
		}
	}
	if err := a.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestSetFromOwnValueAcrossGrowth(t *testing.T) {
	s := MustNew[vec](alloc.New(64), 2, 4)
	s.Add(1, vec{11, 22})
	s.Add(2, vec{33, 44})
	// dense and sparse both grow while src points at key 1's slot
	s.Erased().Set(9, unsafe.Pointer(s.MustGet(1)))
	if got := s.MustRead(9); got != (vec{11, 22}) {
		t.Fatalf("copied value %+v, want {11 22}", got)
	}
	if got := s.MustRead(1); got != (vec{11, 22}) {
		t.Fatalf("source changed to %+v", got)
	}
}

func BenchmarkSetRemove(b *testing.B) {
	s := MustNew[vec](alloc.New(1<<16), 1024, 4096)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		k := uint32(i % 4096)
		if s.Contains(k) {
			_ = s.Remove(k)
		} else {
			s.Add(k, vec{1, 2})
		}
	}
}
