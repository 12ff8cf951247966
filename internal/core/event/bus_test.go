package event

import "testing"

type hit struct{ N int }
type miss struct{}

func TestEventsArriveNextTick(t *testing.T) {
	b := NewBus()
	var got []int
	Subscribe(b, func(h hit) { got = append(got, h.N) })

	Emit(b, hit{N: 1})
	b.DispatchAll()
	if len(got) != 0 {
		t.Fatal("event delivered before swap")
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("got %v", got)
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 {
		t.Fatalf("event delivered twice: %v", got)
	}
}

func TestHandlersOnlySeeTheirType(t *testing.T) {
	b := NewBus()
	hits, misses := 0, 0
	Subscribe(b, func(hit) { hits++ })
	Subscribe(b, func(miss) { misses++ })

	Emit(b, hit{})
	Emit(b, hit{})
	Emit(b, miss{})
	if Pending[hit](b) != 2 {
		t.Fatalf("pending %d", Pending[hit](b))
	}
	b.SwapBuffers()
	b.DispatchAll()
	if hits != 2 || misses != 1 {
		t.Fatalf("hits=%d misses=%d", hits, misses)
	}
}

func TestEmitDuringDispatchGoesToNextTick(t *testing.T) {
	b := NewBus()
	count := 0
	Subscribe(b, func(h hit) {
		count++
		if h.N < 3 {
			Emit(b, hit{N: h.N + 1})
		}
	})
	Emit(b, hit{N: 1})
	for i := 0; i < 5; i++ {
		b.SwapBuffers()
		b.DispatchAll()
	}
	if count != 3 {
		t.Fatalf("expected chain of 3, got %d", count)
	}
}
