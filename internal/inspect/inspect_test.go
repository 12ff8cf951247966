package inspect

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"go.uber.org/zap/zaptest"

	"github.com/DesertImage/ecs-burst-sub000/internal/core/ecs"
)

type position struct{ X, Y float32 }
type label struct{ Text [40]byte }
type hp struct{ Cur int32 }

func newWorld(t *testing.T) *ecs.World {
	t.Helper()
	w := ecs.NewWorld(ecs.DefaultOptions(), zaptest.NewLogger(t))
	t.Cleanup(func() { _ = w.Dispose() })
	return w
}

func TestEntityAlignsWideNames(t *testing.T) {
	w := newWorld(t)
	if _, err := ecs.RegisterNamed[position](w, "位置"); err != nil {
		t.Fatal(err)
	}
	if _, err := ecs.RegisterNamed[hp](w, "HP"); err != nil {
		t.Fatal(err)
	}
	e := w.MustCreate()
	ecs.MustReplace(w, e, position{X: 1, Y: 2})
	ecs.MustReplace(w, e, hp{Cur: 5})

	out, err := Entity(w, e)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "entity 1 (2 components)") {
		t.Fatalf("output:\n%s", out)
	}
	// value columns start at the same display column
	col := func(line, value string) int {
		return runewidth.StringWidth(line[:strings.Index(line, value)])
	}
	if col(lines[1], "{X:1 Y:2}") != col(lines[2], "{Cur:5}") {
		t.Fatalf("columns not aligned:\n%s", out)
	}
}

func TestEntityTruncatesLongValues(t *testing.T) {
	w := newWorld(t)
	e := w.MustCreate()
	ecs.MustReplace(w, e, label{})
	out, err := Entity(w, e)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "...") {
		t.Fatalf("long value not truncated:\n%s", out)
	}
	for _, line := range strings.Split(out, "\n")[1:] {
		if runewidth.StringWidth(line) > MaxValueWidth+20 {
			t.Fatalf("line too wide: %q", line)
		}
	}
}

func TestEntityNotAlive(t *testing.T) {
	w := newWorld(t)
	if _, err := Entity(w, 9); err == nil {
		t.Fatal("expected error")
	}
}

func TestWorldSummary(t *testing.T) {
	w := newWorld(t)
	for i := 0; i < 3; i++ {
		e := w.MustCreate()
		ecs.MustReplace(w, e, hp{})
		if i == 0 {
			ecs.MustReplace(w, e, position{})
		}
	}
	out := World(w)
	if !strings.Contains(out, "3 entities") {
		t.Fatalf("summary:\n%s", out)
	}
	var hpLine, posLine string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 4 && fields[1] == "hp" {
			hpLine = line
		}
		if len(fields) == 4 && fields[1] == "position" {
			posLine = line
		}
	}
	if !strings.HasSuffix(hpLine, " 3") || !strings.HasSuffix(posLine, " 1") {
		t.Fatalf("counts wrong:\n%s", out)
	}
}
