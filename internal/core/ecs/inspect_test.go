package ecs

import (
	"errors"
	"testing"
)

func TestReadAnyReturnsCopy(t *testing.T) {
	w := newTestWorld(t)
	e := w.MustCreate()
	MustReplace(w, e, position{1, 2})
	id := IDOf[position](w)

	v, err := w.ReadAny(e, id)
	if err != nil {
		t.Fatal(err)
	}
	p, ok := v.(position)
	if !ok || p != (position{1, 2}) {
		t.Fatalf("read %#v", v)
	}
	MustGet[position](w, e).X = 10
	if p.X != 1 {
		t.Fatal("ReadAny aliases storage")
	}
}

func TestReplaceAny(t *testing.T) {
	w := newTestWorld(t)
	e := w.MustCreate()
	id := IDOf[health](w)
	if err := w.ReplaceAny(e, id, health{HP: 7}); err != nil {
		t.Fatal(err)
	}
	if got := MustRead[health](w, e); got.HP != 7 {
		t.Fatalf("hp %d", got.HP)
	}
	if err := w.ReplaceAny(e, id, position{}); err == nil {
		t.Fatal("wrong type accepted")
	}
	if err := w.ReplaceAny(e, id, nil); err == nil {
		t.Fatal("nil accepted")
	}
}

func TestComponentsOfAndGroupsOf(t *testing.T) {
	w := newTestWorld(t)
	pid, hid := IDOf[position](w), IDOf[health](w)
	IDOf[velocity](w)
	e := w.MustCreate()
	MustReplace(w, e, health{})
	MustReplace(w, e, position{})

	comps, err := w.ComponentsOf(e)
	if err != nil {
		t.Fatal(err)
	}
	if len(comps) != 2 || comps[0] != pid || comps[1] != hid {
		t.Fatalf("components %v", comps)
	}

	g := With[health](w.Filter()).MustFind()
	With[velocity](w.Filter()).MustFind()
	groups, err := w.GroupsOf(e)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || groups[0] != g.ID() {
		t.Fatalf("groups %v", groups)
	}

	w.MustDestroy(e)
	if _, err := w.ComponentsOf(e); !errors.Is(err, ErrNotAlive) {
		t.Fatalf("expected ErrNotAlive, got %v", err)
	}
}

func TestComponentsListsRegistrations(t *testing.T) {
	w := newTestWorld(t)
	IDOf[position](w)
	if _, err := RegisterNamed[health](w, "Health"); err != nil {
		t.Fatal(err)
	}
	infos := w.Components()
	if len(infos) != 2 || infos[0].Name != "position" || infos[1].Name != "Health" {
		t.Fatalf("infos %+v", infos)
	}
	if _, err := w.ReadAny(w.MustCreate(), 42); !errors.Is(err, ErrUnknownComponent) {
		t.Fatalf("expected ErrUnknownComponent, got %v", err)
	}
}
