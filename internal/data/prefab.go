package data

import (
	"fmt"
	"os"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/DesertImage/ecs-burst-sub000/internal/core/ecs"
)

// Prefab is a named template of component values. Component keys are the
// names components were registered under with ecs.RegisterNamed; values
// are decoded into the registered type when the prefab is spawned.
type Prefab struct {
	Name       string               `yaml:"name"`
	Components map[string]yaml.Node `yaml:"components"`
}

// ComponentNames returns the prefab's component keys, sorted.
func (p *Prefab) ComponentNames() []string {
	names := make([]string, 0, len(p.Components))
	for n := range p.Components {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SpawnEntry asks for Count instances of Prefab at startup.
type SpawnEntry struct {
	Prefab string `yaml:"prefab"`
	Count  int    `yaml:"count"`
}

// PrefabTable indexes prefabs by name and keeps the startup spawn list.
type PrefabTable struct {
	byName map[string]*Prefab
	names  []string // file order
	spawns []SpawnEntry
}

// Get returns a prefab by name, or nil if not found.
func (t *PrefabTable) Get(name string) *Prefab {
	return t.byName[name]
}

func (t *PrefabTable) Names() []string { return append([]string(nil), t.names...) }

// Count returns the number of prefabs loaded.
func (t *PrefabTable) Count() int { return len(t.byName) }

func (t *PrefabTable) Spawns() []SpawnEntry { return append([]SpawnEntry(nil), t.spawns...) }

// Merge adds the spawn list of other. Prefab definitions in other are
// added too; a name defined in both is an error.
func (t *PrefabTable) Merge(other *PrefabTable) error {
	for _, n := range other.names {
		if _, dup := t.byName[n]; dup {
			return fmt.Errorf("prefab: %q defined twice", n)
		}
		t.byName[n] = other.byName[n]
		t.names = append(t.names, n)
	}
	t.spawns = append(t.spawns, other.spawns...)
	return nil
}

// --- YAML loading ---

type prefabFile struct {
	Prefabs []Prefab     `yaml:"prefabs"`
	Spawns  []SpawnEntry `yaml:"spawns"`
}

// LoadPrefabTable loads prefab definitions and the spawn list from YAML.
func LoadPrefabTable(path string) (*PrefabTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prefab: read %s: %w", path, err)
	}
	t, err := ParsePrefabTable(raw)
	if err != nil {
		return nil, fmt.Errorf("prefab: %s: %w", path, err)
	}
	return t, nil
}

// ParsePrefabTable parses YAML prefab data. Spawn entries are checked
// against the prefabs in the same document only when that document
// defines prefabs, so a spawn-only file can reference another file.
func ParsePrefabTable(raw []byte) (*PrefabTable, error) {
	var f prefabFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	t := &PrefabTable{
		byName: make(map[string]*Prefab, len(f.Prefabs)),
		names:  make([]string, 0, len(f.Prefabs)),
		spawns: f.Spawns,
	}
	for i := range f.Prefabs {
		p := &f.Prefabs[i]
		if p.Name == "" {
			return nil, fmt.Errorf("prefab #%d has no name", i+1)
		}
		if _, dup := t.byName[p.Name]; dup {
			return nil, fmt.Errorf("prefab %q defined twice", p.Name)
		}
		t.byName[p.Name] = p
		t.names = append(t.names, p.Name)
	}
	for _, s := range f.Spawns {
		if s.Count <= 0 {
			return nil, fmt.Errorf("spawn %q: count must be positive, got %d", s.Prefab, s.Count)
		}
		if len(f.Prefabs) > 0 && t.byName[s.Prefab] == nil {
			return nil, fmt.Errorf("spawn references unknown prefab %q", s.Prefab)
		}
	}
	return t, nil
}

// Spawn creates one entity from the named prefab. Either every component
// is attached or the entity is destroyed and an error returned.
func (t *PrefabTable) Spawn(w *ecs.World, name string) (ecs.Entity, error) {
	p := t.byName[name]
	if p == nil {
		return ecs.Nil, fmt.Errorf("prefab: unknown prefab %q", name)
	}
	e, err := w.Create()
	if err != nil {
		return ecs.Nil, fmt.Errorf("prefab %s: %w", name, err)
	}
	for _, cname := range p.ComponentNames() {
		if err := attach(w, e, cname, p.Components[cname]); err != nil {
			_ = w.Destroy(e)
			return ecs.Nil, fmt.Errorf("prefab %s: %w", name, err)
		}
	}
	return e, nil
}

// SpawnAll runs the spawn list and returns how many entities were created.
func (t *PrefabTable) SpawnAll(w *ecs.World) (int, error) {
	n := 0
	for _, s := range t.spawns {
		for i := 0; i < s.Count; i++ {
			if _, err := t.Spawn(w, s.Prefab); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func attach(w *ecs.World, e ecs.Entity, cname string, node yaml.Node) error {
	info, ok := w.ComponentByName(cname)
	if !ok {
		return fmt.Errorf("component %q is not registered", cname)
	}
	box := reflect.New(info.Type)
	if node.Kind != 0 {
		if err := node.Decode(box.Interface()); err != nil {
			return fmt.Errorf("component %s: %w", cname, err)
		}
	}
	if err := w.ReplaceRaw(e, info.ID, box.UnsafePointer()); err != nil {
		return fmt.Errorf("component %s: %w", cname, err)
	}
	return nil
}
