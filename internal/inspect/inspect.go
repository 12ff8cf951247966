// Package inspect renders read-only text views of a world for debugging.
// Columns are aligned by display width, so wide (CJK, emoji) component
// names line up in a terminal.
package inspect

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/DesertImage/ecs-burst-sub000/internal/core/ecs"
)

// MaxValueWidth caps the rendered width of one component value.
const MaxValueWidth = 72

type row struct {
	cells []string
}

// Entity renders one row per component of e: name, then value.
func Entity(w *ecs.World, e ecs.Entity) (string, error) {
	ids, err := w.ComponentsOf(e)
	if err != nil {
		return "", err
	}
	rows := make([]row, 0, len(ids))
	for _, id := range ids {
		info, _ := w.ComponentInfo(id)
		v, err := w.ReadAny(e, id)
		if err != nil {
			return "", err
		}
		rows = append(rows, row{cells: []string{info.Name, formatValue(v)}})
	}
	var b strings.Builder
	fmt.Fprintf(&b, "entity %d (%d components)\n", e, len(ids))
	writeTable(&b, rows)
	return b.String(), nil
}

// World renders the registered component types with their sizes and
// population, followed by a line of world stats.
func World(w *ecs.World) string {
	infos := w.Components()
	rows := make([]row, 0, len(infos)+1)
	rows = append(rows, row{cells: []string{"ID", "COMPONENT", "SIZE", "COUNT"}})
	for _, info := range infos {
		rows = append(rows, row{cells: []string{
			fmt.Sprint(info.ID),
			info.Name,
			fmt.Sprint(info.Size),
			fmt.Sprint(w.CountOf(info.ID)),
		}})
	}
	st := w.Stats()
	var b strings.Builder
	fmt.Fprintf(&b, "world %s: %d entities, %d groups, %d ticks, %d/%d bytes used\n",
		w.ID(), st.Entities, st.Groups, st.Ticks, st.Allocator.Used, st.Allocator.Size)
	writeTable(&b, rows)
	return b.String()
}

func formatValue(v any) string {
	s := fmt.Sprintf("%+v", v)
	if runewidth.StringWidth(s) > MaxValueWidth {
		s = runewidth.Truncate(s, MaxValueWidth, "...")
	}
	return s
}

// writeTable pads every column but the last to its widest cell.
func writeTable(b *strings.Builder, rows []row) {
	var widths []int
	for _, r := range rows {
		for i, c := range r.cells {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], runewidth.StringWidth(c))
		}
	}
	for _, r := range rows {
		b.WriteString("  ")
		for i, c := range r.cells {
			if i == len(r.cells)-1 {
				b.WriteString(c)
				break
			}
			b.WriteString(runewidth.FillRight(c, widths[i]))
			b.WriteString("  ")
		}
		b.WriteByte('\n')
	}
}
