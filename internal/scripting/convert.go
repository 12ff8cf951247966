package scripting

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// fieldName is the Lua key for a struct field: its yaml name when tagged,
// so scripts and prefab files agree, else the lower-cased Go name.
func fieldName(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("yaml"); ok {
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return strings.ToLower(f.Name)
}

// toLua converts a component value. Structs become tables keyed by field
// name, arrays become 1-based lists.
func toLua(L *lua.LState, v reflect.Value) lua.LValue {
	switch v.Kind() {
	case reflect.Bool:
		return lua.LBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return lua.LNumber(v.Uint())
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(v.Float())
	case reflect.Array:
		t := L.NewTable()
		for i := 0; i < v.Len(); i++ {
			t.Append(toLua(L, v.Index(i)))
		}
		return t
	case reflect.Struct:
		t := L.NewTable()
		for i := 0; i < v.NumField(); i++ {
			f := v.Type().Field(i)
			if !f.IsExported() {
				continue
			}
			if name := fieldName(f); name != "" {
				t.RawSetString(name, toLua(L, v.Field(i)))
			}
		}
		return t
	default:
		return lua.LNil
	}
}

// fromLua writes lv into the settable value v. Table keys v has no field
// for are ignored; fields absent from the table are left untouched.
func fromLua(v reflect.Value, lv lua.LValue) error {
	switch v.Kind() {
	case reflect.Bool:
		b, ok := lv.(lua.LBool)
		if !ok {
			return fmt.Errorf("want boolean, got %s", lv.Type())
		}
		v.SetBool(bool(b))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return fmt.Errorf("want number, got %s", lv.Type())
		}
		f, err := integral(n)
		if err != nil {
			return err
		}
		limit := math.Ldexp(1, v.Type().Bits()-1)
		if f < -limit || f >= limit {
			return fmt.Errorf("%v overflows %s", n, v.Type())
		}
		v.SetInt(int64(f))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return fmt.Errorf("want number, got %s", lv.Type())
		}
		f, err := integral(n)
		if err != nil {
			return err
		}
		if f < 0 || f >= math.Ldexp(1, v.Type().Bits()) {
			return fmt.Errorf("%v out of range for %s", n, v.Type())
		}
		v.SetUint(uint64(f))
	case reflect.Float32, reflect.Float64:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return fmt.Errorf("want number, got %s", lv.Type())
		}
		v.SetFloat(float64(n))
	case reflect.Array:
		t, ok := lv.(*lua.LTable)
		if !ok {
			return fmt.Errorf("want table, got %s", lv.Type())
		}
		for i := 0; i < v.Len(); i++ {
			item := t.RawGetInt(i + 1)
			if item == lua.LNil {
				continue
			}
			if err := fromLua(v.Index(i), item); err != nil {
				return fmt.Errorf("[%d]: %w", i+1, err)
			}
		}
	case reflect.Struct:
		t, ok := lv.(*lua.LTable)
		if !ok {
			return fmt.Errorf("want table, got %s", lv.Type())
		}
		for i := 0; i < v.NumField(); i++ {
			f := v.Type().Field(i)
			name := fieldName(f)
			if !f.IsExported() || name == "" {
				continue
			}
			item := t.RawGetString(name)
			if item == lua.LNil {
				continue
			}
			if err := fromLua(v.Field(i), item); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	default:
		return fmt.Errorf("unsupported field type %s", v.Type())
	}
	return nil
}

// integral rejects Lua numbers that have a fractional part or are not finite.
func integral(n lua.LNumber) (float64, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not an integer", n)
	}
	return f, nil
}
