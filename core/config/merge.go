package config

import (
	"reflect"
)

// Merge overlays every non-zero field of override onto c. Slices replace
// only when non-empty and pointers only when non-nil, so a partially filled
// override (for example one built from command-line flags) leaves the rest
// of c untouched. Booleans can only be switched on this way.
func (c *Config) Merge(override *Config) {
	if override == nil {
		return
	}
	mergeValues(reflect.ValueOf(c).Elem(), reflect.ValueOf(override).Elem())
}

func mergeValues(dst, src reflect.Value) {
	if !dst.CanSet() || !src.IsValid() {
		return
	}

	switch dst.Kind() {
	case reflect.Struct:
		for i := 0; i < dst.NumField(); i++ {
			mergeValues(dst.Field(i), src.Field(i))
		}
	case reflect.Slice:
		if src.Len() > 0 {
			dst.Set(src)
		}
	default:
		if !isZeroValue(src) {
			dst.Set(src)
		}
	}
}

func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}
