package forge

import (
	"fmt"
	"reflect"
)

// Scalar constrains the host types that can be embedded as typed
// constants. bool maps to the 8-bit boolean type; int and uint map to
// their 64-bit engine counterparts.
type Scalar interface {
	~bool |
		~int8 | ~int16 | ~int32 | ~int64 | ~int |
		~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint |
		~float32 | ~float64
}

// TypeFor returns the type descriptor for the compile-time constant
// type T in the given context.
func TypeFor[T Scalar](ctx *Context) Type {
	switch reflect.TypeFor[T]().Kind() {
	case reflect.Bool:
		return ctx.BoolType()
	case reflect.Int8, reflect.Uint8:
		return ctx.Int8Type()
	case reflect.Int16, reflect.Uint16:
		return ctx.Int16Type()
	case reflect.Int32, reflect.Uint32:
		return ctx.Int32Type()
	case reflect.Int64, reflect.Uint64, reflect.Int, reflect.Uint:
		return ctx.Int64Type()
	case reflect.Float32:
		return ctx.Float32Type()
	case reflect.Float64:
		return ctx.Float64Type()
	default:
		panic(fmt.Sprintf("forge: no type mapping for %v", reflect.TypeFor[T]()))
	}
}

// ConstOf embeds the host literal v as a typed constant in ctx.
func ConstOf[T Scalar](ctx *Context, v T) Value {
	ty := TypeFor[T](ctx)
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		var bits uint64
		if rv.Bool() {
			bits = 1
		}
		return Value{ctx.raw, ctx.raw.ConstInt(ty.t, bits)}
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return Value{ctx.raw, ctx.raw.ConstInt(ty.t, uint64(rv.Int()))}
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return Value{ctx.raw, ctx.raw.ConstInt(ty.t, rv.Uint())}
	default:
		return Value{ctx.raw, ctx.raw.ConstFloat(ty.t, rv.Float())}
	}
}
