// Package jitcall builds a callable Go function value out of a raw code
// pointer inside a jit.Mapped page — the Go-idiom mirror of original_source
// Jit/func.rs's mem::transmute((entry_ptr,)) trick: a Go func value is,
// underneath, a pointer to a funcval struct whose first word is the entry
// PC, so constructing that struct ourselves and reinterpreting it as the
// caller's requested function type produces a directly-callable handle with
// no reflect.MakeFunc trampoline in the call path.
package jitcall

import (
	"reflect"
	"runtime"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/ironhold/ygen/jit"
)

// funcval mirrors the runtime's internal representation of a Go function
// value: a single word, the entry PC (closures carry more behind it, but a
// JIT-mapped function has no captured environment, so this is the whole
// structure we need).
type funcval struct {
	fn uintptr
}

// Func is a callable handle over a jit.Mapped page, generic over the target
// function's Go type F (e.g. func(int32, int32) int32). The mapped page is
// released when the handle is garbage-collected (runtime.SetFinalizer,
// Go's idiom for Rust's Drop) or explicitly via Release.
type Func[F any] struct {
	// Fn is directly callable: h.Fn(args...).
	Fn F

	mapped *jit.Mapped
}

// New builds a Func[F] whose Fn calls the code at entry within mapped. F
// must be a func type; any other type is a programmer error, reported here
// rather than risking an invalid call later.
func New[F any](mapped *jit.Mapped, entry uintptr) (*Func[F], error) {
	var zero F
	if reflect.TypeOf(zero).Kind() != reflect.Func {
		return nil, errors.Errorf("jitcall: type parameter %T is not a func type", zero)
	}

	fv := &funcval{fn: entry}
	h := &Func[F]{mapped: mapped}
	h.Fn = *(*F)(unsafe.Pointer(&fv))

	runtime.SetFinalizer(h, func(h *Func[F]) {
		_ = h.mapped.Release()
	})
	return h, nil
}

// Release unmaps the backing page immediately instead of waiting for the
// garbage collector, and disarms the finalizer so it doesn't run a second
// time. Safe to call even if the handle is later collected normally.
func (h *Func[F]) Release() error {
	runtime.SetFinalizer(h, nil)
	return h.mapped.Release()
}
