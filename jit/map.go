package jit

import (
	"unsafe"

	"github.com/pkg/errors"
)

// Mapped is a linked code buffer copied into an executable page: §4.7's
// "callable handle" before any Go function-value machinery is wrapped
// around it (see package jitcall for that). Release must be called on
// every exit path (calls after the first do nothing) — including when the caller's invocation of the
// mapped code panics, which is why Release is designed to be safe from a
// deferred call.
type Mapped struct {
	page      []byte
	positions map[string]int
	entry     string
	released  bool
}

// Map allocates an RWX page sized to ld.Code, copies it in, and returns a
// handle whose Release unmaps it. Per §4.7 step 6.
func (ld *Linked) Map() (*Mapped, error) {
	page, err := mapExecutable(ld.Code)
	if err != nil {
		return nil, err
	}
	return &Mapped{page: page, positions: ld.Positions, entry: ld.EntryName}, nil
}

// EntryPointer returns a pointer to the link's designated entry function
// within the mapped page, or an error if no function was marked as entry.
func (m *Mapped) EntryPointer() (uintptr, error) {
	if m.entry == "" {
		return 0, errors.New("jit: linked map has no entry function")
	}
	return m.SymbolPointer(m.entry)
}

// SymbolPointer returns a pointer into the mapped page at name's offset.
func (m *Mapped) SymbolPointer(name string) (uintptr, error) {
	off, ok := m.positions[name]
	if !ok {
		return 0, errors.Errorf("jit: mapped page has no symbol %q", name)
	}
	if len(m.page) == 0 {
		return 0, errors.New("jit: mapped page is empty")
	}
	return uintptr(unsafe.Pointer(&m.page[off])), nil
}

// Release unmaps the page. Safe to call more than once; only the first call
// does anything.
func (m *Mapped) Release() error {
	if m.released {
		return nil
	}
	m.released = true
	return unmapExecutable(m.page)
}
