//go:build linux || darwin

package jit

import (
	"syscall"

	"github.com/pkg/errors"
)

// mapExecutable allocates an anonymous RWX page of len(code) bytes (rounded
// up by the kernel to a page boundary) and copies code into it, the
// mmap(PROT_READ|WRITE|EXEC, MAP_ANON|PRIVATE) step §4.7 names — the
// platform primitive itself, not a library concern, which is why this calls
// the standard library's syscall package directly rather than
// golang.org/x/sys/unix (no pack example imports x/sys either).
func mapExecutable(code []byte) ([]byte, error) {
	if len(code) == 0 {
		return nil, errors.New("jit: cannot map zero-length code")
	}
	page, err := syscall.Mmap(-1, 0, len(code), syscall.PROT_READ|syscall.PROT_WRITE|syscall.PROT_EXEC, syscall.MAP_ANON|syscall.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrap(err, "jit: mmap executable page")
	}
	copy(page, code)
	return page, nil
}

func unmapExecutable(page []byte) error {
	if len(page) == 0 {
		return nil
	}
	return errors.Wrap(syscall.Munmap(page), "jit: munmap executable page")
}
