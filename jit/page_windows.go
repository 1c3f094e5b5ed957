//go:build windows

package jit

import (
	"syscall"
	"unsafe"

	"github.com/pkg/errors"
)

var (
	modkernel32     = syscall.NewLazyDLL("kernel32.dll")
	procVirtualAlloc = modkernel32.NewProc("VirtualAlloc")
	procVirtualFree  = modkernel32.NewProc("VirtualFree")
)

const (
	memCommit            = 0x1000
	memReserve           = 0x2000
	memRelease           = 0x8000
	pageExecuteReadwrite = 0x40
)

// mapExecutable is VirtualAlloc(MEM_COMMIT|MEM_RESERVE, PAGE_EXECUTE_READWRITE), §4.7's
// Windows equivalent of the unix mmap path, called directly through
// syscall.NewLazyDLL rather than golang.org/x/sys/windows to keep this
// module's dependency set matching the pack (see DESIGN.md).
func mapExecutable(code []byte) ([]byte, error) {
	if len(code) == 0 {
		return nil, errors.New("jit: cannot map zero-length code")
	}
	addr, _, err := procVirtualAlloc.Call(0, uintptr(len(code)), memCommit|memReserve, pageExecuteReadwrite)
	if addr == 0 {
		return nil, errors.Wrap(err, "jit: VirtualAlloc executable page")
	}
	page := unsafe.Slice((*byte)(unsafe.Pointer(addr)), len(code))
	copy(page, code)
	return page, nil
}

func unmapExecutable(page []byte) error {
	if len(page) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&page[0]))
	ok, _, err := procVirtualFree.Call(addr, 0, memRelease)
	if ok == 0 {
		return errors.Wrap(err, "jit: VirtualFree executable page")
	}
	return nil
}
