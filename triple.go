// Package ygen is the root of the code-generation framework: it names the
// Triple value object every Module is constructed with, and re-exports
// nothing else — the IR, register allocator, target back-ends, object
// writer, and JIT linker each live in their own subpackage.
package ygen

// Arch names a target instruction set architecture.
type Arch byte

const (
	ArchX86_64 Arch = iota
	ArchAArch64
	ArchWasm32
)

// String implements fmt.Stringer.
func (a Arch) String() string {
	switch a {
	case ArchX86_64:
		return "x86_64"
	case ArchAArch64:
		return "aarch64"
	case ArchWasm32:
		return "wasm32"
	default:
		return "invalid"
	}
}

// OS names a target operating system, or OSNone for a hosted environment
// with no OS-level object format conventions (bare JIT, Wasm).
type OS byte

const (
	OSNone OS = iota
	OSLinux
	OSDarwin
	OSWindows
)

// String implements fmt.Stringer.
func (o OS) String() string {
	switch o {
	case OSNone:
		return "none"
	case OSLinux:
		return "linux"
	case OSDarwin:
		return "darwin"
	case OSWindows:
		return "windows"
	default:
		return "invalid"
	}
}

// ObjectFormat names the container format Module lowers to when asked to
// produce an object file rather than assembly text or a JIT page.
type ObjectFormat byte

const (
	ObjectFormatNone ObjectFormat = iota
	ObjectFormatELF
	ObjectFormatPE
	ObjectFormatMachO
	ObjectFormatWasm
	ObjectFormatXCOFF
)

// String implements fmt.Stringer.
func (f ObjectFormat) String() string {
	switch f {
	case ObjectFormatNone:
		return "none"
	case ObjectFormatELF:
		return "elf"
	case ObjectFormatPE:
		return "pe"
	case ObjectFormatMachO:
		return "macho"
	case ObjectFormatWasm:
		return "wasm"
	case ObjectFormatXCOFF:
		return "xcoff"
	default:
		return "invalid"
	}
}

// Convention names one of the four calling conventions the target package
// can classify arguments/returns under. Kept here (rather than in package
// target) so Triple has no dependency on target, and ir has no dependency
// on target either — only on this leaf package.
type Convention byte

const (
	ConventionSystemVAMD64 Convention = iota
	ConventionWindowsFastcall
	ConventionAppleAArch64
	ConventionWasmBasicC
)

// String implements fmt.Stringer.
func (c Convention) String() string {
	switch c {
	case ConventionSystemVAMD64:
		return "system-v-amd64"
	case ConventionWindowsFastcall:
		return "windows-fastcall"
	case ConventionAppleAArch64:
		return "apple-aarch64"
	case ConventionWasmBasicC:
		return "wasm-basic-c"
	default:
		return "invalid"
	}
}

// Triple names the target a Module is built for: architecture, operating
// system, object container format, and calling convention. It is fixed at
// Module construction and threaded explicitly everywhere a component needs
// it instead of being read from global state.
type Triple struct {
	Arch       Arch
	OS         OS
	Format     ObjectFormat
	Convention Convention
}

// String implements fmt.Stringer, e.g. "x86_64-linux-elf".
func (t Triple) String() string {
	return t.Arch.String() + "-" + t.OS.String() + "-" + t.Format.String()
}

// X8664SysV is the default native target: x86-64 Linux, ELF, SysV AMD64.
var X8664SysV = Triple{Arch: ArchX86_64, OS: OSLinux, Format: ObjectFormatELF, Convention: ConventionSystemVAMD64}

// X8664Windows targets Windows PE with the fastcall convention.
var X8664Windows = Triple{Arch: ArchX86_64, OS: OSWindows, Format: ObjectFormatPE, Convention: ConventionWindowsFastcall}

// X8664Darwin targets Mach-O with the SysV AMD64 convention (Darwin's x86-64
// ABI matches SysV).
var X8664Darwin = Triple{Arch: ArchX86_64, OS: OSDarwin, Format: ObjectFormatMachO, Convention: ConventionSystemVAMD64}

// Wasm32 targets a freestanding Wasm module, no OS, Wasm container format.
var Wasm32 = Triple{Arch: ArchWasm32, OS: OSNone, Format: ObjectFormatWasm, Convention: ConventionWasmBasicC}
