package obj

import "github.com/ironhold/ygen/target/wasm"

// WriteWasm serialises functions as a binary Wasm module. Unlike
// WriteELF/WritePE/WriteMachO this doesn't consume a Builder: §4.6's
// section/symbol/relocation model has no Wasm analogue (a Wasm module's
// "sections" are type/function/export/code, not text/data/rodata, and it
// carries no relocation table — every call is already an internal function
// index by the time target/wasm.Lower returns it). Kept in package obj
// anyway as the fifth named container format §12 lists.
func WriteWasm(functions []wasm.Function) ([]byte, error) {
	m := &wasm.Module{Functions: functions}
	return m.Build()
}
