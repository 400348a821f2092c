// Package main provides the entry point for rv64xlate, an RV64GC dynamic
// binary translation core: decoder, IR, instruction selector, register
// allocator, and host-code emitter/patcher.
//
// For the full CLI, use: go run ./cmd/rvxlate
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("rv64xlate - RV64GC dynamic binary translation core")
	fmt.Println("")
	fmt.Println("Usage: rvxlate <command> [options] <program.elf>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  disasm      Disassemble an ELF binary's executable segments")
	fmt.Println("  translate   Translate guest code and print the host encoding")
	fmt.Println("  selftest    Run the chain/unchain and addr48 self-checks")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/rvxlate' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: you provided arguments. Use 'go run ./cmd/rvxlate' instead.")
	}
}
