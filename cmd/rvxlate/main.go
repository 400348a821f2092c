// Command rvxlate is the rv64xlate CLI: decode and disassemble an RV64GC
// ELF binary, translate a single guest super-block and print the host
// encoding, or run the emitter's chain/unchain self-checks.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sarchlab/rv64xlate/config"
	"github.com/sarchlab/rv64xlate/decoder"
	"github.com/sarchlab/rv64xlate/emitter"
	"github.com/sarchlab/rv64xlate/hostisa"
	"github.com/sarchlab/rv64xlate/loader"
	"github.com/sarchlab/rv64xlate/translate"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	opts := config.Default()

	rootCmd := &cobra.Command{
		Use:   "rvxlate",
		Short: "RV64GC dynamic binary translation core",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return nil
			}
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			*opts = *loaded
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a JSON options file (overlays the defaults)")
	rootCmd.PersistentFlags().BoolVar(&opts.TraceDecode, "trace-decode", opts.TraceDecode, "log every decoded guest instruction")
	rootCmd.PersistentFlags().BoolVar(&opts.TraceIR, "trace-ir", opts.TraceIR, "dump the IR built for each super-block")
	rootCmd.PersistentFlags().BoolVar(&opts.TraceAsm, "trace-asm", opts.TraceAsm, "dump the selected and encoded host instructions")
	rootCmd.PersistentFlags().BoolVar(&opts.LLSCNative, "llsc-native", opts.LLSCNative, "lower RV64A LR/SC to the native IR primitive instead of the fallback triplet")

	rootCmd.AddCommand(
		newDisasmCmd(opts),
		newTranslateCmd(opts),
		newSelftestCmd(),
	)
	return rootCmd
}

func newDisasmCmd(opts *config.Options) *cobra.Command {
	var maxInstrs int

	cmd := &cobra.Command{
		Use:   "disasm <program.elf>",
		Short: "Decode and disassemble an RV64GC ELF binary's executable segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := loader.Load(args[0])
			if err != nil {
				return err
			}
			diag := log.New(os.Stderr, "", 0)
			for _, seg := range prog.Segments {
				if seg.Flags&loader.SegmentFlagExecute == 0 {
					continue
				}
				disassembleSegment(cmd.OutOrStdout(), seg, maxInstrs, diag)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxInstrs, "max-instrs", 0, "stop after this many instructions (0 = no limit)")
	return cmd
}

func disassembleSegment(out io.Writer, seg loader.Segment, maxInstrs int, diag decoder.Diag) {
	pc := seg.VirtAddr
	cursor := seg.Data
	count := 0
	for len(cursor) > 0 {
		if maxInstrs > 0 && count >= maxInstrs {
			return
		}
		if len(cursor) >= 20 && isPreambleWord(cursor) {
			fmt.Fprintf(out, "%#010x:\t[pseudo-instruction preamble]\n", pc)
			pc += 20
			cursor = cursor[20:]
			count++
			continue
		}
		text, n := decoder.DisassembleOne(cursor)
		if n == 0 {
			diag.Printf("disasm: stopped at %#x: truncated instruction", pc)
			return
		}
		fmt.Fprintf(out, "%#010x:\t%s\n", pc, text)
		pc += uint64(n)
		cursor = cursor[n:]
		count++
	}
}

// isPreambleWord is a cheap, disassembly-only re-check of the four
// srli-x12-by-distinct-shift words the decoder's preamble detector looks
// for; kept independent so a display-only misclassification here can never
// affect decode.
func isPreambleWord(cursor []byte) bool {
	want := [4]uint32{0x00365613, 0x00d65613, 0x03365613, 0x03d65613}
	for i, w := range want {
		word := uint32(cursor[i*4]) | uint32(cursor[i*4+1])<<8 | uint32(cursor[i*4+2])<<16 | uint32(cursor[i*4+3])<<24
		if word != w {
			return false
		}
	}
	return true
}

func newTranslateCmd(opts *config.Options) *cobra.Command {
	var atAddr uint64

	cmd := &cobra.Command{
		Use:   "translate <program.elf>",
		Short: "Translate one guest super-block and print the host encoding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := loader.Load(args[0])
			if err != nil {
				return err
			}
			pc := atAddr
			if pc == 0 {
				pc = prog.EntryPoint
			}
			seg, cursor, err := segmentContaining(prog, pc)
			if err != nil {
				return err
			}
			_ = seg

			diag := log.New(os.Stderr, "", 0)
			addrs := emitter.DispatchAddrs{
				ChainMe:  0x1000,
				Indirect: 0x2000,
				Assisted: 0x3000,
			}
			unit := translate.New(opts, addrs, diag)
			result, err := unit.Translate(cursor, pc)
			if err != nil {
				return fmt.Errorf("translate: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "guest pc %#x, %d guest bytes -> %d host bytes\n", pc, result.GuestLen, len(result.Code))
			fmt.Fprint(cmd.OutOrStdout(), hexdump(result.Code))
			return nil
		},
	}
	cmd.Flags().Uint64Var(&atAddr, "at", 0, "guest address to translate from (default: ELF entry point)")
	return cmd
}

func segmentContaining(prog *loader.Program, pc uint64) (*loader.Segment, []byte, error) {
	for i := range prog.Segments {
		seg := &prog.Segments[i]
		if seg.Flags&loader.SegmentFlagExecute == 0 {
			continue
		}
		if pc >= seg.VirtAddr && pc < seg.VirtAddr+uint64(len(seg.Data)) {
			return seg, seg.Data[pc-seg.VirtAddr:], nil
		}
	}
	return nil, nil, fmt.Errorf("translate: address %#x is not inside any executable segment", pc)
}

func hexdump(b []byte) string {
	var s string
	for i := 0; i < len(b); i += 16 {
		end := i + 16
		if end > len(b) {
			end = len(b)
		}
		s += fmt.Sprintf("%04x  % x\n", i, b[i:end])
	}
	return s
}

func newSelftestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Run the addr48 materialization and chain/unchain self-checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelftest(cmd.OutOrStdout())
		},
	}
}

func runSelftest(out io.Writer) error {
	addrs := []uint64{0, 0x1000, 0x7fffffffe000, 0xffffffffffff0000, 0x400000}
	for _, chainMe := range addrs {
		tail := emitter.EmitXDirectTail(nil, chainMe)
		if !emitter.IsAddr48ToIreg(tail, chainMe) {
			return fmt.Errorf("selftest: fresh tail for chain-me %#x failed its own pre-image check", chainMe)
		}

		target := chainMe + 0x10000
		if err := emitter.ChainXDirect(tail, chainMe, target); err != nil {
			return fmt.Errorf("selftest: ChainXDirect(%#x -> %#x): %w", chainMe, target, err)
		}

		target2 := target + 0x2000
		if err := emitter.RechainXDirect(tail, target, target2); err != nil {
			return fmt.Errorf("selftest: RechainXDirect(%#x -> %#x): %w", target, target2, err)
		}

		if err := emitter.UnchainXDirect(tail, target2, chainMe); err != nil {
			return fmt.Errorf("selftest: UnchainXDirect(%#x -> %#x): %w", target2, chainMe, err)
		}
		if !emitter.IsAddr48ToIreg(tail, chainMe) {
			return fmt.Errorf("selftest: tail for chain-me %#x did not round-trip back to its own chain-me address", chainMe)
		}
		fmt.Fprintf(out, "chain/unchain round-trip OK for chain-me %#x\n", chainMe)
	}

	zero := hostisa.Reg{}
	if zero.Encoding() != 0 {
		return fmt.Errorf("selftest: zero-value hostisa.Reg did not encode to 0")
	}
	fmt.Fprintln(out, "all self-checks passed")
	return nil
}
