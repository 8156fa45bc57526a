// kxn-asm - the KXN two-pass assembler CLI. spec.md §4.3/§6.
//
// Usage:
//
//	kxn-asm input.asm output.bin
//	kxn-asm -dis input.bin
//
// Exit code is 0 on a clean assembly, 1 if any line produced a fatal
// diagnostic (an unresolved or over-long label, or a malformed
// instruction); an unknown mnemonic is only a warning.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ked1108/KXN/asm"
)

func main() {
	dis := flag.Bool("dis", false, "disassemble input.bin instead of assembling")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s input.asm output.bin\n       %s -dis input.bin\n", os.Args[0], os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *dis {
		runDisassemble()
		return
	}
	runAssemble()
}

func runAssemble() {
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}
	srcPath, outPath := flag.Arg(0), flag.Arg(1)

	source, err := os.ReadFile(srcPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kxn-asm: %v\n", err)
		os.Exit(1)
	}

	image, diags, asmErr := asm.Assemble(string(source))
	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "kxn-asm: %s\n", d)
	}

	if err := os.WriteFile(outPath, image, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "kxn-asm: %v\n", err)
		os.Exit(1)
	}

	if asmErr != nil {
		os.Exit(1)
	}
}

func runDisassemble() {
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	image, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "kxn-asm: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(asm.Listing(image))
}
