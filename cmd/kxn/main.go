// kxn - the KXN engine CLI: loads a flat binary image and runs it to
// completion against a chosen host-I/O backend. spec.md §6.
//
// Usage:
//
//	kxn [-backend=headless|terminal|gui] image.bin
//
// Exit code is 0 on a clean HALT or host-requested shutdown, 1 on any
// other fault (SPEC_FULL.md §3; diverges from the teacher's bare
// os.Args dispatch in favour of the stdlib flag package, justified in
// DESIGN.md).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ked1108/KXN/hostio"
	"github.com/ked1108/KXN/vm"
)

func main() {
	backendName := flag.String("backend", "headless", "host-I/O backend: headless, terminal, or gui")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-backend=headless|terminal|gui] image.bin\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	imagePath := flag.Arg(0)

	image, err := os.ReadFile(imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kxn: %v\n", err)
		os.Exit(1)
	}

	backend, closer, err := openBackend(*backendName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kxn: %v\n", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}

	engine := vm.NewEngine()
	engine.Init(image)
	dispatcher := hostio.NewDispatcher(backend)

	fault := engine.Run(dispatcher)
	if fault == vm.HALT {
		fmt.Fprintf(os.Stderr, "kxn: HALT at PC=0x%04X\n", engine.PC)
	}
	if fault != vm.OK && fault != vm.HALT {
		fmt.Fprintf(os.Stderr, "kxn: %s at PC=0x%04X\n", fault, engine.PC)
		os.Exit(1)
	}
	os.Exit(0)
}

type closable interface {
	Close() error
}

func openBackend(name string) (hostio.Backend, closable, error) {
	switch name {
	case "headless":
		return hostio.NewHeadlessBackend(), nil, nil
	case "terminal":
		b, err := hostio.NewTerminalBackend()
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	case "gui":
		b, err := hostio.NewGUIBackend()
		if err != nil {
			return nil, nil, err
		}
		if c, ok := b.(closable); ok {
			return b, c, nil
		}
		return b, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q (want headless, terminal, or gui)", name)
	}
}
