// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ManuGH/qrattend/internal/persistence/sqlite"
)

func runStorageCLI(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printStorageUsage(os.Stdout)
		return 0
	}

	switch args[0] {
	case "verify":
		return runStorageVerify(args[1:], os.Stdout, os.Stderr)
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n\n", args[0])
		printStorageUsage(os.Stderr)
		return 2
	}
}

func printStorageUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  qrattendd storage verify --path PATH [--mode quick|full]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "Flags:")
	_, _ = fmt.Fprintln(w, "  --path string  Path to the SQLite attendance ledger")
	_, _ = fmt.Fprintln(w, "  --mode string  Verification mode: quick (default) or full")
}

func runStorageVerify(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("qrattendd storage verify", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var path, mode string
	fs.StringVar(&path, "path", "", "Path to the SQLite database file")
	fs.StringVar(&mode, "mode", "quick", "Verification mode: quick or full")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if path == "" {
		fmt.Fprintln(stderr, "Error: --path is required")
		return 2
	}

	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode != "quick" && mode != "full" {
		fmt.Fprintf(stderr, "Error: invalid mode %q. Use 'quick' or 'full'.\n", mode)
		return 2
	}

	fmt.Fprintf(stderr, "Verifying integrity of %s (mode: %s)...\n", path, mode)
	issues, err := sqlite.VerifyIntegrity(path, mode)
	if err != nil {
		fmt.Fprintf(stderr, "Verification interrupted by system error: %v\n", err)
		return 1
	}
	if issues != nil {
		fmt.Fprintln(stderr, "CORRUPTION DETECTED")
		for _, issue := range issues {
			fmt.Fprintf(stderr, "  - %s\n", issue)
		}
		return 1
	}

	fmt.Fprintln(stdout, "Integrity verified: ok")
	return 0
}
