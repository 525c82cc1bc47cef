// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// runHealthcheckCLI probes a running daemon; used as a container HEALTHCHECK.
func runHealthcheckCLI(args []string) int {
	fs := flag.NewFlagSet("healthcheck", flag.ContinueOnError)
	mode := fs.String("mode", "ready", "healthcheck mode: ready (default) or live")
	base := fs.String("url", "http://localhost:5000", "base URL of the API")
	timeout := fs.Duration("timeout", 5*time.Second, "check timeout")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	return probe(strings.TrimRight(*base, "/"), *mode, *timeout)
}

func probe(base, mode string, timeout time.Duration) int {
	path := "/healthz"
	if mode == "ready" {
		path = "/readyz"
	}

	client := http.Client{Timeout: timeout}
	resp, err := client.Get(base + path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Healthcheck failed (network): %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Healthcheck failed (status): %s\n", resp.Status)
		return 1
	}

	fmt.Printf("Healthcheck successful (%s)\n", mode)
	return 0
}
