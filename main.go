// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for shakelib.
//
// Usage:
//
//	go run . [flags]
//	./shakelib [flags]
//
// This launches the shakelib CLI. See --help for options.
package main

import (
	"os"

	"github.com/seisio/shakelib/internal/logging"
	"github.com/seisio/shakelib/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		logging.Errorf("shakelib CLI error: %v", err)
		os.Exit(1)
	}
}
