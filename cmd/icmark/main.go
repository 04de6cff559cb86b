// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command icmark strikes a rotated label across identity card photos.
//
// Usage:
//
//	icmark render --front front.jpg --back back.heic --combine --out ./out
//	icmark serve --addr :8080
//	icmark version
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
