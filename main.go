// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// sentline - SAE J2716 SENT protocol decoder and capture-link analyzer.

package main

import (
	"fmt"
	"os"

	"github.com/haldane-labs/sentline/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
