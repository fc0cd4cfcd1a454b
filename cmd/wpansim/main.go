// SPDX-License-Identifier: GPL-3.0

// Command wpansim is an example driver over the csma core: it wires each
// variant's StateMachine to a synthetic shared channel and a YAML-
// described set of contending devices. It is not part of the core and
// carries none of its own testable-property guarantees.
package main

import (
	"os"

	"github.com/csma-noba/wpancsma/internal/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		telemetry.Log.Error(err)
		os.Exit(1)
	}
}
