// SPDX-License-Identifier: GPL-3.0

// Package telemetry provides the shared structured logger the cmd/wpansim
// driver logs through, including its log lines for the two trace-only
// signals the core emits for observability (spec.md §6, §7): collision
// counts and (m,k) delivery violations. Neither is ever treated as an error;
// they are informational. The core packages do not import telemetry; they
// report traces only through macif.Callbacks. A single package-level logger
// follows the teacher's convention instead of passing *log.Logger around.
package telemetry

import "github.com/sirupsen/logrus"

// Log is the shared logger. Callers may replace it (e.g. a CLI harness
// wiring its own formatter) before constructing any component.
var Log = logrus.StandardLogger()

// Logf emits a message tagged with the device/node id, mirroring the
// teacher's logf(now, id, format, args...) helper.
func Logf(id int, format string, a ...any) {
	Log.WithField("node", id).Logf(logrus.DebugLevel, format, a...)
}
