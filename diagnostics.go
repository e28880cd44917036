// Copyright 2024 Ahmad Sameh(asmsh)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package deferred

import "github.com/sirupsen/logrus"

// diagLogger is the process-wide diagnostics channel: a handful of
// misuse conditions emit textual warnings here, and an error
// reaching an unhandled leaf with no default handler gets an error-level
// entry immediately before the re-raise.
var diagLogger logrus.FieldLogger = logrus.StandardLogger()

// SetDiagnosticsLogger overrides the logger used for this package's
// diagnostics channel. Passing nil restores the standard logrus logger.
// Meant for swapping in a test-local logger during test isolation.
func SetDiagnosticsLogger(l logrus.FieldLogger) {
	if l == nil {
		diagLogger = logrus.StandardLogger()
		return
	}
	diagLogger = l
}

func warnAlreadyResolved(d *Deferred, op string) {
	diagLogger.WithFields(logrus.Fields{
		"deferred": d.id,
		"state":    d.state,
		"op":       op,
	}).Warn("deferred: ignoring call on an already-resolved Deferred")
}

func warnAbortTerminal(d *Deferred) {
	diagLogger.WithFields(logrus.Fields{
		"deferred": d.id,
		"state":    d.state,
	}).Warn("deferred: ignoring abort on an already-terminal Deferred")
}

func warnRefusedOnAborted(d *Deferred, op string) {
	diagLogger.WithFields(logrus.Fields{
		"deferred": d.id,
		"op":       op,
	}).Warn("deferred: refusing to register a listener or broadcast on an Aborted Deferred")
}

func reportUnhandled(d *Deferred, err *UnhandledError) {
	diagLogger.WithFields(logrus.Fields{
		"deferred": d.id,
		"callback": err.Callback,
	}).Error("deferred: unhandled error reached a leaf of its subtree with no handler")
}
