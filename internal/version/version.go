/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version carries the build version.
package version

import "runtime/debug"

// Version is the autopilot release. Set at build time via ldflags:
//
//	-X github.com/friendsincode/grimnir_autopilot/internal/version.Version=X.Y.Z
var Version = "0.1.0"

// Commit returns the VCS revision embedded by the Go toolchain, or "".
func Commit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return ""
}
