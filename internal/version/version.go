// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package version carries the build metadata stamped into the museum binary.
package version

// Info holds the version, commit and build timestamp injected via ldflags
// by the release build; all fields stay at their zero value in dev builds.
type Info struct {
	Version   string
	GitCommit string
	BuildTime string
}
