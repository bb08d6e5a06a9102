package triage

import _ "embed"

// Version is the release version of the triage module.
//
//go:embed VERSION
var Version string
