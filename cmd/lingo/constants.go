package main

// Default limits for CLI commands.
const (
	DefaultListLimit      = 50
	DefaultConflictsLimit = 20
)

// Valid export formats.
var validFormats = []string{"json", "csv"}
