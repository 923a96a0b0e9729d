package spec

import "fmt"

const (
	// === IDENTITY & VERSIONING ===
	AppName      = "drmeter"
	VersionMajor = 0
	VersionMinor = 3
	VersionPatch = 2

	// === DR MEASUREMENT CONVENTION ===
	BlockSeconds      = 3.0
	UpmostBlocksRatio = 0.2
	NthHighestPeak    = 2

	// === OPUS (libopusfile always decodes at 48kHz) ===
	OpusSampleRate = 48000

	// === REPORTING ===
	OutputRoundingDecimals = 2
	LogFileName            = "dr.txt"
	ConfigFileName         = "drmeter.yaml"
	ConfigEnv              = "DRMETER_CONFIG"
)

// Version returns the semantic version string.
func Version() string {
	return fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)
}
