// Package keybuild derives the deterministic key sequences that address
// captured artifacts inside a cassette. A sequence built during a record
// pass must be byte-for-byte reproducible during a later replay pass, or
// the artifact cannot be located.
package keybuild

import (
	"path/filepath"

	"github.com/fixtape/fixtape/internal/core"
)

// Capture kinds. Every file-capture strategy shares KindStoreFiles so a
// recording stays readable no matter which strategy replays it.
const (
	KindStoreFiles     = "StoreFiles"
	KindFunctionOutput = "FunctionOutput"
)

// Markers returns the fixed leading components identifying "a captured
// file, stored as a tar archive". They namespace file captures away
// from every other kind of recording in the same cassette.
func Markers() []core.Key {
	return []core.Key{core.S("X"), core.S("file"), core.S("tar")}
}

// TestID derives the test identifier from the active cassette's storage
// file: its base name, with no assumptions about directory or extension.
// This ties every artifact to the cassette session that recorded it.
func TestID(storageFile string) string {
	return filepath.Base(storageFile)
}

// Build produces the full key sequence for a file artifact: the fixed
// markers, the capture kind, the test identifier, then any
// discriminators (argument name or zero-based position) the strategy
// needs to keep call-site artifacts apart.
func Build(kind, testID string, extra ...core.Key) []core.Key {
	keys := append(Markers(), core.S(kind), core.S(testID))
	return append(keys, extra...)
}

// BuildOutput produces the key sequence under which a wrapped function's
// return value itself is recorded.
func BuildOutput(testID string) []core.Key {
	return []core.Key{core.S("X"), core.S("output"), core.S(KindFunctionOutput), core.S(testID)}
}
