// Package capture wraps functions so the files or directories they
// produce or consume are recorded into a cassette on a record pass and
// restored from it on a replay pass.
//
// Three strategies decide which values are paths worth capturing:
//
//   - ReturnPath: the wrapped function's return value is itself a path.
//   - ScanArgs: best-effort, every string argument is a candidate path.
//   - DeclaredArgs: the caller names the path-carrying arguments; the
//     declaration is a contract and failures are never swallowed.
//
// Strategies are selected at composition time; all of them share the
// same key building and archive primitives, so a fixture recorded by
// one can be inspected and purged with the same tooling.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/fixtape/fixtape/internal/archive"
	"github.com/fixtape/fixtape/internal/core"
	"github.com/fixtape/fixtape/internal/keybuild"
	"github.com/fixtape/fixtape/internal/metrics"
)

// Args carries a wrapped call's arguments in a signature-independent
// form: positional values and named values.
type Args struct {
	Positional []any
	Named      map[string]any
}

// Func is the uniform call contract every strategy wraps.
type Func func(ctx context.Context, args Args) (any, error)

// Store is the persistent store collaborator each strategy relies on.
// *storage.Cassette implements it.
type Store interface {
	IsWriteMode() bool
	StorageFile() string
	Store(keys []core.Key, value []byte) error
	Read(keys []core.Key) ([]byte, error)
	StoreValue(keys []core.Key, value any) error
	ReadValue(keys []core.Key) (any, error)
}

// Recorder carries the capture dependencies explicitly instead of
// through process-wide globals: the cassette, a recording predicate, a
// logger and metrics. The predicate is consulted on every call, before
// any store interaction; while it reports false every wrapper is a pure
// pass-through.
type Recorder struct {
	store     Store
	recording func() bool
	log       *zap.Logger
	metrics   *metrics.Registry
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithRecording sets the recording predicate. The default records
// whenever a store is attached.
func WithRecording(pred func() bool) Option {
	return func(r *Recorder) { r.recording = pred }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Recorder) { r.log = log }
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metrics.Registry) Option {
	return func(r *Recorder) { r.metrics = m }
}

// New creates a Recorder bound to a store.
func New(store Store, opts ...Option) *Recorder {
	r := &Recorder{
		store: store,
		log:   zap.NewNop(),
	}
	r.recording = func() bool { return r.store != nil }
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) testID() string {
	return keybuild.TestID(r.store.StorageFile())
}

// copyArtifact packs the artifact at path into the cassette (write
// mode) or restores it from the cassette onto path (read mode), under
// the file-capture keys extended by extra.
func (r *Recorder) copyArtifact(path string, extra ...core.Key) error {
	keys := keybuild.Build(keybuild.KindStoreFiles, r.testID(), extra...)
	r.log.Debug("copy artifact",
		zap.String("path", path),
		zap.Strings("keys", core.KeyStrings(keys)),
		zap.Bool("write_mode", r.store.IsWriteMode()),
	)

	if r.store.IsWriteMode() {
		blob, err := archive.Pack(path)
		if err != nil {
			return err
		}
		if err := r.store.Store(keys, blob); err != nil {
			return err
		}
		r.metrics.RecordPack(len(blob))
		return nil
	}

	blob, err := r.store.Read(keys)
	if err != nil {
		return err
	}
	if err := archive.Unpack(blob, path); err != nil {
		return err
	}
	r.metrics.RecordRestore(len(blob))
	return nil
}

// Output wraps fn so its return value itself is recorded and replayed
// through the cassette. On replay fn is not invoked at all; the
// recorded value is returned in call order. Values must survive a YAML
// round trip. Errors are never recorded: a failing record pass
// propagates the error and stores nothing.
func (r *Recorder) Output(fn Func) Func {
	return func(ctx context.Context, args Args) (any, error) {
		if !r.recording() {
			return fn(ctx, args)
		}
		keys := keybuild.BuildOutput(r.testID())
		if r.store.IsWriteMode() {
			out, err := fn(ctx, args)
			if err != nil {
				return out, err
			}
			if err := r.store.StoreValue(keys, out); err != nil {
				return nil, err
			}
			return out, nil
		}
		return r.store.ReadValue(keys)
	}
}

// ReturnPath wraps fn whose return value is a filesystem path. On a
// record pass the artifact at that path is packed into the cassette; on
// replay the recorded return value is restored first and the artifact
// is then unpacked back onto it, so the caller observes the path fully
// materialized either way.
func (r *Recorder) ReturnPath(fn Func) Func {
	inner := r.Output(fn)
	return func(ctx context.Context, args Args) (any, error) {
		if !r.recording() {
			return fn(ctx, args)
		}
		out, err := inner(ctx, args)
		if err != nil {
			return out, err
		}
		path, ok := out.(string)
		if !ok {
			return nil, fmt.Errorf("return value %T is not a path", out)
		}
		if err := r.copyArtifact(path); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// ScanArgs wraps fn and treats every string argument as a candidate
// path, keyed by its zero-based position or its name. Best effort by
// design: on a record pass candidates that do not exist on disk are
// skipped, and on replay candidates with no recorded artifact are
// ignored. Any other failure propagates.
func (r *Recorder) ScanArgs(fn Func) Func {
	inner := r.Output(fn)
	return func(ctx context.Context, args Args) (any, error) {
		if !r.recording() {
			return fn(ctx, args)
		}
		out, err := inner(ctx, args)
		if err != nil {
			return out, err
		}
		for pos, arg := range args.Positional {
			s, ok := arg.(string)
			if !ok {
				continue
			}
			if err := r.scanOne(s, core.I(pos)); err != nil {
				return nil, err
			}
		}
		for _, name := range sortedNames(args.Named) {
			s, ok := args.Named[name].(string)
			if !ok {
				continue
			}
			if err := r.scanOne(s, core.S(name)); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
}

func (r *Recorder) scanOne(candidate string, key core.Key) error {
	if r.store.IsWriteMode() {
		if _, err := os.Stat(candidate); err != nil {
			// Not every string argument is a path; skip silently.
			return nil
		}
		return r.copyArtifact(candidate, key)
	}
	err := r.copyArtifact(candidate, key)
	if errors.Is(err, core.ErrKeyNotFound) {
		r.metrics.RecordMiss(true)
		r.log.Debug("no recorded artifact for candidate argument",
			zap.String("candidate", candidate),
			zap.String("key", key.String()),
		)
		return nil
	}
	return err
}

// DeclaredArgs returns a wrapper for fn whose params map names each
// path-carrying argument to its zero-based positional index. Named
// arguments take precedence over positions. Every declared artifact is
// captured unconditionally: a missing path, missing key or failed
// extraction propagates, because the declaration is a contract.
func (r *Recorder) DeclaredArgs(params map[string]int) func(Func) Func {
	return func(fn Func) Func {
		inner := r.Output(fn)
		return func(ctx context.Context, args Args) (any, error) {
			if !r.recording() {
				return fn(ctx, args)
			}
			out, err := inner(ctx, args)
			if err != nil {
				return out, err
			}
			for _, name := range sortedParamNames(params) {
				value, err := resolveArg(args, name, params[name])
				if err != nil {
					return nil, err
				}
				if err := r.copyArtifact(value, core.S(name)); err != nil {
					return nil, err
				}
			}
			return out, nil
		}
	}
}

func resolveArg(args Args, name string, pos int) (string, error) {
	v, ok := args.Named[name]
	if !ok {
		if pos < 0 || pos >= len(args.Positional) {
			return "", fmt.Errorf("declared argument %q not found at position %d", name, pos)
		}
		v = args.Positional[pos]
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("declared argument %q is %T, not a path", name, v)
	}
	return s, nil
}

func sortedNames(named map[string]any) []string {
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedParamNames(params map[string]int) []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
