// Package storage implements the cassette: a keyed persistent store for
// recorded fixtures. A cassette is a single YAML document addressed by
// heterogeneous key sequences; it is opened in write mode when recording
// and read mode when replaying, and the mode is fixed for its lifetime.
package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fixtape/fixtape/internal/archive"
	"github.com/fixtape/fixtape/internal/core"
	"github.com/fixtape/fixtape/internal/metrics"
	"github.com/fixtape/fixtape/internal/storage/backend"
)

// Mode is the cassette's write/read state.
type Mode string

const (
	ModeWrite Mode = "write"
	ModeRead  Mode = "read"
)

// FormatVersion is bumped when the on-disk document layout changes.
const FormatVersion = 1

// Metadata describes one recording session.
type Metadata struct {
	Version     int       `yaml:"version"`
	SessionID   string    `yaml:"session_id"`
	CreatedAt   time.Time `yaml:"created_at"`
	Compression string    `yaml:"compression"`
}

type document struct {
	Metadata Metadata       `yaml:"metadata"`
	Entries  map[string]any `yaml:"entries"`
}

// Cassette is a keyed store of recorded values. Leaves are ordered
// lists: Store appends and Read pops from the front, so repeated calls
// under identical keys replay in recording order. Call sites whose
// arguments cannot disambiguate them otherwise rely on that ordering;
// interleaving such calls differently between record and replay is the
// caller's responsibility to avoid.
type Cassette struct {
	name    string
	mode    Mode
	modeSet bool
	backend backend.Backend
	log     *zap.Logger
	metrics *metrics.Registry

	doc   document
	dirty bool
}

// Option configures a Cassette at Open time.
type Option func(*Cassette)

// WithMode overrides the existence-based mode inference, mainly for
// tooling that rewrites existing cassettes.
func WithMode(m Mode) Option {
	return func(c *Cassette) {
		c.mode = m
		c.modeSet = true
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Cassette) { c.log = log }
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metrics.Registry) Option {
	return func(c *Cassette) { c.metrics = m }
}

// Open opens the cassette stored under name in b. A cassette that does
// not exist yet opens in write mode with fresh metadata; an existing
// one is loaded and opens in read mode.
func Open(ctx context.Context, b backend.Backend, name string, opts ...Option) (*Cassette, error) {
	c := &Cassette{
		name:    name,
		backend: b,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	exists, err := b.Exists(ctx, name)
	if err != nil {
		return nil, core.WrapError(core.ErrBackendFailed, err)
	}

	if exists {
		data, err := b.Read(ctx, name)
		if err != nil {
			return nil, core.WrapError(core.ErrBackendFailed, err)
		}
		if err := yaml.Unmarshal(data, &c.doc); err != nil {
			return nil, core.WrapError(core.ErrCorrupt, err)
		}
		if c.doc.Entries == nil {
			c.doc.Entries = map[string]any{}
		}
		if c.doc.Metadata.Compression != "" && c.doc.Metadata.Compression != archive.Compression {
			c.log.Warn("cassette was recorded with a different compression filter",
				zap.String("cassette", name),
				zap.String("recorded", c.doc.Metadata.Compression),
				zap.String("expected", archive.Compression),
			)
		}
		if !c.modeSet {
			c.mode = ModeRead
		}
	} else {
		c.doc = document{
			Metadata: Metadata{
				Version:     FormatVersion,
				SessionID:   uuid.NewString(),
				CreatedAt:   time.Now().UTC(),
				Compression: archive.Compression,
			},
			Entries: map[string]any{},
		}
		if !c.modeSet {
			c.mode = ModeWrite
		}
	}

	c.metrics.RecordCassetteOpened(string(c.mode))
	c.log.Debug("cassette opened",
		zap.String("cassette", name),
		zap.String("mode", string(c.mode)),
	)
	return c, nil
}

// StorageFile returns the cassette's storage name; the key builder uses
// its base name as the test identifier.
func (c *Cassette) StorageFile() string {
	return c.name
}

// IsWriteMode reports whether the cassette records rather than replays.
func (c *Cassette) IsWriteMode() bool {
	return c.mode == ModeWrite
}

// Mode returns the cassette mode.
func (c *Cassette) Mode() Mode {
	return c.mode
}

// Meta returns the session metadata.
func (c *Cassette) Meta() Metadata {
	return c.doc.Metadata
}

// StoreValue appends a YAML-serializable value to the list at keys,
// creating intermediate levels as needed. Fails outside write mode.
func (c *Cassette) StoreValue(keys []core.Key, value any) error {
	if c.mode != ModeWrite {
		c.metrics.RecordStoreOp("store", "error")
		return core.WrapError(core.ErrReadOnly,
			fmt.Errorf("store under %v rejected", core.KeyStrings(keys)))
	}
	if len(keys) == 0 {
		return fmt.Errorf("empty key sequence")
	}

	node := c.doc.Entries
	for _, k := range keys[:len(keys)-1] {
		child, ok := node[k.String()]
		if !ok {
			next := map[string]any{}
			node[k.String()] = next
			node = next
			continue
		}
		m, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("key %q already holds a value, not a subtree", k)
		}
		node = m
	}

	last := keys[len(keys)-1].String()
	list, _ := node[last].([]any)
	node[last] = append(list, value)
	c.dirty = true

	c.metrics.RecordStoreOp("store", "ok")
	c.log.Debug("stored value", zap.Strings("keys", core.KeyStrings(keys)))
	return nil
}

// ReadValue pops the oldest value stored at keys. Fails outside read
// mode; a missing or exhausted sequence yields ErrKeyNotFound.
func (c *Cassette) ReadValue(keys []core.Key) (any, error) {
	if c.mode != ModeRead {
		c.metrics.RecordStoreOp("read", "error")
		return nil, core.WrapError(core.ErrWriteOnly,
			fmt.Errorf("read under %v rejected", core.KeyStrings(keys)))
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("empty key sequence")
	}

	node := c.doc.Entries
	for _, k := range keys[:len(keys)-1] {
		child, ok := node[k.String()].(map[string]any)
		if !ok {
			return nil, c.miss(keys)
		}
		node = child
	}

	last := keys[len(keys)-1].String()
	list, ok := node[last].([]any)
	if !ok || len(list) == 0 {
		return nil, c.miss(keys)
	}
	value := list[0]
	node[last] = list[1:]

	c.metrics.RecordStoreOp("read", "ok")
	c.log.Debug("read value", zap.Strings("keys", core.KeyStrings(keys)))
	return value, nil
}

func (c *Cassette) miss(keys []core.Key) error {
	c.metrics.RecordStoreOp("read", "miss")
	return core.WrapError(core.ErrKeyNotFound,
		fmt.Errorf("keys %v", core.KeyStrings(keys)))
}

// Store appends a binary blob at keys. Blobs are base64-encoded so the
// cassette stays a readable YAML document.
func (c *Cassette) Store(keys []core.Key, value []byte) error {
	return c.StoreValue(keys, base64.StdEncoding.EncodeToString(value))
}

// Read pops the oldest binary blob stored at keys.
func (c *Cassette) Read(keys []core.Key) ([]byte, error) {
	v, err := c.ReadValue(keys)
	if err != nil {
		return nil, err
	}
	s, ok := v.(string)
	if !ok {
		return nil, core.WrapError(core.ErrCorrupt,
			fmt.Errorf("value under %v is not a blob", core.KeyStrings(keys)))
	}
	blob, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, core.WrapError(core.ErrCorrupt, err)
	}
	return blob, nil
}

// Entry describes one stored key sequence for tooling.
type Entry struct {
	Keys  []string
	Count int
	Bytes int
}

// Entries lists every stored key sequence, sorted by path.
func (c *Cassette) Entries() []Entry {
	var out []Entry
	walkEntries(c.doc.Entries, nil, &out)
	sort.Slice(out, func(i, j int) bool {
		return joinKeys(out[i].Keys) < joinKeys(out[j].Keys)
	})
	return out
}

func walkEntries(node map[string]any, path []string, out *[]Entry) {
	for k, v := range node {
		p := append(append([]string{}, path...), k)
		switch child := v.(type) {
		case map[string]any:
			walkEntries(child, p, out)
		case []any:
			e := Entry{Keys: p, Count: len(child)}
			for _, item := range child {
				e.Bytes += valueSize(item)
			}
			*out = append(*out, e)
		}
	}
}

func valueSize(v any) int {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	if decoded, err := base64.StdEncoding.DecodeString(s); err == nil {
		return len(decoded)
	}
	return len(s)
}

func joinKeys(keys []string) string {
	out := ""
	for _, k := range keys {
		out += k + "/"
	}
	return out
}

// Purge removes the subtree under prefix and returns the number of
// stored values dropped. Requires write mode.
func (c *Cassette) Purge(prefix []core.Key) (int, error) {
	if c.mode != ModeWrite {
		return 0, core.WrapError(core.ErrReadOnly,
			fmt.Errorf("purge of %v rejected", core.KeyStrings(prefix)))
	}
	if len(prefix) == 0 {
		return 0, fmt.Errorf("empty purge prefix")
	}

	node := c.doc.Entries
	for _, k := range prefix[:len(prefix)-1] {
		child, ok := node[k.String()].(map[string]any)
		if !ok {
			return 0, nil
		}
		node = child
	}

	last := prefix[len(prefix)-1].String()
	child, ok := node[last]
	if !ok {
		return 0, nil
	}
	delete(node, last)
	c.dirty = true
	return countValues(child), nil
}

func countValues(v any) int {
	switch node := v.(type) {
	case map[string]any:
		n := 0
		for _, child := range node {
			n += countValues(child)
		}
		return n
	case []any:
		return len(node)
	default:
		return 0
	}
}

// Reset drops every entry but keeps the session metadata. Requires
// write mode.
func (c *Cassette) Reset() error {
	if c.mode != ModeWrite {
		return core.WrapError(core.ErrReadOnly, fmt.Errorf("reset rejected"))
	}
	c.doc.Entries = map[string]any{}
	c.dirty = true
	return nil
}

// Flush serializes the cassette to its backend. Read-mode cassettes and
// unchanged documents are left untouched.
func (c *Cassette) Flush(ctx context.Context) error {
	if c.mode != ModeWrite || !c.dirty {
		return nil
	}
	data, err := yaml.Marshal(c.doc)
	if err != nil {
		return err
	}
	if err := c.backend.Write(ctx, c.name, data); err != nil {
		return core.WrapError(core.ErrBackendFailed, err)
	}
	c.dirty = false
	c.log.Debug("cassette flushed", zap.String("cassette", c.name), zap.Int("bytes", len(data)))
	return nil
}

// Close flushes a write-mode cassette.
func (c *Cassette) Close(ctx context.Context) error {
	return c.Flush(ctx)
}
