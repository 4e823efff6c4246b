// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package layerstore

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"gopkg.in/yaml.v3"

	"github.com/holomush/worldviewer/internal/layer"
	"github.com/holomush/worldviewer/internal/xdg"
)

// FormatVersion is written to every layer file.
const FormatVersion = "1.0.0"

// supportedFormats is the range of file formats this build can read.
var supportedFormats = mustConstraint("^1")

func mustConstraint(c string) *semver.Constraints {
	sc, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return sc
}

// document is the file layout. Each generator's records stay an undecoded
// node until that generator is loaded, so one damaged entry neither hides
// nor destroys the others.
type document struct {
	Format     string               `yaml:"format"`
	Generators map[string]yaml.Node `yaml:"generators"`
}

// FileStore keeps all generators' layer records in one YAML file.
type FileStore struct {
	path    string
	backoff func() retry.Backoff
	logger  *slog.Logger
	mu      sync.Mutex
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithBackoff sets the retry policy for writes. fn is called once per save.
func WithBackoff(fn func() retry.Backoff) FileStoreOption {
	return func(s *FileStore) {
		if fn != nil {
			s.backoff = fn
		}
	}
}

// WithStoreLogger sets the logger.
func WithStoreLogger(l *slog.Logger) FileStoreOption {
	return func(s *FileStore) {
		if l != nil {
			s.logger = l
		}
	}
}

func defaultBackoff() retry.Backoff {
	return retry.WithMaxRetries(3, retry.NewExponential(50*time.Millisecond))
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string, opts ...FileStoreOption) *FileStore {
	s := &FileStore{
		path:    path,
		backoff: defaultBackoff,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context, id string) ([]layer.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, false, err
	}
	node, ok := doc.Generators[id]
	if !ok {
		return nil, false, nil
	}
	return layer.DecodeRecords(&node), true, nil
}

// Save implements Store. Entries of other generators are written back as
// read, damaged or not. A file that cannot be parsed at all is replaced.
func (s *FileStore) Save(ctx context.Context, id string, records []layer.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		s.logger.Warn("replacing unreadable layer file", "path", s.path, "error", err)
		doc = &document{}
	}
	if doc.Generators == nil {
		doc.Generators = make(map[string]yaml.Node)
	}
	if records == nil {
		records = []layer.Record{}
	}
	var node yaml.Node
	if err := node.Encode(records); err != nil {
		return oops.Code("STORE_ENCODE_FAILED").With("path", s.path).With("generator", id).Wrap(err)
	}
	doc.Generators[id] = node
	doc.Format = FormatVersion

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return oops.Code("STORE_ENCODE_FAILED").With("path", s.path).Wrap(err)
	}
	if err := enc.Close(); err != nil {
		return oops.Code("STORE_ENCODE_FAILED").With("path", s.path).Wrap(err)
	}

	err = retry.Do(ctx, s.backoff(), func(_ context.Context) error {
		if werr := writeAtomic(s.path, buf.Bytes()); werr != nil {
			s.logger.Debug("layer file write failed", "path", s.path, "error", werr)
			return retry.RetryableError(werr)
		}
		return nil
	})
	if err != nil {
		return oops.Code("STORE_WRITE_FAILED").With("path", s.path).With("generator", id).Wrap(err)
	}
	return nil
}

// IDs returns the generator ids stored in the file.
func (s *FileStore) IDs() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	return sortedKeys(doc.Generators), nil
}

func (s *FileStore) read() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &document{}, nil
		}
		return nil, oops.Code("STORE_READ_FAILED").With("path", s.path).Wrap(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &document{}, nil
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, oops.Code("STORE_DECODE_FAILED").With("path", s.path).Wrap(err)
	}

	v, err := semver.NewVersion(doc.Format)
	if err != nil {
		return nil, oops.Code("STORE_FORMAT_UNSUPPORTED").With("path", s.path).With("format", doc.Format).
			Errorf("layer file format %q is not a version: %w", doc.Format, err)
	}
	if !supportedFormats.Check(v) {
		return nil, oops.Code("STORE_FORMAT_UNSUPPORTED").With("path", s.path).With("format", doc.Format).
			Errorf("layer file format %s is not supported", doc.Format)
	}
	return &doc, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := xdg.EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".layers-*.yaml")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName) // no-op after a successful rename
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
