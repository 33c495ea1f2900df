// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package tokenizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/bytedance/sonic"

	"github.com/go-a2a/rewardtrainer/internal/hub"
	"github.com/go-a2a/rewardtrainer/types"
)

// Files are the names of the tokenizer files a directory may hold.
var Files = []string{
	"tokenizer.json",
	"tokenizer_config.json",
	"special_tokens_map.json",
	"added_tokens.json",
	"vocab.json",
	"vocab.txt",
	"merges.txt",
	"spiece.model",
	"sentencepiece.bpe.model",
	"tokenizer.model",
}

// Config is the subset of tokenizer_config.json the loader reads.
type Config struct {
	TokenizerClass string `json:"tokenizer_class"`
	ModelMaxLength int64  `json:"model_max_length"`
	PadToken       any    `json:"pad_token"`
}

// FileTokenizer is a set of tokenizer files on the local file system.
type FileTokenizer struct {
	name   string
	dir    string
	files  []string
	config Config
}

var _ types.Tokenizer = (*FileTokenizer)(nil)

// Open reads the tokenizer files in dir.
func Open(name, dir string) (*FileTokenizer, error) {
	var files []string
	for _, f := range Files {
		data, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		if filepath.Ext(f) == ".json" && !sonic.ConfigStd.Valid(data) {
			return nil, fmt.Errorf("tokenizer %s: %s is not valid JSON", name, f)
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("tokenizer %s: no tokenizer files in %s", name, dir)
	}

	t := &FileTokenizer{
		name:  name,
		dir:   dir,
		files: files,
	}
	if slices.Contains(files, "tokenizer_config.json") {
		data, err := os.ReadFile(filepath.Join(dir, "tokenizer_config.json"))
		if err != nil {
			return nil, err
		}
		if err := sonic.ConfigStd.Unmarshal(data, &t.config); err != nil {
			return nil, fmt.Errorf("tokenizer %s: decode tokenizer_config.json: %w", name, err)
		}
	}
	return t, nil
}

// Name implements [types.Tokenizer].
func (t *FileTokenizer) Name() string { return t.name }

// Dir returns the directory the files are read from.
func (t *FileTokenizer) Dir() string { return t.dir }

// Files returns the names of the tokenizer files present.
func (t *FileTokenizer) Files() []string { return slices.Clone(t.files) }

// Config returns the parsed tokenizer_config.json, or the zero value.
func (t *FileTokenizer) Config() Config { return t.config }

// SavePretrained implements [types.Tokenizer].
func (t *FileTokenizer) SavePretrained(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, f := range t.files {
		if err := copyFile(filepath.Join(t.dir, f), filepath.Join(dir, f)); err != nil {
			return fmt.Errorf("copy %s: %w", f, err)
		}
	}
	return nil
}

// PushToHub implements [types.Tokenizer].
func (t *FileTokenizer) PushToHub(ctx context.Context, svc types.ArtifactService, repo string, private bool) error {
	tmp, err := os.MkdirTemp("", "rewardtrainer-tokenizer-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	if err := t.SavePretrained(ctx, tmp); err != nil {
		return err
	}
	return hub.Publish(ctx, svc, repo, tmp, private)
}

func copyFile(src, dst string) (err error) {
	if filepath.Clean(src) == filepath.Clean(dst) {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()

	_, err = io.Copy(out, in)
	return err
}

// FileLoader implements [types.TokenizerLoader] for a local directory or a hub repository.
type FileLoader struct {
	name     string
	hub      types.ArtifactService
	cacheDir string
	logger   *slog.Logger
}

var _ types.TokenizerLoader = (*FileLoader)(nil)

// LoaderOption configures a [FileLoader].
type LoaderOption func(*FileLoader)

// WithHub sets the artifact registry the tokenizer is downloaded from when name is not a directory.
func WithHub(svc types.ArtifactService) LoaderOption {
	return func(l *FileLoader) {
		l.hub = svc
	}
}

// WithCacheDir sets the directory downloaded tokenizers are kept in.
func WithCacheDir(dir string) LoaderOption {
	return func(l *FileLoader) {
		l.cacheDir = dir
	}
}

// WithLogger sets the logger for the loader.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *FileLoader) {
		l.logger = logger
	}
}

// NewFileLoader returns a loader for the tokenizer name, a directory or a hub repository.
func NewFileLoader(name string, opts ...LoaderOption) *FileLoader {
	l := &FileLoader{
		name:   name,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load implements [types.TokenizerLoader].
func (l *FileLoader) Load(ctx context.Context) (types.Tokenizer, error) {
	dir, err := hub.Resolve(ctx, l.name, l.hub, l.cacheDir)
	if err != nil {
		return nil, fmt.Errorf("tokenizer %s: %w", l.name, err)
	}
	t, err := Open(l.name, dir)
	if err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "Tokenizer loaded",
		slog.String("name", l.name),
		slog.String("class", t.config.TokenizerClass),
		slog.Int("files", len(t.files)),
	)
	return t, nil
}
