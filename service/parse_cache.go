package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"runtime"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ludo-technologies/pyrefminer/domain"
	"github.com/ludo-technologies/pyrefminer/internal/fragment"
	"github.com/ludo-technologies/pyrefminer/internal/parser"
)

// DefaultModelCacheSize is the number of parsed modules kept by a ModelCache
const DefaultModelCacheSize = 1024

// ModelCache keeps parsed module models keyed by side, module path and
// content hash. A long-running process (the MCP server) reuses models across
// requests; within one request the cache is only a lookup table.
// ModelCache is safe for concurrent use.
type ModelCache struct {
	cache *lru.Cache[string, *fragment.Module]
}

// NewModelCache creates a cache holding up to size modules
func NewModelCache(size int) (*ModelCache, error) {
	if size <= 0 {
		size = DefaultModelCacheSize
	}
	cache, err := lru.New[string, *fragment.Module](size)
	if err != nil {
		return nil, err
	}
	return &ModelCache{cache: cache}, nil
}

func cacheKey(side, rel string, content []byte) string {
	sum := sha256.Sum256(content)
	return side + ":" + rel + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached model of rel with the given content
func (c *ModelCache) Get(side, rel string, content []byte) (*fragment.Module, bool) {
	return c.cache.Get(cacheKey(side, rel, content))
}

// Add stores a parsed model
func (c *ModelCache) Add(side, rel string, content []byte, module *fragment.Module) {
	c.cache.Add(cacheKey(side, rel, content), module)
}

// Len returns the number of cached models
func (c *ModelCache) Len() int {
	return c.cache.Len()
}

// SourceFile is one input file with the module path it is compared under
type SourceFile struct {
	Path string // on disk
	Rel  string // slash-separated module path shared by both sides
}

// ParseFailure records a file that could not be read or parsed
type ParseFailure struct {
	File SourceFile
	Err  error
}

// ModelLoader reads and parses source files in parallel
type ModelLoader struct {
	reader      domain.FileReader
	cache       *ModelCache
	concurrency int
}

// NewModelLoader creates a loader; cache may be nil
func NewModelLoader(reader domain.FileReader, cache *ModelCache, concurrency int) *ModelLoader {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	return &ModelLoader{reader: reader, cache: cache, concurrency: concurrency}
}

// Load parses files and returns their models in input order. Files that fail
// to read or parse are returned as failures and left out of the models.
// onParsed, when set, is called once per file from the worker goroutines.
func (l *ModelLoader) Load(ctx context.Context, side string, files []SourceFile, onParsed func()) ([]*fragment.Module, []ParseFailure, error) {
	modules := make([]*fragment.Module, len(files))
	failures := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, file := range files {
		g.Go(func() error {
			if onParsed != nil {
				defer onParsed()
			}
			if err := gctx.Err(); err != nil {
				return err
			}

			module, err := l.loadOne(gctx, side, file)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				failures[i] = err
				return nil
			}
			modules[i] = module
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, domain.NewTimeoutError(err)
	}

	var loaded []*fragment.Module
	var failed []ParseFailure
	for i := range files {
		if failures[i] != nil {
			failed = append(failed, ParseFailure{File: files[i], Err: failures[i]})
			continue
		}
		loaded = append(loaded, modules[i])
	}
	return loaded, failed, nil
}

func (l *ModelLoader) loadOne(ctx context.Context, side string, file SourceFile) (*fragment.Module, error) {
	content, err := l.reader.ReadFile(file.Path)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		if module, ok := l.cache.Get(side, file.Rel, content); ok {
			return module, nil
		}
	}

	// ParseModule creates its own tree-sitter parser, so workers do not share one
	module, err := parser.ParseModule(ctx, content, file.Rel)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, domain.NewParseError(file.Path, err)
	}

	if l.cache != nil {
		l.cache.Add(side, file.Rel, content, module)
	}
	return module, nil
}
