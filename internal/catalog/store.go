// Package catalog persists and serves graph documents. Each graph is one
// file whose basename is the URL-safe base64 of the lowercase graph name
// with suffix ".gph"; the body is the JSON document under GZIP. The engine
// only ever sees in-memory documents loaded from here.
package catalog

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/valaphee/flow/internal/ctxlog"
	"github.com/valaphee/flow/internal/fsutil"
	"github.com/valaphee/flow/internal/graph"
)

// ErrNotFound reports an unknown graph name.
var ErrNotFound = errors.New("graph not found")

const fileSuffix = ".gph"

// Store is a directory-backed graph catalog with an in-memory index.
// Graph names are case-insensitive; lookups fold to lower case.
type Store struct {
	dir string

	mu     sync.RWMutex
	graphs map[string]*graph.Graph
}

// Open loads every graph file under dir, creating the directory if needed.
func Open(ctx context.Context, dir string) (*Store, error) {
	logger := ctxlog.FromContext(ctx)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	s := &Store{dir: dir, graphs: make(map[string]*graph.Graph)}

	files, err := fsutil.FindFilesByExtension(dir, fileSuffix)
	if err != nil {
		return nil, fmt.Errorf("scanning catalog directory: %w", err)
	}
	for _, file := range files {
		g, err := readGraphFile(file)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", file, err)
		}
		s.graphs[strings.ToLower(g.Name)] = g
		logger.Debug("Loaded graph document.", "name", g.Name, "file", filepath.Base(file))
	}
	logger.Info("Catalog opened.", "dir", dir, "graphs", len(s.graphs))
	return s, nil
}

// Lookup returns the graph registered under name.
func (s *Store) Lookup(name string) (*graph.Graph, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[strings.ToLower(name)]
	return g, ok
}

// List returns every graph ordered by name.
func (s *Store) List() []*graph.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*graph.Graph, 0, len(s.graphs))
	for _, g := range s.graphs {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Save writes the graph document to disk and indexes it, replacing any
// previous document of the same name.
func (s *Store) Save(g *graph.Graph) error {
	if g.Name == "" {
		return fmt.Errorf("graph has no name")
	}
	data, err := graph.Marshal(g)
	if err != nil {
		return fmt.Errorf("serializing graph %q: %w", g.Name, err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return fmt.Errorf("compressing graph %q: %w", g.Name, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compressing graph %q: %w", g.Name, err)
	}
	if err := os.WriteFile(s.fileName(g.Name), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing graph %q: %w", g.Name, err)
	}

	s.mu.Lock()
	s.graphs[strings.ToLower(g.Name)] = g
	s.mu.Unlock()
	return nil
}

// Delete removes the graph from the index and from disk.
func (s *Store) Delete(name string) error {
	key := strings.ToLower(name)

	s.mu.Lock()
	_, ok := s.graphs[key]
	if ok {
		delete(s.graphs, key)
	}
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	if err := os.Remove(s.fileName(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing graph %q: %w", name, err)
	}
	return nil
}

func (s *Store) fileName(name string) string {
	encoded := base64.URLEncoding.EncodeToString([]byte(strings.ToLower(name)))
	return filepath.Join(s.dir, encoded+fileSuffix)
}

func readGraphFile(file string) (*graph.Graph, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("opening compressed document: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompressing document: %w", err)
	}
	return graph.Unmarshal(data)
}
