package repository

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"Quantra/internal/domain/models"
	applogger "Quantra/pkg/logger"
)

// FileModelStore persists one gob blob per symbol under a models directory
// and serves reads from an in-process cache. Writes replace the cached
// entry wholesale, so readers never observe a half-updated model.
type FileModelStore struct {
	dir string
	l   *applogger.Logger

	mu    sync.RWMutex
	cache map[string]*models.TrainedModel
}

// NewFileModelStore creates the store and its directory.
func NewFileModelStore(dir string, l *applogger.Logger) (*FileModelStore, error) {
	if dir == "" {
		dir = "models"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create models dir: %w", err)
	}
	return &FileModelStore{
		dir:   dir,
		l:     l,
		cache: make(map[string]*models.TrainedModel),
	}, nil
}

// Blob names are lowercased; cache keys stay uppercased.
func (s *FileModelStore) path(symbol string) string {
	return filepath.Join(s.dir, strings.ToLower(symbol)+"_model.blob")
}

// Save writes the blob to a temp file, renames it into place, then swaps
// the cache entry.
func (s *FileModelStore) Save(m *models.TrainedModel) error {
	if m == nil || m.Symbol == "" {
		return fmt.Errorf("model store: nil model or empty symbol")
	}
	key := strings.ToUpper(m.Symbol)
	final := s.path(key)
	tmp := final + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create blob: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(m); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode model: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace blob: %w", err)
	}

	s.mu.Lock()
	s.cache[key] = m
	s.mu.Unlock()

	if s.l != nil {
		s.l.Info("model saved",
			applogger.String("symbol", key),
			applogger.Int("train_bars", m.TrainBars),
		)
	}
	return nil
}

// Get returns the cached model, falling back to disk on a cold key.
func (s *FileModelStore) Get(symbol string) (*models.TrainedModel, error) {
	key := strings.ToUpper(symbol)

	s.mu.RLock()
	m, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return m, nil
	}

	m, err := s.loadBlob(s.path(key))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = m
	s.mu.Unlock()
	return m, nil
}

// List returns metadata for every cached model, sorted by symbol.
func (s *FileModelStore) List() []models.ModelInfo {
	s.mu.RLock()
	out := make([]models.ModelInfo, 0, len(s.cache))
	for _, m := range s.cache {
		out = append(out, m.Info())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Delete removes the blob and the cache entry. Deleting an untrained
// symbol reports ErrModelNotTrained.
func (s *FileModelStore) Delete(symbol string) error {
	key := strings.ToUpper(symbol)

	s.mu.Lock()
	_, cached := s.cache[key]
	delete(s.cache, key)
	s.mu.Unlock()

	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		if !cached {
			return models.ErrModelNotTrained
		}
		return nil
	}
	return err
}

// LoadAll warms the cache from every blob on disk and returns how many
// loaded. Corrupt blobs are skipped, not fatal.
func (s *FileModelStore) LoadAll() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read models dir: %w", err)
	}
	loaded := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), "_model.blob") {
			continue
		}
		m, err := s.loadBlob(filepath.Join(s.dir, e.Name()))
		if err != nil {
			if s.l != nil {
				s.l.Warn("skipping model blob",
					applogger.String("file", e.Name()),
					applogger.Error(err),
				)
			}
			continue
		}
		s.mu.Lock()
		s.cache[strings.ToUpper(m.Symbol)] = m
		s.mu.Unlock()
		loaded++
	}
	return loaded, nil
}

func (s *FileModelStore) loadBlob(path string) (*models.TrainedModel, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, models.ErrModelNotTrained
	}
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	defer f.Close()

	var m models.TrainedModel
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrModelCorrupt, filepath.Base(path))
	}
	if m.Symbol == "" || m.HMM.NStates == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrModelCorrupt, filepath.Base(path))
	}
	return &m, nil
}
