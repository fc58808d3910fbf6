// Package datastore is an in-memory key-value store persisted as a single
// JSON file. Writes are atomic and a few timestamped backups are kept.
package datastore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var ErrClosed = errors.New("datastore is closed")

// Config holds configuration options for the DataStore.
type Config struct {
	FilePath         string
	AutoSaveInterval time.Duration
	MaxMemorySize    int64 // bytes, 0 = unlimited
	BackupCount      int
	Logger           zerolog.Logger
}

// DefaultConfig returns a default configuration.
func DefaultConfig(filePath string) *Config {
	return &Config{
		FilePath:         filePath,
		AutoSaveInterval: 10 * time.Second,
		MaxMemorySize:    100 * 1024 * 1024,
		BackupCount:      3,
		Logger:           zerolog.Nop(),
	}
}

type DataStore struct {
	mu           sync.RWMutex
	data         map[string]any
	memorySize   int64
	lastChecksum string
	closed       bool

	file   string
	config *Config
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a DataStore with the default configuration.
func New(filePath string) (*DataStore, error) {
	return NewWithConfig(DefaultConfig(filePath))
}

// NewWithConfig loads filePath, creating it when missing, and starts the
// auto-save loop.
func NewWithConfig(config *Config) (*DataStore, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if config.FilePath == "" {
		return nil, errors.New("file path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	store := &DataStore{
		data:   make(map[string]any),
		file:   config.FilePath,
		config: config,
	}

	_, err := os.Stat(config.FilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := store.writeFileAtomic([]byte("{}")); err != nil {
			return nil, fmt.Errorf("create empty JSON file: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("stat %s: %w", config.FilePath, err)
	default:
		if err := store.loadFromFile(); err != nil {
			return nil, fmt.Errorf("load %s: %w", config.FilePath, err)
		}
	}

	if config.AutoSaveInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		store.cancel = cancel
		store.wg.Add(1)
		go store.autoSave(ctx)
	}

	return store, nil
}

// Add stores value under key. It is rejected when the memory limit would be
// exceeded.
func (ds *DataStore) Add(key string, value any) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.closed {
		return ErrClosed
	}

	oldSize := estimateSize(ds.data[key])
	newSize := estimateSize(value)
	if ds.config.MaxMemorySize > 0 && ds.memorySize-oldSize+newSize > ds.config.MaxMemorySize {
		return fmt.Errorf("store %q: memory limit of %d bytes exceeded", key, ds.config.MaxMemorySize)
	}

	ds.memorySize += newSize - oldSize
	ds.data[key] = value
	return nil
}

// Get returns the value stored under key. Values loaded from disk are
// generic JSON (map[string]any and friends).
func (ds *DataStore) Get(key string) (any, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	if ds.closed {
		return nil, false
	}
	value, ok := ds.data[key]
	return value, ok
}

func (ds *DataStore) Delete(key string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.closed {
		return
	}
	if value, ok := ds.data[key]; ok {
		ds.memorySize -= estimateSize(value)
		delete(ds.data, key)
	}
}

// Keys returns all keys in sorted order.
func (ds *DataStore) Keys() []string {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	keys := make([]string, 0, len(ds.data))
	for k := range ds.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SaveToFile forces an immediate save.
func (ds *DataStore) SaveToFile() error {
	ds.mu.RLock()
	closed := ds.closed
	ds.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	return ds.saveToFile()
}

// Close stops auto-save and writes the final state.
func (ds *DataStore) Close() error {
	ds.mu.Lock()
	if ds.closed {
		ds.mu.Unlock()
		return nil
	}
	ds.closed = true
	ds.mu.Unlock()

	if ds.cancel != nil {
		ds.cancel()
	}
	ds.wg.Wait()

	return ds.saveToFile()
}

func (ds *DataStore) saveToFile() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	data, err := json.MarshalIndent(ds.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	checksum := checksum(data)
	if checksum == ds.lastChecksum {
		return nil
	}

	if ds.config.BackupCount > 0 {
		if err := ds.createBackup(); err != nil {
			ds.config.Logger.Warn().Err(err).Str("file", ds.file).Msg("Failed to create backup")
		}
	}

	if err := ds.writeFileAtomic(data); err != nil {
		return err
	}

	written, err := os.ReadFile(ds.file)
	if err != nil {
		return fmt.Errorf("read back %s: %w", ds.file, err)
	}
	if hash := sha256.Sum256(written); hex.EncodeToString(hash[:]) != checksum {
		return errors.New("file checksum mismatch after save")
	}

	ds.lastChecksum = checksum
	return nil
}

func (ds *DataStore) loadFromFile() error {
	raw, err := os.ReadFile(ds.file)
	if err != nil {
		return err
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if data == nil {
		data = make(map[string]any)
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.data = data
	ds.memorySize = 0
	for _, v := range data {
		ds.memorySize += estimateSize(v)
	}
	ds.lastChecksum = checksum(raw)
	return nil
}

// writeFileAtomic writes to a temporary file, syncs it and renames it over
// the store file.
func (ds *DataStore) writeFileAtomic(data []byte) error {
	tmp := ds.file + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp, ds.file); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (ds *DataStore) createBackup() error {
	src, err := os.Open(ds.file)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer src.Close()

	backup := fmt.Sprintf("%s.backup.%s", ds.file, time.Now().Format("20060102_150405"))
	dst, err := os.Create(backup)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}

	ds.cleanupOldBackups()
	return nil
}

// cleanupOldBackups keeps only the newest BackupCount backups.
func (ds *DataStore) cleanupOldBackups() {
	matches, err := filepath.Glob(ds.file + ".backup.*")
	if err != nil || len(matches) <= ds.config.BackupCount {
		return
	}

	type backup struct {
		path    string
		modTime time.Time
	}
	var files []backup
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil {
			files = append(files, backup{m, info.ModTime()})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	for i := 0; i < len(files)-ds.config.BackupCount; i++ {
		os.Remove(files[i].path)
	}
}

func (ds *DataStore) autoSave(ctx context.Context) {
	defer ds.wg.Done()

	ticker := time.NewTicker(ds.config.AutoSaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ds.saveToFile(); err != nil {
				ds.config.Logger.Error().Err(err).Str("file", ds.file).Msg("Auto-save failed")
			}
		}
	}
}

// Stats reports key count and approximate memory use.
func (ds *DataStore) Stats() map[string]any {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return map[string]any{
		"keys":        len(ds.data),
		"memory_size": ds.memorySize,
		"file_path":   ds.file,
		"last_save":   ds.lastChecksum != "",
	}
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// estimateSize approximates memory use by the JSON encoding length.
func estimateSize(value any) int64 {
	if value == nil {
		return 0
	}
	data, err := json.Marshal(value)
	if err != nil {
		return 0
	}
	return int64(len(data))
}
