package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Local is the filesystem fallback: a JSON array index plus a directory of
// uploaded files served statically under /uploads. Index cycles are whole-file
// read-modify-write, serialized behind mu so concurrent fallback writes cannot
// lose updates.
type Local struct {
	indexFile  string
	uploadsDir string

	mu      sync.Mutex
	cache   []Record // nil when the index must be re-read from disk
	watcher *fsnotify.Watcher
}

// NewLocal prepares the data and uploads directories and watches the index
// file so edits made outside this process invalidate the cache.
func NewLocal(dataDir, uploadsDir string) (*Local, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(uploadsDir, 0755); err != nil {
		return nil, err
	}
	l := &Local{
		indexFile:  filepath.Join(dataDir, "submissions.json"),
		uploadsDir: uploadsDir,
	}
	if _, err := os.Stat(l.indexFile); os.IsNotExist(err) {
		if err := os.WriteFile(l.indexFile, []byte("[]"), 0644); err != nil {
			return nil, err
		}
	}
	if w, err := fsnotify.NewWatcher(); err == nil {
		if err := w.Add(dataDir); err == nil {
			l.watcher = w
			go l.watch()
		} else {
			w.Close()
		}
	}
	return l, nil
}

// watch drops the in-memory index copy whenever the file changes on disk.
func (l *Local) watch() {
	for {
		select {
		case ev, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) == l.indexFile && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				l.mu.Lock()
				l.cache = nil
				l.mu.Unlock()
			}
		case _, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the index watcher.
func (l *Local) Close() error {
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}

// readAll returns the current index. Caller must hold mu.
func (l *Local) readAll() ([]Record, error) {
	if l.cache != nil {
		return l.cache, nil
	}
	raw, err := os.ReadFile(l.indexFile)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, err
	}
	var list []Record
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("parse %s: %w", l.indexFile, err)
	}
	l.cache = list
	return list, nil
}

// writeAll rewrites the full index. Caller must hold mu.
func (l *Local) writeAll(list []Record) error {
	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(l.indexFile, raw, 0644); err != nil {
		l.cache = nil
		return err
	}
	l.cache = list
	return nil
}

// Create saves every file to the uploads directory, then appends the record
// to the index. URLs are relative paths resolved by the static file route.
func (l *Local) Create(ctx context.Context, rec Record, files []File) (Record, error) {
	urls := make([]string, 0, len(files))
	for _, f := range files {
		name := ObjectName(f.Name)
		if err := os.WriteFile(filepath.Join(l.uploadsDir, name), f.Data, 0644); err != nil {
			return Record{}, fmt.Errorf("save %s: %w", name, err)
		}
		urls = append(urls, "/uploads/"+name)
	}
	rec.Photos = urls

	l.mu.Lock()
	defer l.mu.Unlock()
	list, err := l.readAll()
	if err != nil {
		return Record{}, err
	}
	list = append(list, rec)
	if err := l.writeAll(list); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// List returns a snapshot of all records, newest-created first.
func (l *Local) List(ctx context.Context) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	list, err := l.readAll()
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(list))
	copy(out, list)
	// CreatedAt is RFC3339 UTC, so string order is creation order.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

// UpdateStatus replaces status and note in place and rewrites the index.
func (l *Local) UpdateStatus(ctx context.Context, id, status string, note *string) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	list, err := l.readAll()
	if err != nil {
		return Record{}, err
	}
	for i := range list {
		if list[i].ID != id {
			continue
		}
		list[i].Status = status
		list[i].Note = note
		if err := l.writeAll(list); err != nil {
			return Record{}, err
		}
		return list[i], nil
	}
	return Record{}, ErrNotFound
}
