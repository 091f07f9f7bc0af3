package substrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	defaultFilePollInterval = 2 * time.Second
	fileExt                 = ".json"
)

// File stores each key as a file in a directory. It implements [Substrate]
// and [Notifier].
//
// Writes go to a temporary file in the same directory and are renamed into
// place, so readers in other processes never see a partial value. External
// changes are detected by polling: every interval the watcher re-reads the
// files it knows about and reports values that differ from the last value
// this instance wrote or observed.
type File struct {
	dir      string
	interval time.Duration

	mu   sync.Mutex
	seen map[string]string // last known value per key; absent means missing
}

// NewFile creates the directory if needed and returns a [File] substrate.
// A non-positive pollInterval uses the 2s default.
func NewFile(dir string, pollInterval time.Duration) (*File, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("file substrate: directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create substrate dir: %w", err)
	}
	if pollInterval <= 0 {
		pollInterval = defaultFilePollInterval
	}
	return &File{
		dir:      dir,
		interval: pollInterval,
		seen:     make(map[string]string),
	}, nil
}

// Dir returns the directory backing the substrate.
func (f *File) Dir() string {
	return f.dir
}

// Get implements [Substrate].
func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	value, ok, err := f.read(key)
	if err != nil {
		return "", false, err
	}

	f.mu.Lock()
	f.remember(key, value, ok)
	f.mu.Unlock()

	return value, ok, nil
}

// Set implements [Substrate].
func (f *File) Set(_ context.Context, key, value string) error {
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", key, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Rename(tmpName, f.path(key)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", key, err)
	}
	f.seen[key] = value
	return nil
}

// Remove implements [Substrate].
func (f *File) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	delete(f.seen, key)
	return nil
}

// Watch implements [Notifier]. Files present when Watch is called are
// treated as already known.
func (f *File) Watch(ctx context.Context) (<-chan Change, error) {
	if _, err := f.poll(); err != nil {
		return nil, err
	}

	ch := make(chan Change, watchBuffer)
	go func() {
		defer close(ch)

		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				changes, err := f.poll()
				if err != nil {
					continue
				}
				for _, c := range changes {
					select {
					case ch <- c:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return ch, nil
}

// poll compares the directory against the seen map, updates it, and returns
// the differences.
func (f *File) poll() ([]Change, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("read substrate dir: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	keys := make(map[string]struct{}, len(entries)+len(f.seen))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		keys[strings.TrimSuffix(name, fileExt)] = struct{}{}
	}
	for k := range f.seen {
		keys[k] = struct{}{}
	}

	var changes []Change
	for key := range keys {
		value, ok, err := f.read(key)
		if err != nil {
			continue
		}
		prev, known := f.seen[key]
		switch {
		case ok && (!known || prev != value):
			changes = append(changes, Change{Key: key, Value: value})
		case !ok && known:
			changes = append(changes, Change{Key: key, Removed: true})
		}
		f.remember(key, value, ok)
	}
	return changes, nil
}

func (f *File) read(key string) (string, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return string(data), true, nil
}

// remember records the observed state of key. Callers hold f.mu.
func (f *File) remember(key, value string, ok bool) {
	if ok {
		f.seen[key] = value
	} else {
		delete(f.seen, key)
	}
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, sanitizeKey(key)+fileExt)
}

// sanitizeKey maps a substrate key onto a safe file name.
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '_' || r == '-':
			return r
		default:
			return '_'
		}
	}, key)
}
