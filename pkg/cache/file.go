package cache

import (
	"context"
	"encoding/binary"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Entry kinds. A key's kind is the segment before its hash, so
// "build:<hash>" and "v1.2.0:build:<hash>" are both builds.
const (
	KindBuild  = "build"
	KindRender = "render"
	kindOther  = "other"
)

// headerSize is the length of the expiry header in front of every entry:
// a big-endian Unix time in nanoseconds, zero for no expiry.
const headerSize = 8

// FileCache stores one file per entry below dir, grouped by kind and
// sharded by the first two hex digits of the key hash:
//
//	<dir>/build/3f/a81c….bin
//	<dir>/render/07/c2e9….bin
type FileCache struct {
	dir string
	now func() time.Time
}

// NewFileCache creates a file-based cache in dir, creating it if needed.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir, now: time.Now}, nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

// Get returns the entry for key. Expired and truncated entries are removed
// and reported as misses.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if len(raw) < headerSize || c.expired(raw[:headerSize]) {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return raw[headerSize:], true, nil
}

// Set stores data under key. The file is written to a temporary name and
// renamed so readers never see a partial entry.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	var expires int64
	if ttl > 0 {
		expires = c.now().Add(ttl).UnixNano()
	}
	buf := make([]byte, headerSize+len(data))
	binary.BigEndian.PutUint64(buf, uint64(expires))
	copy(buf[headerSize:], data)

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Delete removes key. A missing key is not an error.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Clear removes every entry of the given kinds, or of all kinds when none
// are given, and returns how many entries it removed.
func (c *FileCache) Clear(kinds ...string) (int, error) {
	count := 0
	err := c.walk(kinds, func(path string, _ fs.DirEntry) error {
		if os.Remove(path) == nil {
			count++
		}
		return nil
	})
	return count, err
}

// Prune removes expired entries and returns how many it removed. Only the
// header of each entry is read.
func (c *FileCache) Prune() (int, error) {
	count := 0
	err := c.walk(nil, func(path string, _ fs.DirEntry) error {
		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		var hdr [headerSize]byte
		_, err = f.ReadAt(hdr[:], 0)
		f.Close()
		if err != nil || c.expired(hdr[:]) {
			if os.Remove(path) == nil {
				count++
			}
		}
		return nil
	})
	return count, err
}

// Usage summarises the entries of one kind.
type Usage struct {
	Kind    string
	Entries int
	Bytes   int64
}

// Usage returns entry counts and sizes per kind, sorted by kind. Kinds
// without entries are omitted.
func (c *FileCache) Usage() ([]Usage, error) {
	byKind := make(map[string]*Usage)
	err := c.walk(nil, func(path string, d fs.DirEntry) error {
		info, err := d.Info()
		if err != nil {
			return nil
		}
		kind := filepath.Base(filepath.Dir(filepath.Dir(path)))
		u := byKind[kind]
		if u == nil {
			u = &Usage{Kind: kind}
			byKind[kind] = u
		}
		u.Entries++
		u.Bytes += info.Size()
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]Usage, 0, len(byKind))
	for _, u := range byKind {
		out = append(out, *u)
	}
	slices.SortFunc(out, func(a, b Usage) int { return strings.Compare(a.Kind, b.Kind) })
	return out, nil
}

// Close does nothing for file cache.
func (c *FileCache) Close() error {
	return nil
}

// walk calls fn for every entry file of the given kinds (all when empty).
// Temporary files and empty shard directories are cleaned up on the way.
func (c *FileCache) walk(kinds []string, fn func(path string, d fs.DirEntry) error) error {
	if len(kinds) == 0 {
		entries, err := os.ReadDir(c.dir)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.IsDir() {
				kinds = append(kinds, e.Name())
			}
		}
	}

	for _, kind := range kinds {
		root := filepath.Join(c.dir, kind)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return filepath.SkipDir
				}
				return err
			}
			if d.IsDir() {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".tmp-") {
				_ = os.Remove(path)
				return nil
			}
			return fn(path, d)
		})
		if err != nil {
			return err
		}
		removeEmptyShards(root)
	}
	return nil
}

func removeEmptyShards(root string) {
	shards, err := os.ReadDir(root)
	if err != nil {
		return
	}
	for _, s := range shards {
		if s.IsDir() {
			_ = os.Remove(filepath.Join(root, s.Name())) // fails unless empty
		}
	}
}

func (c *FileCache) expired(hdr []byte) bool {
	expires := int64(binary.BigEndian.Uint64(hdr))
	return expires != 0 && c.now().UnixNano() > expires
}

// path maps key to <dir>/<kind>/<h[:2]>/<h[2:]>.bin where h is the SHA-256
// of the whole key.
func (c *FileCache) path(key string) string {
	h := Hash([]byte(key))
	return filepath.Join(c.dir, keyKind(key), h[:2], h[2:]+".bin")
}

// keyKind returns the kind segment of key, or "other" when the key has
// none or it is not a plain lowercase word.
func keyKind(key string) string {
	parts := strings.Split(key, ":")
	if len(parts) < 2 {
		return kindOther
	}
	kind := parts[len(parts)-2]
	if kind == "" || strings.IndexFunc(kind, func(r rune) bool { return r < 'a' || r > 'z' }) >= 0 {
		return kindOther
	}
	return kind
}

// Ensure FileCache implements Cache.
var _ Cache = (*FileCache)(nil)
