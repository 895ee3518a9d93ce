package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/zeebo/xxh3"
)

// Cache is the on-disk compile cache: one file per source template,
// holding the compiled artifact and the source's last-modified
// timestamp. Writes are last-writer-wins; the artifact is deterministic
// for a given source, so concurrent recompiles are tolerated.
type Cache struct {
	dir string
}

type cacheEntry struct {
	SourceMtime int64  `json:"source_mtime"`
	Artifact    string `json:"artifact"`
}

// NewCache creates the cache directory if needed and probes it for
// writability.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, Diagnostic{Kind: ErrCacheDirNotWritable, Message: err.Error()}
	}
	probe := filepath.Join(dir, ".slate-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return nil, Diagnostic{Kind: ErrCacheDirNotWritable, Message: err.Error()}
	}
	os.Remove(probe)
	return &Cache{dir: dir}, nil
}

// Get returns the cached artifact and the stored source mtime, if any.
func (c *Cache) Get(sourcePath string) (string, time.Time, bool) {
	data, err := os.ReadFile(filepath.Join(c.dir, cacheKey(sourcePath)))
	if err != nil {
		return "", time.Time{}, false
	}
	var e cacheEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return "", time.Time{}, false
	}
	return e.Artifact, time.Unix(0, e.SourceMtime), true
}

// Put stores the artifact together with the source mtime it was
// compiled from.
func (c *Cache) Put(sourcePath, artifact string, sourceMtime time.Time) error {
	data, err := json.Marshal(cacheEntry{
		SourceMtime: sourceMtime.UnixNano(),
		Artifact:    artifact,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, cacheKey(sourcePath)), data, 0644)
}

// Invalidate drops the cache entry for one source path.
func (c *Cache) Invalidate(sourcePath string) {
	os.Remove(filepath.Join(c.dir, cacheKey(sourcePath)))
}

// cacheKey derives the cache filename: the last 30 characters of the
// path with separators and spaces turned into dashes and anything
// outside [0-9a-zA-Z_\-.] stripped, then a fingerprint of the full path,
// then the original extension.
func cacheKey(path string) string {
	name := path
	if len(name) > 30 {
		name = name[len(name)-30:]
	}

	var sb strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '/' || c == '\\' || c == ' ':
			sb.WriteByte('-')
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z',
			c == '_', c == '-', c == '.':
			sb.WriteByte(c)
		}
	}

	fp := fmt.Sprintf("%016x", xxh3.HashString(path))
	return sb.String() + "-" + fp + filepath.Ext(path)
}
