package anlz

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Sidecar extensions in merge order.
var sidecarExts = []string{".DAT", ".EXT", ".2EX"}

// Parse decodes the sidecar at path. A missing or unreadable file, or one
// that is not a PMAI container, decodes to Empty and is logged at debug.
func Parse(path string, log zerolog.Logger) *Data {
	return Decode(readSidecar(log, path))
}

// readSidecar reads and parses one sidecar, returning nil on failure.
func readSidecar(log zerolog.Logger, path string) *File {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug().Str("path", path).Msg("sidecar missing")
		} else {
			log.Debug().Err(err).Str("path", path).Msg("sidecar unreadable")
		}
		return nil
	}
	f, err := ParseFile(buf)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("sidecar unreadable")
		return nil
	}
	return f
}

// Decoder decodes track sidecars lazily and caches the merged result per
// track so each sidecar is read at most once. Only decoded data is kept;
// file buffers are released once a track is merged.
//
// Thread Safety: safe for concurrent use. Cached Data is shared between
// callers and must not be modified.
type Decoder struct {
	log    zerolog.Logger
	mu     sync.Mutex
	cache  map[string]*cacheEntry
	loaded atomic.Int64
}

type cacheEntry struct {
	once sync.Once
	data *Data
}

// NewDecoder creates a Decoder.
func NewDecoder(log zerolog.Logger) *Decoder {
	return &Decoder{log: log, cache: make(map[string]*cacheEntry)}
}

// ParseTrack decodes the sidecars of one track. analyzePath is the path
// stored in the track row, relative to the export root; its .EXT and .2EX
// siblings are merged in. An empty analyzePath decodes to Empty.
func (d *Decoder) ParseTrack(root, analyzePath string) *Data {
	if analyzePath == "" {
		return Empty()
	}
	path := SidecarPath(root, analyzePath)

	d.mu.Lock()
	e, ok := d.cache[path]
	if !ok {
		e = &cacheEntry{}
		d.cache[path] = e
	}
	d.mu.Unlock()

	e.once.Do(func() {
		files := make([]*File, 0, len(sidecarExts))
		for _, p := range SiblingPaths(path) {
			f := readSidecar(d.log, p)
			if f != nil {
				d.loaded.Add(1)
			}
			files = append(files, f)
		}
		e.data = Decode(files...)
	})
	return e.data
}

// FilesLoaded returns how many sidecars were read and parsed successfully.
func (d *Decoder) FilesLoaded() int {
	return int(d.loaded.Load())
}

// SidecarPath maps an analyze path as stored in a track row onto a file
// under root.
func SidecarPath(root, analyzePath string) string {
	return filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(analyzePath, "/")))
}

// SiblingPaths returns the .DAT, .EXT and .2EX variants of path, keeping
// the case of path's own extension.
func SiblingPaths(path string) []string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	lower := ext != "" && ext == strings.ToLower(ext)

	out := make([]string, len(sidecarExts))
	for i, e := range sidecarExts {
		if lower {
			e = strings.ToLower(e)
		}
		out[i] = stem + e
	}
	return out
}

// IsSidecar reports whether name has an ANLZ sidecar extension.
func IsSidecar(name string) bool {
	ext := strings.ToUpper(filepath.Ext(name))
	for _, e := range sidecarExts {
		if ext == e {
			return true
		}
	}
	return false
}
