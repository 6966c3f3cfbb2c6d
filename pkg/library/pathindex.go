package library

import (
	"fmt"
	"hash/fnv"
	"path"
	"strings"

	"github.com/relab/bbhash"
)

// PathIndex maps path keys to track positions through a minimal perfect
// hash. A fingerprint per slot rejects keys that were never added.
type PathIndex struct {
	mph          *bbhash.BBHash2
	fingerprints []uint64
	positions    []int
}

// NewPathIndex builds an index over keys, mapping keys[i] to positions[i].
// Empty keys are ignored; when a key repeats the first position wins.
func NewPathIndex(keys []string, positions []int) (*PathIndex, error) {
	if len(keys) != len(positions) {
		return nil, fmt.Errorf("path index: %d keys but %d positions", len(keys), len(positions))
	}

	seen := make(map[uint64]struct{}, len(keys))
	hashes := make([]uint64, 0, len(keys))
	uniq := make([]int, 0, len(keys))
	for i, k := range keys {
		if k == "" {
			continue
		}
		h := hashString(k)
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		hashes = append(hashes, h)
		uniq = append(uniq, i)
	}

	x := &PathIndex{}
	if len(hashes) == 0 {
		return x, nil
	}

	mph, err := bbhash.New(hashes, bbhash.Gamma(2.0))
	if err != nil {
		return nil, fmt.Errorf("build MPHF: %w", err)
	}

	// bbhash returns 1-indexed values
	x.mph = mph
	x.fingerprints = make([]uint64, len(hashes))
	x.positions = make([]int, len(hashes))
	for j, h := range hashes {
		slot := mph.Find(h)
		if slot == 0 {
			return nil, fmt.Errorf("MPHF lookup failed for %q", keys[uniq[j]])
		}
		x.fingerprints[slot-1] = computeFingerprint(keys[uniq[j]])
		x.positions[slot-1] = positions[uniq[j]]
	}
	return x, nil
}

// Lookup returns the position stored for key.
func (x *PathIndex) Lookup(key string) (int, bool) {
	if x.mph == nil || key == "" {
		return 0, false
	}
	slot := x.mph.Find(hashString(key))
	if slot == 0 || slot > uint64(len(x.fingerprints)) {
		return 0, false
	}
	if x.fingerprints[slot-1] != computeFingerprint(key) {
		return 0, false
	}
	return x.positions[slot-1], true
}

// Len returns the number of distinct keys.
func (x *PathIndex) Len() int {
	return len(x.positions)
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

func computeFingerprint(s string) uint64 {
	h := fnv.New64()
	h.Write([]byte(s))
	return h.Sum64()
}

// fileKey normalizes a track file path.
func fileKey(p string) string {
	if p == "" {
		return ""
	}
	return "f:" + slashPath(p)
}

// anlzKey normalizes a sidecar path so that the .DAT, .EXT and .2EX files
// of one track share a key.
func anlzKey(p string) string {
	if p == "" {
		return ""
	}
	p = slashPath(p)
	return "a:" + strings.ToUpper(strings.TrimSuffix(p, path.Ext(p)))
}

func slashPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func buildPathIndex(tracks []Track) (*PathIndex, error) {
	keys := make([]string, 0, 2*len(tracks))
	positions := make([]int, 0, 2*len(tracks))
	for i, t := range tracks {
		keys = append(keys, fileKey(t.FilePath), anlzKey(t.AnalyzePath))
		positions = append(positions, i, i)
	}
	return NewPathIndex(keys, positions)
}
