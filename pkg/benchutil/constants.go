package benchutil

// Shared constants for tests and benchmarks across packages.

// BenchmarkSeed is the default seed for reproducible synthetic exports.
const BenchmarkSeed = 42

// BenchmarkSizes are the standard track counts for quick benchmark runs.
var BenchmarkSizes = []int{100, 1000, 10000}

// DefaultPageSize is the page size Rekordbox writes.
const DefaultPageSize = 4096

// Layout constants mirrored from the pdb format. They are duplicated here
// so the pdb package's own tests can import this package.
const (
	HeapStart      = 0x28
	RowGroupStride = 0x24
	FlagIndexPage  = 0x40
)

// Table type identifiers.
const (
	TableTracks           uint32 = 0
	TableGenres           uint32 = 1
	TableArtists          uint32 = 2
	TableAlbums           uint32 = 3
	TableLabels           uint32 = 4
	TableKeys             uint32 = 5
	TableColors           uint32 = 6
	TablePlaylistTree     uint32 = 7
	TablePlaylistEntries  uint32 = 8
	TableHistoryPlaylists uint32 = 11
	TableHistoryEntries   uint32 = 12
	TableArtwork          uint32 = 13
	TableColumns          uint32 = 16
)
