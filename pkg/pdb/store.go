package pdb

import (
	"fmt"
	"maps"

	"github.com/rs/zerolog"
)

// Options configures a Store.
type Options struct {
	// Logger receives diagnostics. Nil disables logging.
	Logger *zerolog.Logger
}

func (o Options) logger() zerolog.Logger {
	if o.Logger == nil {
		return zerolog.Nop()
	}
	return *o.Logger
}

// Store owns the bytes of an export.pdb file and serves its pages.
//
// Thread Safety: a Store is immutable after Open and safe for concurrent
// reads. Pages returned by ReadPage are views into the Store's buffer and
// must not be used after Close.
type Store struct {
	data   []byte
	mmap   *MmapFile
	header Header
	tables []TableDirectoryEntry
	byType map[TableType]TableDirectoryEntry
	log    zerolog.Logger
}

// Open parses the header and table directory of an in-memory export.pdb.
func Open(data []byte, opts Options) (*Store, error) {
	header, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	if header.PageSize == 0 {
		return nil, ErrInvalidPageSize
	}

	log := opts.logger()
	if header.Signature != 0 {
		log.Warn().Uint32("signature", header.Signature).Msg("unexpected pdb signature")
	}

	tables := decodeTableDirectory(data, header.NumTables)
	s := &Store{
		data:   data,
		header: header,
		tables: tables,
		byType: make(map[TableType]TableDirectoryEntry, len(tables)),
		log:    log,
	}

	if len(s.tables) < int(header.NumTables) {
		log.Warn().
			Uint32("declared", header.NumTables).
			Int("read", len(s.tables)).
			Msg("table directory truncated")
	}

	pageCount := s.PageCount()
	for _, e := range s.tables {
		if _, dup := s.byType[e.Type]; dup {
			log.Warn().Stringer("table", e.Type).Msg("duplicate table directory entry ignored")
			continue
		}
		if e.FirstPage >= pageCount || e.LastPage >= pageCount {
			log.Warn().
				Stringer("table", e.Type).
				Uint32("first_page", e.FirstPage).
				Uint32("last_page", e.LastPage).
				Uint32("page_count", pageCount).
				Msg("table directory references pages beyond end of file")
		}
		s.byType[e.Type] = e
	}

	return s, nil
}

// OpenFile memory-maps path and opens it as a Store.
func OpenFile(path string, opts Options) (*Store, error) {
	m, err := OpenMmap(path)
	if err != nil {
		return nil, err
	}
	s, err := Open(m.Data(), opts)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s.mmap = m
	return s, nil
}

// Close releases the memory mapping, if any.
func (s *Store) Close() error {
	if s.mmap == nil {
		return nil
	}
	return s.mmap.Close()
}

// Header returns the parsed file header.
func (s *Store) Header() Header {
	return s.header
}

// Data returns the underlying file bytes.
func (s *Store) Data() []byte {
	return s.data
}

// Logger returns the logger the Store was opened with.
func (s *Store) Logger() zerolog.Logger {
	return s.log
}

// PageCount returns the number of whole pages in the buffer.
func (s *Store) PageCount() uint32 {
	return uint32(uint64(len(s.data)) / uint64(s.header.PageSize))
}

// ReadPage returns the bytes of page index, or false if the page extends
// past the end of the buffer. A missing page ends a traversal; it is not
// an error.
func (s *Store) ReadPage(index uint32) ([]byte, bool) {
	size := uint64(s.header.PageSize)
	start := uint64(index) * size
	end := start + size
	if end > uint64(len(s.data)) {
		return nil, false
	}
	return s.data[start:end:end], true
}

// Tables returns the directory entries in file order.
func (s *Store) Tables() []TableDirectoryEntry {
	out := make([]TableDirectoryEntry, len(s.tables))
	copy(out, s.tables)
	return out
}

// TableDirectory returns the directory keyed by table type. When a type
// appears more than once the first entry wins.
func (s *Store) TableDirectory() map[TableType]TableDirectoryEntry {
	return maps.Clone(s.byType)
}

// Table returns the directory entry for t.
func (s *Store) Table(t TableType) (TableDirectoryEntry, bool) {
	e, ok := s.byType[t]
	return e, ok
}
