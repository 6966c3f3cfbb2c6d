package library

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/zeebo/blake3"

	"github.com/eunmann/rbx-export/internal/logctx"
	"github.com/eunmann/rbx-export/pkg/anlz"
	"github.com/eunmann/rbx-export/pkg/fileutil"
	"github.com/eunmann/rbx-export/pkg/logging"
	"github.com/eunmann/rbx-export/pkg/pdb"
	"github.com/eunmann/rbx-export/pkg/resolve"
)

// Reader builds snapshots of an export.
//
// Thread Safety: Run may be called more than once; Stats reports the most
// recent completed run.
type Reader struct {
	cfg Config

	mu    sync.Mutex
	stats Stats
}

// New creates a Reader.
func New(cfg Config) *Reader {
	return &Reader{cfg: cfg}
}

// Stats returns the statistics of the last completed Run.
func (r *Reader) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Reader) logger(ctx context.Context) zerolog.Logger {
	if r.cfg.Logger != nil {
		return *r.cfg.Logger
	}
	return logctx.FromContext(ctx)
}

// Run locates and memory-maps export.pdb, decodes it and returns the
// snapshot. A missing export is pdb.ErrNotFound; a header under 24 bytes
// or a zero page size is fatal as well. Everything else is tolerated and
// shows up in Stats and the snapshot metadata.
func (r *Reader) Run(ctx context.Context) (*Snapshot, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	pdbPath, root, err := fileutil.LocateExport(r.cfg.Path)
	if err != nil {
		if errors.Is(err, fileutil.ErrExportNotFound) {
			return nil, fmt.Errorf("%w: %w", pdb.ErrNotFound, err)
		}
		return nil, err
	}

	log := r.logger(ctx)
	store, err := pdb.OpenFile(pdbPath, pdb.Options{Logger: &log})
	if err != nil {
		return nil, err
	}
	defer store.Close()

	snap, err := r.RunStore(ctx, store, root)
	if err != nil {
		return nil, err
	}
	snap.Metadata.Source = pdbPath
	return snap, nil
}

// RunStore decodes an already opened store. root is the export root used
// to find ANLZ sidecars; an empty root disables sidecar decoding.
func (r *Reader) RunStore(ctx context.Context, store *pdb.Store, root string) (*Snapshot, error) {
	start := time.Now()
	runID := uuid.NewString()
	ctx = logctx.WithRunID(logctx.WithLogger(ctx, r.logger(ctx)), runID)
	log := logctx.FromContext(ctx)

	data := store.Data()
	sum := blake3.Sum256(data)
	snap := &Snapshot{
		Metadata: Metadata{
			RunID:       runID,
			Root:        root,
			PDBSize:     int64(len(data)),
			PDBHash:     hex.EncodeToString(sum[:]),
			Header:      store.Header(),
			GeneratedAt: start.UTC(),
		},
	}
	walks := make(map[pdb.TableType]pdb.Diagnostics)
	record := func(d pdb.Diagnostics) {
		if _, ok := walks[d.Table]; !ok {
			walks[d.Table] = d
		}
	}

	phaseStart := time.Now()
	res := resolve.Build(store, log)
	for _, d := range res.Diagnostics() {
		record(d)
	}
	trackRes := pdb.DecodeTable(store, pdb.TrackSchema)
	record(trackRes.Diagnostics)

	snap.Tracks = make([]Track, len(trackRes.Records))
	for i, t := range trackRes.Records {
		snap.Tracks[i] = Track{Track: res.Denormalize(t)}
	}
	logging.PhaseComplete(log, "decode_tracks", time.Since(phaseStart)).
		Count("tracks", int64(len(snap.Tracks))).
		Int("rows_rejected", trackRes.Diagnostics.RowsRejected()).
		Log("tracks decoded")

	phaseStart = time.Now()
	treeRes := pdb.DecodeTable(store, pdb.PlaylistNodeSchema)
	entryRes := pdb.DecodeTable(store, pdb.PlaylistEntrySchema)
	histRes := pdb.DecodeTable(store, pdb.HistoryPlaylistSchema)
	histEntryRes := pdb.DecodeTable(store, pdb.HistoryEntrySchema)
	colRes := pdb.DecodeTable(store, pdb.ColumnSchema)
	for _, d := range []pdb.Diagnostics{treeRes.Diagnostics, entryRes.Diagnostics, histRes.Diagnostics, histEntryRes.Diagnostics, colRes.Diagnostics} {
		record(d)
	}

	tree := buildPlaylistTree(treeRes.Records, entryRes.Records)
	snap.Playlists = tree.nodes
	if snap.Playlists == nil {
		snap.Playlists = []Playlist{}
	}
	snap.History = buildHistory(histRes.Records, histEntryRes.Records)
	snap.Columns = colRes.Records
	if snap.Columns == nil {
		snap.Columns = []pdb.Column{}
	}
	if tree.orphaned > 0 {
		log.Warn().Int("playlists", tree.orphaned).Msg("playlists unreachable from the root were dropped")
	}
	logging.PhaseComplete(log, "decode_playlists", time.Since(phaseStart)).
		Count("playlists", int64(len(snap.Playlists))).
		Count("history_sessions", int64(len(snap.History))).
		Log("playlists decoded")

	idx, err := buildPathIndex(snap.Tracks)
	if err != nil {
		return nil, fmt.Errorf("build path index: %w", err)
	}
	snap.paths = idx

	stats := Stats{
		TotalTracks:      len(snap.Tracks),
		ValidPlaylists:   len(snap.Playlists),
		CorruptPlaylists: treeRes.Diagnostics.RowsRejected() + tree.orphaned,
	}
	stats.TotalPlaylists = stats.ValidPlaylists + stats.CorruptPlaylists

	switch {
	case r.cfg.SkipAnlz:
	case root == "":
		log.Debug().Msg("no export root, sidecar decoding skipped")
	default:
		dec := anlz.NewDecoder(log)
		if err := r.attachAnalysis(ctx, log, dec, root, snap.Tracks); err != nil {
			return nil, fmt.Errorf("decode sidecars: %w", err)
		}
		stats.AnlzFilesProcessed = dec.FilesLoaded()
		orphans, err := countOrphans(ctx, root, idx)
		if err != nil {
			return nil, fmt.Errorf("scan sidecars: %w", err)
		}
		stats.OrphanSidecars = orphans
	}

	for _, entry := range store.Tables() {
		info := TableInfo{Name: entry.Type.String(), Entry: entry, Known: entry.Type.Known()}
		if d, ok := walks[entry.Type]; ok {
			info.Walk = &d
		}
		snap.Metadata.Tables = append(snap.Metadata.Tables, info)
	}
	for _, d := range walks {
		stats.RowsRejected += d.RowsRejected()
	}

	stats.ProcessingTime = time.Since(start)
	stats.ProcessingSeconds = stats.ProcessingTime.Seconds()
	snap.Metadata.Stats = stats

	r.mu.Lock()
	r.stats = stats
	r.mu.Unlock()

	logging.PhaseComplete(log, "snapshot", stats.ProcessingTime).
		Count("tracks", int64(stats.TotalTracks)).
		Int("valid_playlists", stats.ValidPlaylists).
		Int("corrupt_playlists", stats.CorruptPlaylists).
		Int("anlz_files", stats.AnlzFilesProcessed).
		Int("orphan_sidecars", stats.OrphanSidecars).
		Bytes("pdb_size", snap.Metadata.PDBSize).
		Log("snapshot complete")
	return snap, nil
}
