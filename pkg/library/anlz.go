package library

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/eunmann/rbx-export/internal/logctx"
	"github.com/eunmann/rbx-export/pkg/anlz"
	"github.com/eunmann/rbx-export/pkg/logging"
)

// attachAnalysis decodes the sidecars of every track on a bounded worker
// pool. Each worker writes only its own slot so track order is unchanged.
func (r *Reader) attachAnalysis(ctx context.Context, log zerolog.Logger, dec *anlz.Decoder, root string, tracks []Track) error {
	pt := logging.NewProgressTracker("decode_anlz", int64(len(tracks)), log)
	every := int64(r.cfg.ProgressEvery)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.workers())

	for i := range tracks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t := &tracks[i]
			if t.AnalyzePath == "" {
				t.Anlz = anlz.Empty()
				pt.RecordSkip()
				return nil
			}

			start := time.Now()
			t.Anlz = dec.ParseTrack(root, t.AnalyzePath)
			if t.Anlz.IsEmpty() {
				tlog := logctx.FromContext(logctx.WithTrack(ctx, t.ID))
				tlog.Debug().Str("analyze_path", t.AnalyzePath).Msg("no usable analysis")
			}
			done := pt.RecordCompletion(time.Since(start))
			if every > 0 && done%every == 0 {
				pt.Report("decoding sidecars")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logging.PhaseComplete(log, "decode_anlz", pt.Elapsed()).
		ProgressFromTracker(pt).
		Count("files_loaded", int64(dec.FilesLoaded())).
		Log("sidecars decoded")
	return nil
}

// countOrphans counts sidecar files under root that no track references.
func countOrphans(ctx context.Context, root string, idx *PathIndex) (int, error) {
	orphans := 0
	for p := range anlz.WalkSidecars(root) {
		if err := ctx.Err(); err != nil {
			return orphans, err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			continue
		}
		if _, ok := idx.Lookup(anlzKey(filepath.ToSlash(rel))); !ok {
			orphans++
		}
	}
	return orphans, nil
}
