package s3fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/eunmann/rbx-export/pkg/anlz"
	"github.com/eunmann/rbx-export/pkg/fileutil"
	"github.com/eunmann/rbx-export/pkg/logging"
)

var (
	// ErrNoExport is returned when the listed prefix holds no export.pdb.
	ErrNoExport = errors.New("no export.pdb under prefix")

	// ErrSizeMismatch is returned when a download's length differs from
	// the size in the listing, e.g. an export rewritten mid-fetch.
	ErrSizeMismatch = errors.New("downloaded size differs from listing")
)

// FetchConfig configures the export fetch operation.
type FetchConfig struct {
	// URI is s3://bucket/prefix, where prefix is the export root.
	URI string
	// DestDir is the local directory the export tree is written to.
	DestDir string
	// Concurrency is the number of parallel object downloads (default: 4).
	Concurrency int
	// SkipAnlz leaves out ANLZ sidecars.
	SkipAnlz bool
	// IncludeContents also fetches objects outside PIONEER/, such as the
	// audio files themselves.
	IncludeContents bool
	Downloader      DownloaderConfig
	Logger          zerolog.Logger
}

// FetchResult describes a fetched export tree.
type FetchResult struct {
	// Root is the local export root (DestDir).
	Root string
	// PDBPath is the local path of export.pdb.
	PDBPath string
	// LocalFiles are the downloaded files, in listing order.
	LocalFiles []string
	// Bytes is the total number of bytes downloaded.
	Bytes    int64
	Duration time.Duration
}

// Fetcher downloads an export tree.
type Fetcher struct {
	client *Client
	cfg    FetchConfig
}

// NewFetcher creates a new export fetcher.
func NewFetcher(client *Client, cfg FetchConfig) *Fetcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Fetcher{
		client: client,
		cfg:    cfg,
	}
}

// FetchExport downloads the export tree at uri into destDir using the
// default AWS configuration.
func FetchExport(ctx context.Context, uri, destDir string, log zerolog.Logger) (*FetchResult, error) {
	client, err := NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return NewFetcher(client, FetchConfig{URI: uri, DestDir: destDir, Logger: log}).Fetch(ctx)
}

type plannedFile struct {
	key   string
	local string
	size  int64
}

// Fetch lists the prefix and downloads every selected object.
func (f *Fetcher) Fetch(ctx context.Context) (*FetchResult, error) {
	start := time.Now()
	log := logging.WithPhase(f.cfg.Logger, "fetch")

	bucket, prefix, err := ParseS3URI(f.cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("parse export URI: %w", err)
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	objects, err := f.client.ListObjects(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}

	plan, pdbIdx, err := f.plan(prefix, objects)
	if err != nil {
		return nil, err
	}
	if pdbIdx < 0 {
		return nil, fmt.Errorf("%w: s3://%s/%s", ErrNoExport, bucket, prefix)
	}

	var planned int64
	for _, p := range plan {
		planned += p.size
	}
	log.Info().Int("files", len(plan)).Int64("bytes", planned).Str("uri", f.cfg.URI).Msg("fetch planned")

	if err := os.MkdirAll(f.cfg.DestDir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	dl := NewDownloader(f.client.api, f.cfg.Downloader)
	pt := logging.NewProgressTracker("fetch", int64(len(plan)), log)
	var total atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Concurrency)
	for _, p := range plan {
		g.Go(func() error {
			if err := os.MkdirAll(filepath.Dir(p.local), 0o755); err != nil {
				return fmt.Errorf("create dir for %s: %w", p.key, err)
			}
			res, err := dl.DownloadToFile(ctx, bucket, p.key, p.local)
			if err != nil {
				return err
			}
			if res.BytesDownloaded != p.size {
				return fmt.Errorf("%w: %s: got %d bytes, listed %d", ErrSizeMismatch, p.key, res.BytesDownloaded, p.size)
			}
			total.Add(res.BytesDownloaded)
			pt.RecordCompletion(res.Duration)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("download export files: %w", err)
	}

	result := &FetchResult{
		Root:     f.cfg.DestDir,
		PDBPath:  plan[pdbIdx].local,
		Bytes:    total.Load(),
		Duration: time.Since(start),
	}
	for _, p := range plan {
		result.LocalFiles = append(result.LocalFiles, p.local)
	}

	logging.PhaseComplete(log, "fetch", result.Duration).
		ProgressFromTracker(pt).
		Bytes("bytes", result.Bytes).
		Throughput(result.Bytes).
		Str("uri", f.cfg.URI).
		Log("export fetched")
	return result, nil
}

// plan selects the objects to download and maps them to local paths. It
// returns the index of export.pdb within the plan, or -1.
func (f *Fetcher) plan(prefix string, objects []Object) ([]plannedFile, int, error) {
	var plan []plannedFile
	pdbIdx := -1
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		rel := strings.TrimPrefix(obj.Key, prefix)
		if !f.cfg.IncludeContents && !underPioneer(rel) {
			continue
		}
		if f.cfg.SkipAnlz && anlz.IsSidecar(rel) {
			continue
		}
		local, err := localPath(f.cfg.DestDir, prefix, obj.Key)
		if err != nil {
			return nil, -1, err
		}
		if pdbIdx < 0 && strings.EqualFold(rel, fileutil.PDBRelPath) {
			pdbIdx = len(plan)
		}
		plan = append(plan, plannedFile{key: obj.Key, local: local, size: obj.Size})
	}
	return plan, pdbIdx, nil
}

func underPioneer(rel string) bool {
	first, _, found := strings.Cut(rel, "/")
	return found && strings.EqualFold(first, "PIONEER")
}
