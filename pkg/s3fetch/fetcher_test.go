package s3fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/eunmann/rbx-export/pkg/benchutil"
	"github.com/eunmann/rbx-export/pkg/library"
)

// fakeS3 serves objects from memory, honoring ranged GETs and paging
// listings pageSize keys at a time.
type fakeS3 struct {
	objects  map[string][]byte
	pageSize int
	// listed overrides the size reported by ListObjectsV2.
	listed map[string]int64

	mu   sync.Mutex
	gets int
}

func newFakeS3(objects map[string][]byte) *fakeS3 {
	return &fakeS3{objects: objects, pageSize: 2}
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	end := min(start+f.pageSize, len(keys))

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		size, ok := f.listed[k]
		if !ok {
			size = int64(len(f.objects[k]))
		}
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(size)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	f.gets++
	f.mu.Unlock()

	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}
	start, end := 0, len(data)-1
	if in.Range != nil {
		if _, err := fmt.Sscanf(*in.Range, "bytes=%d-%d", &start, &end); err != nil {
			return nil, err
		}
		end = min(end, len(data)-1)
	}
	body := data[start : end+1]
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
		ContentRange:  aws.String(fmt.Sprintf("bytes %d-%d/%d", start, end, len(data))),
	}, nil
}

func fetch(t *testing.T, api API, cfg FetchConfig) (*FetchResult, error) {
	t.Helper()
	if cfg.DestDir == "" {
		cfg.DestDir = t.TempDir()
	}
	cfg.Logger = zerolog.Nop()
	return NewFetcher(NewClientWithAPI(api), cfg).Fetch(context.Background())
}

func sampleObjects() map[string][]byte {
	return map[string][]byte{
		"usb/PIONEER/":                               {},
		"usb/PIONEER/rekordbox/export.pdb":           bytes.Repeat([]byte{1}, 4096),
		"usb/PIONEER/USBANLZ/P001/0001/ANLZ0000.DAT": []byte("PMAI-dat"),
		"usb/PIONEER/USBANLZ/P001/0001/ANLZ0000.EXT": []byte("PMAI-ext"),
		"usb/Contents/track.mp3":                     []byte("audio"),
		"usb2/PIONEER/rekordbox/export.pdb":          []byte("other export"),
	}
}

func TestFetch(t *testing.T) {
	objects := sampleObjects()
	dest := t.TempDir()

	res, err := fetch(t, newFakeS3(objects), FetchConfig{URI: "s3://bucket/usb", DestDir: dest})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	wantPDB := filepath.Join(dest, "PIONEER", "rekordbox", "export.pdb")
	if res.PDBPath != wantPDB || res.Root != dest {
		t.Errorf("PDBPath=%q Root=%q, want %q %q", res.PDBPath, res.Root, wantPDB, dest)
	}
	if len(res.LocalFiles) != 3 {
		t.Fatalf("LocalFiles = %v, want 3 files", res.LocalFiles)
	}
	if want := int64(4096 + 8 + 8); res.Bytes != want {
		t.Errorf("Bytes = %d, want %d", res.Bytes, want)
	}

	for key, want := range objects {
		rel, ok := strings.CutPrefix(key, "usb/PIONEER/")
		if !ok || rel == "" {
			continue
		}
		got, err := os.ReadFile(filepath.Join(dest, "PIONEER", filepath.FromSlash(rel)))
		if err != nil {
			t.Errorf("read %s: %v", rel, err)
			continue
		}
		if !bytes.Equal(got, want) {
			t.Errorf("%s content differs", rel)
		}
	}
	if _, err := os.Stat(filepath.Join(dest, "Contents")); !os.IsNotExist(err) {
		t.Errorf("Contents/ fetched without IncludeContents: %v", err)
	}
}

func TestFetchOptions(t *testing.T) {
	tests := []struct {
		name      string
		cfg       FetchConfig
		wantFiles int
	}{
		{"skip anlz", FetchConfig{URI: "s3://bucket/usb/", SkipAnlz: true}, 1},
		{"include contents", FetchConfig{URI: "s3://bucket/usb", IncludeContents: true}, 4},
		{"other prefix", FetchConfig{URI: "s3://bucket/usb2"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := fetch(t, newFakeS3(sampleObjects()), tt.cfg)
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if len(res.LocalFiles) != tt.wantFiles {
				t.Errorf("LocalFiles = %v, want %d files", res.LocalFiles, tt.wantFiles)
			}
		})
	}
}

func TestFetchNoExport(t *testing.T) {
	api := newFakeS3(map[string][]byte{"usb/PIONEER/USBANLZ/a.DAT": []byte("x")})
	if _, err := fetch(t, api, FetchConfig{URI: "s3://bucket/usb"}); !errors.Is(err, ErrNoExport) {
		t.Errorf("Fetch() error = %v, want ErrNoExport", err)
	}
	if api.gets != 0 {
		t.Errorf("%d objects downloaded before the export check", api.gets)
	}
}

func TestFetchUnsafeKey(t *testing.T) {
	objects := sampleObjects()
	objects["usb/PIONEER/../../escape.txt"] = []byte("x")
	if _, err := fetch(t, newFakeS3(objects), FetchConfig{URI: "s3://bucket/usb"}); !errors.Is(err, ErrUnsafeKey) {
		t.Errorf("Fetch() error = %v, want ErrUnsafeKey", err)
	}
}

func TestFetchSizeMismatch(t *testing.T) {
	api := newFakeS3(sampleObjects())
	api.listed = map[string]int64{"usb/PIONEER/rekordbox/export.pdb": 8192}
	if _, err := fetch(t, api, FetchConfig{URI: "s3://bucket/usb"}); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("Fetch() error = %v, want ErrSizeMismatch", err)
	}
}

func TestFetchBadURI(t *testing.T) {
	if _, err := fetch(t, newFakeS3(nil), FetchConfig{URI: "/local/usb"}); err == nil {
		t.Error("expected error for non-s3 URI")
	}
}

func TestListObjectsPaginates(t *testing.T) {
	api := newFakeS3(sampleObjects())
	objs, err := NewClientWithAPI(api).ListObjects(context.Background(), "bucket", "usb/")
	if err != nil {
		t.Fatalf("ListObjects() error = %v", err)
	}
	if len(objs) != 5 {
		t.Errorf("got %d objects, want 5 across pages", len(objs))
	}
}

func TestFetchedExportIsReadable(t *testing.T) {
	exp := benchutil.NewGenerator(benchutil.DefaultConfig(5)).Generate()
	objects := map[string][]byte{"lib/" + benchutil.PDBRelPath: exp.PDB}
	for p, data := range exp.Sidecars {
		objects["lib"+p] = data
	}

	dest := t.TempDir()
	if _, err := fetch(t, newFakeS3(objects), FetchConfig{URI: "s3://bucket/lib", DestDir: dest}); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	log := zerolog.Nop()
	cfg := library.DefaultConfig(dest)
	cfg.Logger = &log
	r := library.New(cfg)
	snap, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(snap.Tracks) != 5 || r.Stats().AnlzFilesProcessed != 10 {
		t.Errorf("tracks=%d anlz=%d, want 5/10", len(snap.Tracks), r.Stats().AnlzFilesProcessed)
	}
}

func TestDefaultDownloaderConfig(t *testing.T) {
	cfg := DefaultDownloaderConfig()

	if cfg.Concurrency < 4 || cfg.Concurrency > 16 {
		t.Errorf("Concurrency = %d, want 4..16", cfg.Concurrency)
	}
	if cfg.PartSize != 16*1024*1024 {
		t.Errorf("PartSize = %d, want 16MB", cfg.PartSize)
	}

	d := NewDownloader(newFakeS3(nil), DownloaderConfig{Concurrency: 8})
	if got := d.Config(); got.Concurrency != 8 || got.PartSize != cfg.PartSize {
		t.Errorf("Config() = %+v, want concurrency 8 and default part size", got)
	}
}

func TestDownloadToFileMissingKey(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.bin")
	d := NewDownloader(newFakeS3(map[string][]byte{}), DownloaderConfig{})
	if _, err := d.DownloadToFile(context.Background(), "bucket", "nope", dest); err == nil {
		t.Fatal("expected error for missing key")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("partial file left behind: %v", err)
	}
}

func TestDownloadToFileMultipart(t *testing.T) {
	data := make([]byte, 3*1024*1024+17)
	for i := range data {
		data[i] = byte(i % 251)
	}
	dest := filepath.Join(t.TempDir(), "big.bin")
	d := NewDownloader(newFakeS3(map[string][]byte{"big": data}), DownloaderConfig{Concurrency: 2, PartSize: 1024 * 1024})

	res, err := d.DownloadToFile(context.Background(), "bucket", "big", dest)
	if err != nil {
		t.Fatalf("DownloadToFile() error = %v", err)
	}
	if res.BytesDownloaded != int64(len(data)) {
		t.Errorf("BytesDownloaded = %d, want %d", res.BytesDownloaded, len(data))
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Error("downloaded content differs")
	}
}
