package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/eunmann/rbx-export/pkg/library"
)

// WriteJSON encodes snap as a single JSON document.
func WriteJSON(w io.Writer, snap *library.Snapshot, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// WriteJSONFile writes snap to path, xz-compressed when compress is set.
func WriteJSONFile(path string, snap *library.Snapshot, compress, indent bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	bw := bufio.NewWriterSize(f, 1<<20)

	var w io.Writer = bw
	var xw *xz.Writer
	if compress {
		xw, err = xz.NewWriter(bw)
		if err != nil {
			f.Close()
			return fmt.Errorf("create xz writer: %w", err)
		}
		w = xw
	}

	if err := WriteJSON(w, snap, indent); err != nil {
		f.Close()
		return err
	}
	if xw != nil {
		if err := xw.Close(); err != nil {
			f.Close()
			return fmt.Errorf("close xz writer: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush json file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close json file: %w", err)
	}
	return nil
}

// ReadJSONFile decodes a snapshot written by WriteJSONFile. Files ending
// in .xz are decompressed.
func ReadJSONFile(path string) (*library.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open json file: %w", err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(strings.ToLower(path), ".xz") {
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create xz reader: %w", err)
		}
		r = xr
	}

	var snap library.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}
