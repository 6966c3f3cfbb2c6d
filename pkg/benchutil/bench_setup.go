package benchutil

import (
	"os"
	"testing"
)

// SkipIfNoLongBench skips the benchmark if RBX_LONG_BENCH is not set.
// Use this to gate long-running benchmarks that shouldn't run by default.
func SkipIfNoLongBench(b *testing.B) {
	if os.Getenv("RBX_LONG_BENCH") == "" {
		b.Skip("set RBX_LONG_BENCH=1 to run scaling benchmark")
	}
}

// WriteExport generates an export with cfg under a fresh temp directory and
// returns the export root and the export.pdb path.
func WriteExport(tb testing.TB, cfg GeneratorConfig) (*Export, string, string) {
	tb.Helper()
	exp := NewGenerator(cfg).Generate()
	root := tb.TempDir()
	pdbPath, err := exp.WriteTo(root)
	if err != nil {
		tb.Fatalf("WriteTo() error = %v", err)
	}
	return exp, root, pdbPath
}
