package library

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/eunmann/rbx-export/pkg/benchutil"
	"github.com/eunmann/rbx-export/pkg/pdb"
)

func BenchmarkRunStore(b *testing.B) {
	for _, n := range benchutil.BenchmarkSizes {
		b.Run(fmt.Sprintf("tracks=%d", n), func(b *testing.B) {
			exp := benchutil.NewGenerator(benchutil.DefaultConfig(n)).Generate()
			store, err := pdb.Open(exp.PDB, pdb.Options{})
			if err != nil {
				b.Fatal(err)
			}
			log := zerolog.Nop()
			cfg := DefaultConfig("bench")
			cfg.SkipAnlz = true
			cfg.Logger = &log

			b.SetBytes(int64(len(exp.PDB)))
			b.ResetTimer()
			for b.Loop() {
				if _, err := New(cfg).RunStore(context.Background(), store, ""); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRunWithAnlz(b *testing.B) {
	benchutil.SkipIfNoLongBench(b)

	_, root, _ := benchutil.WriteExport(b, benchutil.DefaultConfig(10000))
	log := zerolog.Nop()
	cfg := DefaultConfig(root)
	cfg.Logger = &log

	b.ResetTimer()
	for b.Loop() {
		if _, err := New(cfg).Run(context.Background()); err != nil {
			b.Fatal(err)
		}
	}
}
