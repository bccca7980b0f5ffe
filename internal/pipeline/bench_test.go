package pipeline

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/breathsave/breathsave/internal/segment"
	"github.com/breathsave/breathsave/internal/source"
)

// writeSyntheticData writes a milestones file with n users to a temp dir.
func writeSyntheticData(b *testing.B, n int) string {
	b.Helper()
	dir := b.TempDir()
	rng := rand.New(rand.NewPCG(1, 2))
	var sb strings.Builder
	sb.WriteString("user_id,total_cigs_avoided,money_saved,total_cigs_smoked,total_days,points\n")
	for i := 0; i < n; i++ {
		avoided := rng.Float64() * 2500
		fmt.Fprintf(&sb, "u%d,%.0f,%.2f,%.0f,%d,%d\n",
			i, avoided, avoided*0.15+rng.NormFloat64()*5, rng.Float64()*400, rng.IntN(365), rng.IntN(5000))
	}
	if err := os.WriteFile(filepath.Join(dir, source.MilestonesFile), []byte(sb.String()), 0o600); err != nil {
		b.Fatal(err)
	}
	return dir
}

func BenchmarkLoad(b *testing.B) {
	dir := writeSyntheticData(b, 10000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Load(dir, nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAnalyze(b *testing.B) {
	ds, err := Load(writeSyntheticData(b, 5000), nil)
	if err != nil {
		b.Fatal(err)
	}
	seg := segment.New(segment.DefaultConfig())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a := Analyze(ds, seg)
		if a.SegmentErr != nil || a.PredictErr != nil {
			b.Fatal(a.SegmentErr, a.PredictErr)
		}
	}
}
