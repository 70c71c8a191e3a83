package posterior

import (
	"math/rand"
	"testing"

	"github.com/cwbudde/algo-dlag/dlag/model"
)

func benchmarkInfer(b *testing.B, tLen int, computeLL bool) {
	rng := rand.New(rand.NewSource(99))
	p := twoGroupParams()
	seqs := []*model.Sequence{
		randomSeq(rng, 0, 4, tLen),
		randomSeq(rng, 1, 4, tLen),
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Infer(p, seqs, computeLL); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkInfer128(b *testing.B)       { benchmarkInfer(b, 128, false) }
func BenchmarkInfer128WithLL(b *testing.B) { benchmarkInfer(b, 128, true) }
func BenchmarkInfer1024(b *testing.B)      { benchmarkInfer(b, 1024, false) }
