package rbtree

import (
	"math/rand/v2"
	"testing"
)

func BenchmarkInsertSequential(b *testing.B) {
	tr := NewOrdered[int, int]()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = tr.Insert(i, i)
	}
}

func BenchmarkInsertRandom(b *testing.B) {
	rng := rand.New(rand.NewPCG(1, 1))
	keys := make([]int, b.N)
	for i := range keys {
		keys[i] = rng.Int()
	}
	tr := NewOrdered[int, int]()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = tr.Insert(keys[i], i)
	}
}

func BenchmarkGet(b *testing.B) {
	const n = 1 << 16
	tr := NewOrdered[int, int]()
	for i := 0; i < n; i++ {
		_ = tr.Insert(i, i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tr.Get(i & (n - 1))
	}
}

func BenchmarkIterate(b *testing.B) {
	const n = 1 << 14
	tr := NewOrdered[int, int]()
	for i := 0; i < n; i++ {
		_ = tr.Insert(i, i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for it := tr.Iter(); it.Valid(); it.Next() {
		}
	}
}
