package cluster

import (
	"math/rand"
	"testing"
)

func TestKMeans_SeparatesGroups(t *testing.T) {
	vectors := [][]float64{
		{10, 0}, {11, 0}, {9, 1},
		{0, 10}, {1, 11}, {0, 9},
	}
	labels := NewKMeans(rand.New(rand.NewSource(1)), 0).Partition(vectors, 2)

	if labels[0] != labels[1] || labels[1] != labels[2] {
		t.Errorf("first group split: %v", labels)
	}
	if labels[3] != labels[4] || labels[4] != labels[5] {
		t.Errorf("second group split: %v", labels)
	}
	if labels[0] == labels[3] {
		t.Errorf("groups merged: %v", labels)
	}
}

func TestKMeans_EdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		vectors [][]float64
		k       int
		maxID   int
	}{
		{"空输入", nil, 3, -1},
		{"单簇", [][]float64{{1}, {2}, {3}}, 1, 0},
		{"k 大于向量数", [][]float64{{1}, {5}}, 4, 1},
		{"全部相同", [][]float64{{2, 2}, {2, 2}, {2, 2}}, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels := NewKMeans(rand.New(rand.NewSource(3)), 10).Partition(tt.vectors, tt.k)
			if len(labels) != len(tt.vectors) {
				t.Fatalf("len(labels) = %d, want %d", len(labels), len(tt.vectors))
			}
			for _, l := range labels {
				if l < 0 || l > tt.maxID {
					t.Errorf("label %d out of range [0, %d]", l, tt.maxID)
				}
			}
		})
	}
}

func TestKMeans_Reproducible(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	vectors := make([][]float64, 40)
	for i := range vectors {
		vectors[i] = []float64{rng.Float64() * 10, rng.Float64() * 10, rng.Float64() * 10}
	}

	a := NewKMeans(rand.New(rand.NewSource(8)), 0).Partition(vectors, 4)
	b := NewKMeans(rand.New(rand.NewSource(8)), 0).Partition(vectors, 4)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("labels differ at %d: %v vs %v", i, a, b)
		}
	}
}
