// Package cluster 提供把物品数量向量分组的聚类器
package cluster

import (
	"math"
	"math/rand"
)

// Partitioner 聚类接口：为每个向量返回 [0, k) 内的分组编号
type Partitioner interface {
	Partition(vectors [][]float64, k int) []int
}

// KMeans k-means 聚类，使用 k-means++ 初始化
type KMeans struct {
	rng     *rand.Rand
	maxIter int
}

// NewKMeans 创建 k-means 聚类器，rng 决定初始中心
func NewKMeans(rng *rand.Rand, maxIter int) *KMeans {
	if maxIter <= 0 {
		maxIter = 50
	}
	return &KMeans{rng: rng, maxIter: maxIter}
}

// Partition 聚类，k 超过向量数时按向量数截断
func (km *KMeans) Partition(vectors [][]float64, k int) []int {
	n := len(vectors)
	labels := make([]int, n)
	if n == 0 || k <= 1 {
		return labels
	}
	if k > n {
		k = n
	}

	centers := km.seed(vectors, k)
	for iter := 0; iter < km.maxIter; iter++ {
		changed := false
		for i, v := range vectors {
			if best := nearest(v, centers); best != labels[i] {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}
		updateCenters(vectors, labels, centers)
	}
	return labels
}

// seed k-means++ 初始化：按到最近中心距离平方的概率选下一个中心
func (km *KMeans) seed(vectors [][]float64, k int) [][]float64 {
	centers := make([][]float64, 0, k)
	first := vectors[km.rng.Intn(len(vectors))]
	centers = append(centers, append([]float64(nil), first...))

	dist := make([]float64, len(vectors))
	for len(centers) < k {
		total := 0.0
		for i, v := range vectors {
			dist[i] = sqDist(v, centers[nearest(v, centers)])
			total += dist[i]
		}
		next := 0
		if total == 0 {
			next = km.rng.Intn(len(vectors))
		} else {
			r := km.rng.Float64() * total
			for i, d := range dist {
				r -= d
				if r < 0 {
					next = i
					break
				}
				next = i
			}
		}
		centers = append(centers, append([]float64(nil), vectors[next]...))
	}
	return centers
}

func updateCenters(vectors [][]float64, labels []int, centers [][]float64) {
	counts := make([]int, len(centers))
	sums := make([][]float64, len(centers))
	for c := range sums {
		sums[c] = make([]float64, len(centers[c]))
	}
	for i, v := range vectors {
		c := labels[i]
		counts[c]++
		for d, x := range v {
			sums[c][d] += x
		}
	}
	// 空簇保留原中心
	for c := range centers {
		if counts[c] == 0 {
			continue
		}
		for d := range centers[c] {
			centers[c][d] = sums[c][d] / float64(counts[c])
		}
	}
}

func nearest(v []float64, centers [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, center := range centers {
		if d := sqDist(v, center); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
