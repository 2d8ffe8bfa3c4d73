package stats

import (
	"math"
	"sort"
)

// BalanceMetrics 通道负载均衡指标
type BalanceMetrics struct {
	LoadGini   float64 `json:"load_gini"`    // 拣货负载基尼系数 (0=完全均衡, 1=完全集中)
	LoadMean   float64 `json:"load_mean"`    // 通道平均拣货数
	LoadStdDev float64 `json:"load_std_dev"` // 拣货数标准差
	MaxLoad    float64 `json:"max_load"`
	MinLoad    float64 `json:"min_load"`
}

// Balance 根据各通道的分摊拣货数计算均衡指标
func Balance(usage []AisleUsage) *BalanceMetrics {
	loads := make([]float64, len(usage))
	for i, u := range usage {
		loads[i] = float64(u.Picked)
	}

	b := &BalanceMetrics{}
	b.LoadMean = mean(loads)
	b.LoadStdDev = math.Sqrt(variance(loads, b.LoadMean))
	b.MaxLoad, b.MinLoad = valueRange(loads)
	b.LoadGini = gini(loads)
	return b
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

func valueRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// gini 计算基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	g := 0.0
	for i, v := range sorted {
		g += (2*float64(i+1) - float64(n) - 1) * v
	}
	g = g / (float64(n) * sum)
	return math.Max(0, math.Min(1, g))
}
