package wave

import (
	"sort"

	"github.com/wavepick/wavepick/pkg/model"
)

// ConcentrationWeights 物品集中度权重
// 权重 = 需要该物品的订单平均需求 × 存放该物品的通道平均供给，
// 没有订单或没有通道涉及的物品权重为 0
func ConcentrationWeights(p *model.Problem) []float64 {
	demand := make([]float64, p.ItemCount)
	orderHits := make([]int, p.ItemCount)
	for _, list := range p.Orders {
		for _, e := range list {
			demand[e.Item] += float64(e.Qty)
			orderHits[e.Item]++
		}
	}
	supply := make([]float64, p.ItemCount)
	aisleHits := make([]int, p.ItemCount)
	for _, list := range p.Aisles {
		for _, e := range list {
			supply[e.Item] += float64(e.Qty)
			aisleHits[e.Item]++
		}
	}

	weights := make([]float64, p.ItemCount)
	for k := range weights {
		if orderHits[k] == 0 || aisleHits[k] == 0 {
			continue
		}
		weights[k] = demand[k] / float64(orderHits[k]) * supply[k] / float64(aisleHits[k])
	}
	return weights
}

// NoClamp 不截断物品需求
const NoClamp = -1

// DemandWeights 以物品总需求作为权重，clamp 非负时截断到 clamp
func DemandWeights(p *model.Problem, clamp int) []float64 {
	totals := p.DemandTotals()
	weights := make([]float64, len(totals))
	for k, d := range totals {
		if clamp >= 0 && d > clamp {
			d = clamp
		}
		weights[k] = float64(d)
	}
	return weights
}

// ListScore 物品列表的加权得分 Σ weight × qty
func ListScore(list model.ItemList, weights []float64) float64 {
	score := 0.0
	for _, e := range list {
		score += weights[e.Item] * float64(e.Qty)
	}
	return score
}

// Scores 批量计算得分
func Scores(lists []model.ItemList, weights []float64) []float64 {
	scores := make([]float64, len(lists))
	for i, list := range lists {
		scores[i] = ListScore(list, weights)
	}
	return scores
}

// RankDescending 按得分降序排列下标，同分时编号小的在前
func RankDescending(scores []float64) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return scores[idx[i]] > scores[idx[j]]
	})
	return idx
}
