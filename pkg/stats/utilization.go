// Package stats 提供波次统计分析功能
package stats

import (
	"sort"

	"github.com/wavepick/wavepick/pkg/model"
)

// WaveMetrics 波次指标
type WaveMetrics struct {
	Orders     int `json:"orders"`      // 选中订单数
	Aisles     int `json:"aisles"`      // 选中通道数
	ItemTotal  int `json:"item_total"`  // 拣货物品数
	SupplyUsed int `json:"supply_used"` // 选中通道的总供给

	OrderCoverage     float64 `json:"order_coverage"`     // 选中订单占全部订单 (%)
	DemandCoverage    float64 `json:"demand_coverage"`    // 拣货物品数占全部需求 (%)
	SupplyUtilization float64 `json:"supply_utilization"` // 拣货物品数占选中通道供给 (%)
	BoundSlack        int     `json:"bound_slack"`        // 距上界的余量
	ItemsPerAisle     float64 `json:"items_per_aisle"`    // 目标值

	Balance *BalanceMetrics `json:"balance"`

	// 利用率最低的通道，便于人工排查
	IdleAisles []AisleUsage `json:"idle_aisles,omitempty"`
}

// AisleUsage 单个通道的利用情况
type AisleUsage struct {
	Aisle  int     `json:"aisle"`
	Supply int     `json:"supply"`
	Picked int     `json:"picked"` // 该通道物品上的需求，按物品在选中通道间的供给比例分摊
	Rate   float64 `json:"rate"`
}

// Compute 计算波次指标，idle 为列出的低利用率通道数
func Compute(p *model.Problem, orders, aisles []int, idle int) *WaveMetrics {
	m := &WaveMetrics{Orders: len(orders), Aisles: len(aisles)}

	demand := make([]int, p.ItemCount)
	for _, o := range orders {
		for _, e := range p.Orders[o] {
			demand[e.Item] += e.Qty
			m.ItemTotal += e.Qty
		}
	}
	supply := make([]int, p.ItemCount)
	for _, a := range aisles {
		for _, e := range p.Aisles[a] {
			supply[e.Item] += e.Qty
			m.SupplyUsed += e.Qty
		}
	}

	totalDemand := 0
	for _, d := range p.DemandTotals() {
		totalDemand += d
	}
	m.OrderCoverage = percent(len(orders), p.OrderCount)
	m.DemandCoverage = percent(m.ItemTotal, totalDemand)
	m.SupplyUtilization = percent(m.ItemTotal, m.SupplyUsed)
	m.BoundSlack = p.UpperBound - m.ItemTotal
	if len(aisles) > 0 {
		m.ItemsPerAisle = float64(m.ItemTotal) / float64(len(aisles))
	}

	usage := make([]AisleUsage, 0, len(aisles))
	for _, a := range aisles {
		u := AisleUsage{Aisle: a, Supply: p.AisleSize(a)}
		picked := 0.0
		for _, e := range p.Aisles[a] {
			if supply[e.Item] > 0 {
				picked += float64(demand[e.Item]) * float64(e.Qty) / float64(supply[e.Item])
			}
		}
		u.Picked = int(picked + 0.5)
		u.Rate = percent(u.Picked, u.Supply)
		usage = append(usage, u)
	}
	m.Balance = Balance(usage)

	sort.SliceStable(usage, func(i, j int) bool {
		if usage[i].Rate != usage[j].Rate {
			return usage[i].Rate < usage[j].Rate
		}
		return usage[i].Aisle < usage[j].Aisle
	})
	if idle > len(usage) {
		idle = len(usage)
	}
	if idle > 0 {
		m.IdleAisles = usage[:idle]
	}
	return m
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
