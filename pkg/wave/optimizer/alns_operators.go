package optimizer

import (
	"math"
	"math/rand"
	"sort"

	"github.com/wavepick/wavepick/pkg/wave"
)

// destroyOperator 破坏算子：从解中移除 n 个通道
type destroyOperator struct {
	name  string
	apply func(s *wave.Solution, rng *rand.Rand, n int)
}

// repairOperator 修复算子：在剩余通道上重新接纳订单
type repairOperator struct {
	name  string
	apply func(s *wave.Solution, rng *rand.Rand, cfg *ALNSConfig)
}

func defaultDestroyOperators() []destroyOperator {
	return []destroyOperator{
		{name: "random", apply: randomRemoval},
		{name: "worst", apply: worstRemoval},
	}
}

func defaultRepairOperators() []repairOperator {
	return []repairOperator{
		{name: "greedy", apply: greedyRepair},
		{name: "hybrid", apply: hybridRepair},
		{name: "random", apply: randomRepair},
	}
}

// randomRemoval 均匀无放回地移除 n 个已选择通道
func randomRemoval(s *wave.Solution, rng *rand.Rand, n int) {
	aisles := append([]int(nil), s.Aisles...)
	rng.Shuffle(len(aisles), func(i, j int) { aisles[i], aisles[j] = aisles[j], aisles[i] })
	for _, a := range aisles[:n] {
		s.DropAisle(a)
	}
}

// worstRemoval 按通道对剩余供给的贡献 Σ min(供给, 剩余) 升序移除 n 个通道
func worstRemoval(s *wave.Solution, _ *rand.Rand, n int) {
	p := s.Problem()
	aisles := append([]int(nil), s.Aisles...)
	scores := make(map[int]int, len(aisles))
	for _, a := range aisles {
		score := 0
		for _, e := range p.Aisles[a] {
			if r := s.Remaining[e.Item]; r < e.Qty {
				score += r
			} else {
				score += e.Qty
			}
		}
		scores[a] = score
	}
	sort.Slice(aisles, func(i, j int) bool {
		si, sj := scores[aisles[i]], scores[aisles[j]]
		if si != sj {
			return si < sj
		}
		return aisles[i] < aisles[j]
	})
	for _, a := range aisles[:n] {
		s.DropAisle(a)
	}
}

// greedyRepair 用当前通道重新计算物品权重，按加权覆盖度降序接纳订单
func greedyRepair(s *wave.Solution, _ *rand.Rand, _ *ALNSConfig) {
	p := s.Problem()

	demand := make([]float64, p.ItemCount)
	orderHits := make([]int, p.ItemCount)
	for o, list := range p.Orders {
		if s.OrderSelected[o] {
			continue
		}
		for _, e := range list {
			demand[e.Item] += float64(e.Qty)
			orderHits[e.Item]++
		}
	}
	aisleHits := make([]int, p.ItemCount)
	for _, a := range s.Aisles {
		for _, e := range p.Aisles[a] {
			aisleHits[e.Item]++
		}
	}
	weights := make([]float64, p.ItemCount)
	for k := range weights {
		if orderHits[k] == 0 || aisleHits[k] == 0 {
			continue
		}
		weights[k] = demand[k] / float64(orderHits[k]) * float64(s.Supply[k]) / float64(aisleHits[k])
	}

	rank := wave.RankDescending(wave.Scores(p.Orders, weights))
	for {
		admitted := 0
		for _, o := range rank {
			if !s.OrderSelected[o] && s.AdmitOrder(o) {
				admitted++
			}
		}
		if admitted == 0 {
			break
		}
	}
	s.Evaluate()
}

type hybridCandidate struct {
	order int
	score float64
}

// hybridRepair 按 订单规模 / 需要新开的通道数 排序，以 α 概率在前 k 个中随机挑选
// 解可行之后只接受不降低目标值的接纳
func hybridRepair(s *wave.Solution, rng *rand.Rand, cfg *ALNSConfig) {
	p := s.Problem()

	cands := make([]hybridCandidate, 0)
	for o := 0; o < p.OrderCount; o++ {
		if s.OrderSelected[o] || s.ItemTotal+p.OrderSize(o) > p.UpperBound {
			continue
		}
		needed, ok := coveringAisles(s, o)
		if !ok {
			continue
		}
		score := math.Inf(1)
		if len(needed) > 0 {
			score = float64(p.OrderSize(o)) / float64(len(needed))
		}
		cands = append(cands, hybridCandidate{order: o, score: score})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})

	for len(cands) > 0 {
		pick := 0
		if rng.Float64() < cfg.HybridAlpha {
			k := cfg.TopK
			if k > len(cands) {
				k = len(cands)
			}
			pick = rng.Intn(k)
		}
		o := cands[pick].order
		cands = append(cands[:pick], cands[pick+1:]...)

		needed, ok := coveringAisles(s, o)
		if !ok {
			continue
		}
		trial := s.Clone()
		for _, a := range needed {
			trial.AddAisle(a)
		}
		if !trial.AdmitOrder(o) {
			continue
		}
		trial.Evaluate()
		if s.Feasible && trial.Objective < s.Objective {
			continue
		}
		s.CopyFrom(trial)
	}
	s.Evaluate()
}

// coveringAisles 贪心挑选能补足订单缺口的未选择通道
// 无缺口时返回空集合，无法补足时返回 false
func coveringAisles(s *wave.Solution, order int) ([]int, bool) {
	p := s.Problem()
	type deficit struct{ item, qty int }
	deficits := make([]deficit, 0)
	for _, e := range p.Orders[order] {
		if d := e.Qty - s.Remaining[e.Item]; d > 0 {
			deficits = append(deficits, deficit{item: e.Item, qty: d})
		}
	}
	if len(deficits) == 0 {
		return nil, true
	}

	chosen := make([]int, 0, 1)
	used := make(map[int]bool)
	for len(deficits) > 0 {
		bestAisle, bestGain := -1, 0
		for a := 0; a < p.AisleCount; a++ {
			if s.AisleSelected[a] || used[a] {
				continue
			}
			gain := 0
			for _, d := range deficits {
				gain += min(p.Aisles[a].Get(d.item), d.qty)
			}
			if gain > bestGain {
				bestAisle, bestGain = a, gain
			}
		}
		if bestAisle < 0 {
			return nil, false
		}
		chosen = append(chosen, bestAisle)
		used[bestAisle] = true

		rest := deficits[:0]
		for _, d := range deficits {
			d.qty -= p.Aisles[bestAisle].Get(d.item)
			if d.qty > 0 {
				rest = append(rest, d)
			}
		}
		deficits = rest
	}
	return chosen, true
}

// randomRepair 随机顺序接纳放得下的订单
func randomRepair(s *wave.Solution, rng *rand.Rand, _ *ALNSConfig) {
	p := s.Problem()
	orders := make([]int, 0, p.OrderCount-len(s.Orders))
	for o := 0; o < p.OrderCount; o++ {
		if !s.OrderSelected[o] {
			orders = append(orders, o)
		}
	}
	rng.Shuffle(len(orders), func(i, j int) { orders[i], orders[j] = orders[j], orders[i] })
	for _, o := range orders {
		s.AdmitOrder(o)
	}
	s.Evaluate()
}

// grow 物品总数低于下界时依次打开权重最大的未选择通道
func grow(s *wave.Solution, weights []float64) {
	p := s.Problem()
	for s.ItemTotal < p.LowerBound {
		best := -1
		for a, sel := range s.AisleSelected {
			if !sel && (best < 0 || weights[a] > weights[best]) {
				best = a
			}
		}
		if best < 0 {
			break
		}
		s.OpenAisle(best)
	}
}
