package wave

import (
	"sort"
)

// OpenAisle 打开通道并接纳能放下的订单
// 编号越界或通道已选择时不做任何修改，返回 false
func (s *Solution) OpenAisle(id int) bool {
	if id < 0 || id >= s.problem.AisleCount || s.AisleSelected[id] {
		return false
	}
	s.AddAisle(id)
	s.AdmitOrders()
	s.Evaluate()
	return true
}

// CloseAisle 关闭通道，驱逐失去覆盖的订单后重新接纳
// 只剩一个通道或通道未选择时不做任何修改，返回 false
func (s *Solution) CloseAisle(id int) bool {
	if id < 0 || id >= s.problem.AisleCount || !s.AisleSelected[id] || s.AisleTotal <= 1 {
		return false
	}
	s.detachAisle(id)
	s.evict()
	s.AdmitOrders()
	s.Evaluate()
	return true
}

// SwapAisle 在副本上先关闭 oldID 再打开 newID，接收者保持不变
// 参数非法时返回未修改的副本
func (s *Solution) SwapAisle(newID, oldID int) *Solution {
	c := s.Clone()
	p := s.problem
	if newID == oldID ||
		newID < 0 || newID >= p.AisleCount || s.AisleSelected[newID] ||
		oldID < 0 || oldID >= p.AisleCount || !s.AisleSelected[oldID] {
		return c
	}
	// 先关后开，唯一的通道也可以被替换
	c.detachAisle(oldID)
	c.evict()
	c.AdmitOrders()
	c.AddAisle(newID)
	c.AdmitOrders()
	c.Evaluate()
	return c
}

// DropAisle 移除通道并驱逐失去覆盖的订单，不重新接纳
// 供破坏算子使用，允许移除最后一个通道
func (s *Solution) DropAisle(id int) bool {
	if id < 0 || id >= s.problem.AisleCount || !s.AisleSelected[id] {
		return false
	}
	s.detachAisle(id)
	s.evict()
	s.Evaluate()
	return true
}

// AddAisle 只加入通道的供给，不接纳订单
func (s *Solution) AddAisle(id int) bool {
	if id < 0 || id >= s.problem.AisleCount || s.AisleSelected[id] {
		return false
	}
	s.Aisles = append(s.Aisles, id)
	s.AisleSelected[id] = true
	s.AisleTotal++
	for _, e := range s.problem.Aisles[id] {
		s.Supply[e.Item] += e.Qty
		s.Remaining[e.Item] += e.Qty
	}
	return true
}

// detachAisle 移除通道供给，剩余供给可能暂时为负
func (s *Solution) detachAisle(id int) {
	for i, a := range s.Aisles {
		if a == id {
			s.Aisles = append(s.Aisles[:i], s.Aisles[i+1:]...)
			break
		}
	}
	s.AisleSelected[id] = false
	s.AisleTotal--
	for _, e := range s.problem.Aisles[id] {
		s.Supply[e.Item] -= e.Qty
		s.Remaining[e.Item] -= e.Qty
	}
}

// evict 单遍驱逐：从最近接纳的订单往前扫描，涉及负剩余物品的订单被移出
func (s *Solution) evict() int {
	evicted := 0
	for i := len(s.Orders) - 1; i >= 0; i-- {
		o := s.Orders[i]
		if !s.uncovered(o) {
			continue
		}
		s.Orders = append(s.Orders[:i], s.Orders[i+1:]...)
		s.OrderSelected[o] = false
		s.ItemTotal -= s.problem.OrderSize(o)
		for _, e := range s.problem.Orders[o] {
			s.Demand[e.Item] -= e.Qty
			s.Remaining[e.Item] += e.Qty
		}
		evicted++
	}
	return evicted
}

func (s *Solution) uncovered(order int) bool {
	for _, e := range s.problem.Orders[order] {
		if e.Qty > 0 && s.Remaining[e.Item] < 0 {
			return true
		}
	}
	return false
}

// Fits 订单能否在当前剩余供给和上界内加入
func (s *Solution) Fits(order int) bool {
	if s.ItemTotal+s.problem.OrderSize(order) > s.problem.UpperBound {
		return false
	}
	for _, e := range s.problem.Orders[order] {
		if e.Qty > s.Remaining[e.Item] {
			return false
		}
	}
	return true
}

// AdmitOrder 接纳单个订单，已选择或放不下时返回 false
func (s *Solution) AdmitOrder(id int) bool {
	if id < 0 || id >= s.problem.OrderCount || s.OrderSelected[id] || !s.Fits(id) {
		return false
	}
	s.addOrder(id)
	return true
}

func (s *Solution) addOrder(o int) {
	s.Orders = append(s.Orders, o)
	s.OrderSelected[o] = true
	s.ItemTotal += s.problem.OrderSize(o)
	for _, e := range s.problem.Orders[o] {
		s.Demand[e.Item] += e.Qty
		s.Remaining[e.Item] -= e.Qty
	}
}

// AdmitOrders 订单接纳：筛出当前放得下的订单，按规模降序逐个接纳
// 接纳时重新检查容量和上界，返回接纳数量
func (s *Solution) AdmitOrders() int {
	p := s.problem
	candidates := make([]int, 0)
	for o := 0; o < p.OrderCount; o++ {
		if !s.OrderSelected[o] && s.Fits(o) {
			candidates = append(candidates, o)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return p.OrderSize(candidates[i]) > p.OrderSize(candidates[j])
	})

	admitted := 0
	for _, o := range candidates {
		if s.Fits(o) {
			s.addOrder(o)
			admitted++
		}
	}
	return admitted
}

// Redundant 通道是否冗余：移除后所有已接纳订单仍被覆盖
func (s *Solution) Redundant(id int) bool {
	if !s.AisleSelected[id] {
		return false
	}
	for _, e := range s.problem.Aisles[id] {
		if s.Remaining[e.Item] < e.Qty {
			return false
		}
	}
	return true
}

// RemoveRedundantAisles 移除冗余通道，返回移除数量
// 按释放的供给量从大到小逐个检查，每次都基于最新的剩余供给，
// 争夺同一物品的冗余通道只保留释放量最小的那个；最后一个通道不移除
func (s *Solution) RemoveRedundantAisles() int {
	p := s.problem
	candidates := make([]int, 0, len(s.Aisles))
	for _, a := range s.Aisles {
		if s.Redundant(a) {
			candidates = append(candidates, a)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		si, sj := p.AisleSize(candidates[i]), p.AisleSize(candidates[j])
		if si != sj {
			return si > sj
		}
		return candidates[i] < candidates[j]
	})

	removed := 0
	for _, a := range candidates {
		if s.AisleTotal <= 1 {
			break
		}
		if !s.Redundant(a) {
			continue
		}
		s.detachAisle(a)
		removed++
	}
	if removed > 0 {
		s.Evaluate()
	}
	return removed
}
