// Package wave 提供波次解的数据结构、评估函数和邻域操作
package wave

import (
	"fmt"
	"time"

	"github.com/wavepick/wavepick/pkg/model"
)

// Solution 波次解
// 由当前持有它的启发式独占修改，需要独立比较时用 Clone 复制
type Solution struct {
	Aisles        []int  `json:"aisles"`
	AisleSelected []bool `json:"-"`
	Orders        []int  `json:"orders"`
	OrderSelected []bool `json:"-"`

	Supply    []int `json:"-"`
	Demand    []int `json:"-"`
	Remaining []int `json:"-"`

	ItemTotal  int           `json:"item_total"`
	AisleTotal int           `json:"aisle_total"`
	Objective  float64       `json:"objective"`
	Feasible   bool          `json:"feasible"`
	Elapsed    time.Duration `json:"elapsed"`

	problem *model.Problem
}

// NewSolution 创建空解
func NewSolution(p *model.Problem) *Solution {
	s := &Solution{
		Aisles:        make([]int, 0),
		AisleSelected: make([]bool, p.AisleCount),
		Orders:        make([]int, 0),
		OrderSelected: make([]bool, p.OrderCount),
		Supply:        make([]int, p.ItemCount),
		Demand:        make([]int, p.ItemCount),
		Remaining:     make([]int, p.ItemCount),
		problem:       p,
	}
	s.Evaluate()
	return s
}

// Problem 返回解所属的问题实例
func (s *Solution) Problem() *model.Problem {
	return s.problem
}

// Clone 深拷贝
func (s *Solution) Clone() *Solution {
	c := &Solution{
		Aisles:        append(make([]int, 0, len(s.Aisles)), s.Aisles...),
		AisleSelected: append([]bool(nil), s.AisleSelected...),
		Orders:        append(make([]int, 0, len(s.Orders)), s.Orders...),
		OrderSelected: append([]bool(nil), s.OrderSelected...),
		Supply:        append([]int(nil), s.Supply...),
		Demand:        append([]int(nil), s.Demand...),
		Remaining:     append([]int(nil), s.Remaining...),
		ItemTotal:     s.ItemTotal,
		AisleTotal:    s.AisleTotal,
		Objective:     s.Objective,
		Feasible:      s.Feasible,
		Elapsed:       s.Elapsed,
		problem:       s.problem,
	}
	return c
}

// CopyFrom 复用自身缓冲区复制另一个解
func (s *Solution) CopyFrom(o *Solution) {
	s.Aisles = append(s.Aisles[:0], o.Aisles...)
	s.AisleSelected = append(s.AisleSelected[:0], o.AisleSelected...)
	s.Orders = append(s.Orders[:0], o.Orders...)
	s.OrderSelected = append(s.OrderSelected[:0], o.OrderSelected...)
	s.Supply = append(s.Supply[:0], o.Supply...)
	s.Demand = append(s.Demand[:0], o.Demand...)
	s.Remaining = append(s.Remaining[:0], o.Remaining...)
	s.ItemTotal = o.ItemTotal
	s.AisleTotal = o.AisleTotal
	s.Objective = o.Objective
	s.Feasible = o.Feasible
	s.Elapsed = o.Elapsed
	s.problem = o.problem
}

// Evaluate 重新计算目标值和可行性
func (s *Solution) Evaluate() float64 {
	p := s.problem
	total, feasible := Check(s.Demand, s.Supply, p.LowerBound, p.UpperBound)
	s.Feasible = feasible
	if !feasible {
		total = 0
	}
	s.Objective = Ratio(total, s.AisleTotal)
	return s.Objective
}

// Better 是否严格优于另一个解
func (s *Solution) Better(o *Solution) bool {
	return s.Objective > o.Objective
}

// SameAisles 两个解是否选择了相同的通道集合
func (s *Solution) SameAisles(o *Solution) bool {
	if s.AisleTotal != o.AisleTotal {
		return false
	}
	for a, sel := range s.AisleSelected {
		if sel != o.AisleSelected[a] {
			return false
		}
	}
	return true
}

// CheckInvariants 从头重算并校验解的不变量
func (s *Solution) CheckInvariants() error {
	p := s.problem
	supply := make([]int, p.ItemCount)
	demand := make([]int, p.ItemCount)

	seen := make(map[int]bool, len(s.Aisles))
	for _, a := range s.Aisles {
		if seen[a] {
			return fmt.Errorf("通道 %d 重复选择", a)
		}
		seen[a] = true
		if !s.AisleSelected[a] {
			return fmt.Errorf("通道 %d 在序列中但位图未置位", a)
		}
		for _, e := range p.Aisles[a] {
			supply[e.Item] += e.Qty
		}
	}
	count := 0
	for _, sel := range s.AisleSelected {
		if sel {
			count++
		}
	}
	if count != len(s.Aisles) || s.AisleTotal != len(s.Aisles) {
		return fmt.Errorf("通道计数不一致: 位图 %d, 序列 %d, AisleTotal %d", count, len(s.Aisles), s.AisleTotal)
	}

	seen = make(map[int]bool, len(s.Orders))
	for _, o := range s.Orders {
		if seen[o] {
			return fmt.Errorf("订单 %d 重复选择", o)
		}
		seen[o] = true
		if !s.OrderSelected[o] {
			return fmt.Errorf("订单 %d 在序列中但位图未置位", o)
		}
		for _, e := range p.Orders[o] {
			demand[e.Item] += e.Qty
		}
	}
	count = 0
	for _, sel := range s.OrderSelected {
		if sel {
			count++
		}
	}
	if count != len(s.Orders) {
		return fmt.Errorf("订单计数不一致: 位图 %d, 序列 %d", count, len(s.Orders))
	}

	total := 0
	for k := 0; k < p.ItemCount; k++ {
		if supply[k] != s.Supply[k] {
			return fmt.Errorf("物品 %d 供给缓存 %d, 实际 %d", k, s.Supply[k], supply[k])
		}
		if demand[k] != s.Demand[k] {
			return fmt.Errorf("物品 %d 需求缓存 %d, 实际 %d", k, s.Demand[k], demand[k])
		}
		if demand[k] > supply[k] {
			return fmt.Errorf("物品 %d 需求 %d 超过供给 %d", k, demand[k], supply[k])
		}
		if s.Remaining[k] != supply[k]-demand[k] {
			return fmt.Errorf("物品 %d 剩余供给 %d, 应为 %d", k, s.Remaining[k], supply[k]-demand[k])
		}
		total += demand[k]
	}
	if total != s.ItemTotal {
		return fmt.Errorf("物品总数缓存 %d, 实际 %d", s.ItemTotal, total)
	}
	return nil
}
