// Package validator 提供与求解器无关的波次校验
package validator

import (
	"fmt"

	"github.com/wavepick/wavepick/pkg/errors"
	"github.com/wavepick/wavepick/pkg/model"
)

// ViolationType 违规类型
type ViolationType string

const (
	ViolationUnknownOrder   ViolationType = "unknown_order"   // 订单编号越界
	ViolationUnknownAisle   ViolationType = "unknown_aisle"   // 通道编号越界
	ViolationDuplicateOrder ViolationType = "duplicate_order" // 订单重复
	ViolationDuplicateAisle ViolationType = "duplicate_aisle" // 通道重复
	ViolationLowerBound     ViolationType = "lower_bound"     // 物品数低于下界
	ViolationUpperBound     ViolationType = "upper_bound"     // 物品数超过上界
	ViolationSupply         ViolationType = "supply"          // 需求超过供给
)

// Violation 违规信息
type Violation struct {
	Type    ViolationType `json:"type"`
	Index   int           `json:"index"` // 订单、通道或物品编号，上下界违规时为 -1
	Message string        `json:"message"`
}

// Report 校验报告
type Report struct {
	Feasible   bool        `json:"feasible"`
	ItemTotal  int         `json:"item_total"`
	AisleTotal int         `json:"aisle_total"`
	Objective  float64     `json:"objective"`
	Violations []Violation `json:"violations,omitempty"`
}

// Check 从头校验一组订单和通道
func Check(p *model.Problem, orders, aisles []int) *Report {
	r := &Report{}
	demand := make([]int, p.ItemCount)
	supply := make([]int, p.ItemCount)

	seenOrders := make(map[int]bool, len(orders))
	for _, o := range orders {
		switch {
		case o < 0 || o >= p.OrderCount:
			r.add(ViolationUnknownOrder, o, "订单 %d 不存在", o)
			continue
		case seenOrders[o]:
			r.add(ViolationDuplicateOrder, o, "订单 %d 重复", o)
			continue
		}
		seenOrders[o] = true
		for _, e := range p.Orders[o] {
			demand[e.Item] += e.Qty
			r.ItemTotal += e.Qty
		}
	}

	seenAisles := make(map[int]bool, len(aisles))
	for _, a := range aisles {
		switch {
		case a < 0 || a >= p.AisleCount:
			r.add(ViolationUnknownAisle, a, "通道 %d 不存在", a)
			continue
		case seenAisles[a]:
			r.add(ViolationDuplicateAisle, a, "通道 %d 重复", a)
			continue
		}
		seenAisles[a] = true
		r.AisleTotal++
		for _, e := range p.Aisles[a] {
			supply[e.Item] += e.Qty
		}
	}

	if r.ItemTotal < p.LowerBound {
		r.add(ViolationLowerBound, -1, "物品数 %d 低于下界 %d", r.ItemTotal, p.LowerBound)
	}
	if r.ItemTotal > p.UpperBound {
		r.add(ViolationUpperBound, -1, "物品数 %d 超过上界 %d", r.ItemTotal, p.UpperBound)
	}
	for k := range demand {
		if demand[k] > supply[k] {
			r.add(ViolationSupply, k, "物品 %d 需求 %d 超过供给 %d", k, demand[k], supply[k])
		}
	}

	r.Feasible = len(r.Violations) == 0
	if r.Feasible && r.AisleTotal > 0 {
		r.Objective = float64(r.ItemTotal) / float64(r.AisleTotal)
	}
	return r
}

func (r *Report) add(t ViolationType, index int, format string, args ...interface{}) {
	r.Violations = append(r.Violations, Violation{
		Type:    t,
		Index:   index,
		Message: fmt.Sprintf(format, args...),
	})
}

// Err 存在违规时返回 VALIDATION_FAILED 错误
func (r *Report) Err() error {
	if r.Feasible {
		return nil
	}
	var ve errors.ValidationErrors
	for _, v := range r.Violations {
		ve.Add(string(v.Type), v.Message)
	}
	return ve.ToAppError(errors.CodeValidationFail)
}
