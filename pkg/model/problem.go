// Package model 定义波次拣货问题的核心数据模型
package model

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/wavepick/wavepick/pkg/errors"
)

// ItemQty 物品及其数量
type ItemQty struct {
	Item int `json:"item"`
	Qty  int `json:"qty"`
}

// ItemList 稀疏物品列表，按物品编号升序
type ItemList []ItemQty

// NewItemList 从映射创建物品列表
func NewItemList(m map[int]int) ItemList {
	list := make(ItemList, 0, len(m))
	for item, qty := range m {
		list = append(list, ItemQty{Item: item, Qty: qty})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Item < list[j].Item })
	return list
}

// Total 返回物品总数量
func (l ItemList) Total() int {
	total := 0
	for _, e := range l {
		total += e.Qty
	}
	return total
}

// Get 返回某个物品的数量，不存在时为 0
func (l ItemList) Get(item int) int {
	i := sort.Search(len(l), func(i int) bool { return l[i].Item >= item })
	if i < len(l) && l[i].Item == item {
		return l[i].Qty
	}
	return 0
}

// Dense 展开为稠密向量
func (l ItemList) Dense(itemCount int) []float64 {
	v := make([]float64, itemCount)
	for _, e := range l {
		v[e.Item] = float64(e.Qty)
	}
	return v
}

// Problem 问题实例，构造完成后只读
type Problem struct {
	OrderCount int        `json:"order_count"`
	ItemCount  int        `json:"item_count"`
	AisleCount int        `json:"aisle_count"`
	Orders     []ItemList `json:"orders"`
	Aisles     []ItemList `json:"aisles"`
	LowerBound int        `json:"lower_bound"`
	UpperBound int        `json:"upper_bound"`

	orderSizes []int
	aisleSizes []int
}

// NewProblem 创建并校验问题实例
func NewProblem(itemCount int, orders, aisles []ItemList, lowerBound, upperBound int) (*Problem, error) {
	p := &Problem{
		OrderCount: len(orders),
		ItemCount:  itemCount,
		AisleCount: len(aisles),
		Orders:     orders,
		Aisles:     aisles,
		LowerBound: lowerBound,
		UpperBound: upperBound,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.orderSizes = make([]int, len(orders))
	for o, list := range orders {
		p.orderSizes[o] = list.Total()
	}
	p.aisleSizes = make([]int, len(aisles))
	for a, list := range aisles {
		p.aisleSizes[a] = list.Total()
	}
	return p, nil
}

// Validate 校验实例的结构约束
func (p *Problem) Validate() error {
	var ve errors.ValidationErrors

	if p.ItemCount < 0 {
		ve.Addf("item_count", "不能为负: %d", p.ItemCount)
	}
	if p.OrderCount != len(p.Orders) {
		ve.Addf("order_count", "声明 %d 个订单，实际 %d 个", p.OrderCount, len(p.Orders))
	}
	if p.AisleCount != len(p.Aisles) {
		ve.Addf("aisle_count", "声明 %d 个通道，实际 %d 个", p.AisleCount, len(p.Aisles))
	}
	if p.LowerBound < 0 {
		ve.Addf("lower_bound", "不能为负: %d", p.LowerBound)
	}
	if p.LowerBound > p.UpperBound {
		ve.Addf("upper_bound", "下界 %d 大于上界 %d", p.LowerBound, p.UpperBound)
	}
	for o, list := range p.Orders {
		validateList(&ve, fmt.Sprintf("orders[%d]", o), list, p.ItemCount)
	}
	for a, list := range p.Aisles {
		validateList(&ve, fmt.Sprintf("aisles[%d]", a), list, p.ItemCount)
	}

	if ve.HasErrors() {
		return ve.ToAppError(errors.CodeInvalidInstance)
	}
	return nil
}

func validateList(ve *errors.ValidationErrors, field string, list ItemList, itemCount int) {
	prev := -1
	for _, e := range list {
		switch {
		case e.Item < 0 || e.Item >= itemCount:
			ve.Addf(field, "物品编号 %d 越界 [0, %d)", e.Item, itemCount)
		case e.Qty < 0:
			ve.Addf(field, "物品 %d 数量为负: %d", e.Item, e.Qty)
		case e.Item <= prev:
			ve.Addf(field, "物品 %d 重复或未排序", e.Item)
		}
		prev = e.Item
	}
}

// OrderSize 返回订单的物品总数
func (p *Problem) OrderSize(order int) int {
	return p.orderSizes[order]
}

// AisleSize 返回通道的供给总数
func (p *Problem) AisleSize(aisle int) int {
	return p.aisleSizes[aisle]
}

// DemandTotals 每个物品在所有订单中的总需求
func (p *Problem) DemandTotals() []int {
	totals := make([]int, p.ItemCount)
	for _, list := range p.Orders {
		for _, e := range list {
			totals[e.Item] += e.Qty
		}
	}
	return totals
}

// SupplyTotals 每个物品在所有通道中的总供给
func (p *Problem) SupplyTotals() []int {
	totals := make([]int, p.ItemCount)
	for _, list := range p.Aisles {
		for _, e := range list {
			totals[e.Item] += e.Qty
		}
	}
	return totals
}

// Fingerprint 实例指纹 (FNV-1a)，用作缓存键
func (p *Problem) Fingerprint() string {
	h := fnv.New64a()
	var buf [8]byte
	write := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	write(p.ItemCount)
	write(p.LowerBound)
	write(p.UpperBound)
	for _, lists := range [][]ItemList{p.Orders, p.Aisles} {
		write(len(lists))
		for _, list := range lists {
			write(len(list))
			for _, e := range list {
				write(e.Item)
				write(e.Qty)
			}
		}
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
