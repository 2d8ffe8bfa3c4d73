package wave

import (
	"fmt"
	"testing"

	"github.com/wavepick/wavepick/pkg/model"
)

// twoItemProblem 两个物品，每个通道只存放一种物品
func twoItemProblem(t *testing.T) *model.Problem {
	t.Helper()
	p, err := model.NewProblem(2,
		[]model.ItemList{
			model.NewItemList(map[int]int{0: 2}),
			model.NewItemList(map[int]int{1: 3}),
		},
		[]model.ItemList{
			model.NewItemList(map[int]int{0: 5}),
			model.NewItemList(map[int]int{1: 5}),
		},
		1, 10)
	if err != nil {
		t.Fatalf("NewProblem: %v", err)
	}
	return p
}

// overlapProblem 通道 0 和 1 都存放物品 0，通道 2 存放物品 1
func overlapProblem(t *testing.T) *model.Problem {
	t.Helper()
	p, err := model.NewProblem(2,
		[]model.ItemList{
			model.NewItemList(map[int]int{0: 3}),
			model.NewItemList(map[int]int{0: 1, 1: 1}),
			model.NewItemList(map[int]int{1: 2}),
		},
		[]model.ItemList{
			model.NewItemList(map[int]int{0: 4}),
			model.NewItemList(map[int]int{0: 6}),
			model.NewItemList(map[int]int{1: 3}),
		},
		0, 20)
	if err != nil {
		t.Fatalf("NewProblem: %v", err)
	}
	return p
}

func mustInvariants(t *testing.T, s *Solution) {
	t.Helper()
	if err := s.CheckInvariants(); err != nil {
		t.Fatalf("invariant broken: %v", err)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		demand []int
		supply []int
		lb, ub int
		want   int
		feas   bool
	}{
		{"可行", []int{2, 3}, []int{5, 5}, 1, 10, 5, true},
		{"低于下界", []int{2, 3}, []int{5, 5}, 6, 10, 0, false},
		{"超过上界", []int{2, 3}, []int{5, 5}, 1, 4, 0, false},
		{"供给不足", []int{6, 0}, []int{5, 5}, 1, 10, 0, false},
		{"下界为零的空波次", []int{0, 0}, []int{0, 0}, 0, 10, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.demand, tt.supply, tt.lb, tt.ub); got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
			if _, feasible := Check(tt.demand, tt.supply, tt.lb, tt.ub); feasible != tt.feas {
				t.Errorf("Check() feasible = %v, want %v", feasible, tt.feas)
			}
		})
	}
}

func TestRatio(t *testing.T) {
	if Ratio(5, 0) != 0 {
		t.Error("ratio with no aisles should be 0")
	}
	if Ratio(5, 2) != 2.5 {
		t.Errorf("Ratio(5, 2) = %v, want 2.5", Ratio(5, 2))
	}
}

func TestOpenAisle_BothAisles(t *testing.T) {
	p := twoItemProblem(t)
	s := NewSolution(p)

	if !s.OpenAisle(0) || !s.OpenAisle(1) {
		t.Fatal("OpenAisle should succeed on unselected aisles")
	}
	mustInvariants(t, s)

	if len(s.Orders) != 2 || s.AisleTotal != 2 {
		t.Fatalf("orders = %v, aisles = %v", s.Orders, s.Aisles)
	}
	if s.Objective != 2.5 {
		t.Errorf("Objective = %v, want 2.5", s.Objective)
	}
	if !s.Feasible {
		t.Error("solution should be feasible")
	}
	if s.OpenAisle(1) {
		t.Error("opening a selected aisle should be a no-op")
	}
	if s.OpenAisle(7) {
		t.Error("opening an out-of-range aisle should be a no-op")
	}
}

func TestCloseAisle_EvictsUniquelySupplied(t *testing.T) {
	p := twoItemProblem(t)
	s := NewSolution(p)
	s.OpenAisle(0)
	s.OpenAisle(1)
	before := s.ItemTotal

	if !s.CloseAisle(1) {
		t.Fatal("CloseAisle should succeed")
	}
	mustInvariants(t, s)

	if s.OrderSelected[1] {
		t.Error("order 1 lost its only supplier and should be evicted")
	}
	if got := before - s.ItemTotal; got != p.OrderSize(1) {
		t.Errorf("ItemTotal dropped by %d, want %d", got, p.OrderSize(1))
	}
	if s.CloseAisle(0) {
		t.Error("closing the last aisle should be rejected")
	}
	if s.AisleTotal != 1 {
		t.Errorf("AisleTotal = %d, want 1", s.AisleTotal)
	}
}

func TestOpenClose_RoundTrip(t *testing.T) {
	p := overlapProblem(t)

	for x := 0; x < p.AisleCount; x++ {
		t.Run(fmt.Sprintf("打开再关闭通道%d", x), func(t *testing.T) {
			s := NewSolution(p)
			// 从另一个通道出发的饱和状态
			start := (x + 1) % p.AisleCount
			s.OpenAisle(start)

			demand := append([]int(nil), s.Demand...)
			supply := append([]int(nil), s.Supply...)
			total := s.ItemTotal

			if !s.OpenAisle(x) {
				t.Fatalf("OpenAisle(%d) failed", x)
			}
			if !s.CloseAisle(x) {
				t.Fatalf("CloseAisle(%d) failed", x)
			}
			mustInvariants(t, s)

			if s.ItemTotal != total {
				t.Errorf("ItemTotal = %d, want %d", s.ItemTotal, total)
			}
			for k := range demand {
				if s.Demand[k] != demand[k] || s.Supply[k] != supply[k] {
					t.Errorf("item %d: demand %d/%d supply %d/%d", k, s.Demand[k], demand[k], s.Supply[k], supply[k])
				}
			}
		})
	}
}

func TestSwapAisle_LeavesReceiverUntouched(t *testing.T) {
	p := twoItemProblem(t)
	s := NewSolution(p)
	s.OpenAisle(0)

	c := s.SwapAisle(1, 0)
	mustInvariants(t, s)
	mustInvariants(t, c)

	if !s.AisleSelected[0] || s.AisleSelected[1] {
		t.Error("receiver should keep its aisles")
	}
	if c.AisleSelected[0] || !c.AisleSelected[1] {
		t.Errorf("swap result aisles = %v", c.Aisles)
	}
	if !c.OrderSelected[1] || c.OrderSelected[0] {
		t.Errorf("swap result orders = %v", c.Orders)
	}

	same := s.SwapAisle(0, 0)
	if !same.SameAisles(s) {
		t.Error("invalid swap should return an unchanged clone")
	}
}

func TestRemoveRedundantAisles(t *testing.T) {
	p := overlapProblem(t)
	s := NewSolution(p)
	for a := 0; a < p.AisleCount; a++ {
		s.OpenAisle(a)
	}
	mustInvariants(t, s)

	first := s.RemoveRedundantAisles()
	mustInvariants(t, s)
	aisles := append([]int(nil), s.Aisles...)

	if first != 1 {
		t.Errorf("removed %d aisles, want 1", first)
	}
	// 订单 0 和 1 共需 4 个物品 0，只保留释放量较小的通道 0
	if !s.AisleSelected[0] || s.AisleSelected[1] {
		t.Errorf("aisles after cleanup = %v, want [0 2]", s.Aisles)
	}

	if second := s.RemoveRedundantAisles(); second != 0 {
		t.Errorf("second pass removed %d aisles", second)
	}
	if len(aisles) != len(s.Aisles) {
		t.Errorf("second pass changed aisles: %v -> %v", aisles, s.Aisles)
	}
}

func TestRemoveRedundantAisles_KeepsLastAisle(t *testing.T) {
	p, err := model.NewProblem(1,
		[]model.ItemList{model.NewItemList(map[int]int{0: 9})},
		[]model.ItemList{model.NewItemList(map[int]int{0: 3})},
		0, 10)
	if err != nil {
		t.Fatal(err)
	}
	s := NewSolution(p)
	s.OpenAisle(0)

	if n := s.RemoveRedundantAisles(); n != 0 || s.AisleTotal != 1 {
		t.Errorf("removed %d, AisleTotal %d", n, s.AisleTotal)
	}
}

func TestAdmitOrder_RejectsSelected(t *testing.T) {
	p := twoItemProblem(t)
	s := NewSolution(p)
	s.AddAisle(0)

	if !s.AdmitOrder(0) {
		t.Fatal("order 0 should fit")
	}
	if s.AdmitOrder(0) {
		t.Error("re-admitting a selected order should be a no-op")
	}
	if s.AdmitOrder(1) {
		t.Error("order 1 has no supply")
	}
	mustInvariants(t, s)
}

func TestAdmitOrders_RespectsUpperBound(t *testing.T) {
	p, err := model.NewProblem(1,
		[]model.ItemList{
			model.NewItemList(map[int]int{0: 2}),
			model.NewItemList(map[int]int{0: 4}),
			model.NewItemList(map[int]int{0: 3}),
		},
		[]model.ItemList{model.NewItemList(map[int]int{0: 20})},
		0, 7)
	if err != nil {
		t.Fatal(err)
	}
	s := NewSolution(p)
	s.OpenAisle(0)
	mustInvariants(t, s)

	// 按规模降序: 4, 3 已到上界 7，订单 0 放不下
	if s.ItemTotal != 7 || s.OrderSelected[0] {
		t.Errorf("ItemTotal = %d, orders = %v", s.ItemTotal, s.Orders)
	}
}

func TestCloneIndependence(t *testing.T) {
	p := twoItemProblem(t)
	s := NewSolution(p)
	s.OpenAisle(0)

	c := s.Clone()
	c.OpenAisle(1)

	if s.AisleTotal != 1 || s.Supply[1] != 0 {
		t.Error("mutating the clone changed the original")
	}

	var d Solution
	d.CopyFrom(c)
	mustInvariants(t, &d)
	if d.Objective != c.Objective || d.Problem() != p {
		t.Error("CopyFrom did not copy the solution")
	}
}

func TestConcentrationWeights(t *testing.T) {
	p, err := model.NewProblem(3,
		[]model.ItemList{
			model.NewItemList(map[int]int{0: 2}),
			model.NewItemList(map[int]int{0: 4, 1: 1}),
		},
		[]model.ItemList{
			model.NewItemList(map[int]int{0: 6}),
			model.NewItemList(map[int]int{2: 5}),
		},
		0, 10)
	if err != nil {
		t.Fatal(err)
	}
	w := ConcentrationWeights(p)

	if w[0] != 3*6 {
		t.Errorf("weight[0] = %v, want 18", w[0])
	}
	if w[1] != 0 || w[2] != 0 {
		t.Errorf("items without both sides should weigh 0, got %v", w)
	}

	rank := RankDescending([]float64{1, 3, 3, 0})
	want := []int{1, 2, 0, 3}
	for i := range want {
		if rank[i] != want[i] {
			t.Fatalf("RankDescending() = %v, want %v", rank, want)
		}
	}
}
