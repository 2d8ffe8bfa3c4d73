package solver

import (
	"context"
	"math/rand"
	"testing"

	"github.com/wavepick/wavepick/pkg/errors"
	"github.com/wavepick/wavepick/pkg/model"
	"github.com/wavepick/wavepick/pkg/wave"
)

func scenarioA(t *testing.T) *model.Problem {
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
		t.Fatal(err)
	}
	return p
}

// scenarioB 上下界都是 100，所有通道供给合计不足 100
func scenarioB(t *testing.T) *model.Problem {
	t.Helper()
	p, err := model.NewProblem(3,
		[]model.ItemList{
			model.NewItemList(map[int]int{0: 10, 1: 5}),
			model.NewItemList(map[int]int{2: 8}),
			model.NewItemList(map[int]int{0: 3}),
		},
		[]model.ItemList{
			model.NewItemList(map[int]int{0: 20, 1: 10}),
			model.NewItemList(map[int]int{2: 30}),
			model.NewItemList(map[int]int{0: 15}),
		},
		100, 100)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func randomProblem(t *testing.T, seed int64, orders, aisles, items int) *model.Problem {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	build := func(n, maxQty int) []model.ItemList {
		lists := make([]model.ItemList, n)
		for i := range lists {
			m := make(map[int]int)
			for j := 0; j < 1+rng.Intn(3); j++ {
				m[rng.Intn(items)] = 1 + rng.Intn(maxQty)
			}
			lists[i] = model.NewItemList(m)
		}
		return lists
	}
	p, err := model.NewProblem(items, build(orders, 4), build(aisles, 10), 5, 60)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNew(t *testing.T) {
	for _, name := range Names() {
		s, err := New(name)
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if s.Name() != name {
			t.Errorf("Name() = %q, want %q", s.Name(), name)
		}
	}

	_, err := New("annealing")
	if !errors.Is(err, errors.CodeUnknownStrategy) {
		t.Errorf("unknown name should fail with UNKNOWN_STRATEGY, got %v", err)
	}
}

func TestGreedy_ScenarioA(t *testing.T) {
	p := scenarioA(t)
	sol, err := NewGreedySolver().Solve(context.Background(), p, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := sol.CheckInvariants(); err != nil {
		t.Fatal(err)
	}
	if sol.AisleTotal != 2 || len(sol.Orders) != 2 {
		t.Errorf("aisles = %v, orders = %v", sol.Aisles, sol.Orders)
	}
	if sol.Objective != 2.5 {
		t.Errorf("Objective = %v, want 2.5", sol.Objective)
	}
}

func TestAllSolvers_ScenarioB(t *testing.T) {
	p := scenarioB(t)

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			s, _ := New(name)
			sol, err := s.Solve(context.Background(), p, rand.New(rand.NewSource(7)))
			if err != nil {
				t.Fatal(err)
			}
			if err := sol.CheckInvariants(); err != nil {
				t.Fatal(err)
			}
			if sol.Objective != 0 || sol.Feasible {
				t.Errorf("Objective = %v, Feasible = %v, want infeasible 0", sol.Objective, sol.Feasible)
			}
		})
	}
}

func TestAllSolvers_Invariants(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		p := randomProblem(t, seed, 30, 12, 8)
		for _, name := range Names() {
			s, _ := New(name)
			sol, err := s.Solve(context.Background(), p, rand.New(rand.NewSource(seed)))
			if err != nil {
				t.Fatalf("%s: %v", name, err)
			}
			if err := sol.CheckInvariants(); err != nil {
				t.Fatalf("%s seed %d: %v", name, seed, err)
			}
			if sol.Feasible != (wave.Score(sol.Demand, sol.Supply, p.LowerBound, p.UpperBound) > 0) {
				t.Errorf("%s seed %d: Feasible flag disagrees with Score", name, seed)
			}
		}
	}
}

func TestStochasticSolvers_Reproducible(t *testing.T) {
	p := randomProblem(t, 42, 40, 15, 10)

	for _, name := range []string{NameHybrid, NameRandom} {
		t.Run(name, func(t *testing.T) {
			s, _ := New(name)
			a, _ := s.Solve(context.Background(), p, rand.New(rand.NewSource(3)))
			b, _ := s.Solve(context.Background(), p, rand.New(rand.NewSource(3)))
			if !a.SameAisles(b) || a.Objective != b.Objective {
				t.Errorf("same seed gave %v (%v) and %v (%v)", a.Aisles, a.Objective, b.Aisles, b.Objective)
			}
		})
	}
}

func TestSolve_EmptyInstance(t *testing.T) {
	p, err := model.NewProblem(0, nil, nil, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range Names() {
		s, _ := New(name)
		sol, err := s.Solve(context.Background(), p, rand.New(rand.NewSource(1)))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if sol.Objective != 0 || sol.AisleTotal != 0 {
			t.Errorf("%s: empty instance gave %v", name, sol.Aisles)
		}
	}
}

func TestSolve_Cancelled(t *testing.T) {
	p := randomProblem(t, 9, 20, 10, 6)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, name := range Names() {
		s, _ := New(name)
		sol, err := s.Solve(ctx, p, rand.New(rand.NewSource(1)))
		if err == nil {
			t.Errorf("%s: expected context error", name)
		}
		if sol == nil {
			t.Errorf("%s: cancelled run should still return a solution", name)
		}
	}
}

func TestSampleWeighted(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	weights := []float64{0, 0, 5}
	for i := 0; i < 20; i++ {
		if got := SampleWeighted(rng, []int{0, 1, 2}, weights); got != 2 {
			t.Fatalf("SampleWeighted() = %d, only index 2 has weight", got)
		}
	}

	zero := []float64{0, 0}
	if got := SampleWeighted(rng, []int{0, 1}, zero); got < 0 || got > 1 {
		t.Errorf("uniform fallback returned %d", got)
	}
}
