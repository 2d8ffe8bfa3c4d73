package optimizer

import (
	"context"
	"math/rand"
	"testing"

	"github.com/wavepick/wavepick/pkg/model"
	"github.com/wavepick/wavepick/pkg/wave"
	"github.com/wavepick/wavepick/pkg/wave/solver"
)

func randomProblem(t *testing.T, seed int64, orders, aisles, items, lb, ub int) *model.Problem {
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
	p, err := model.NewProblem(items, build(orders, 4), build(aisles, 10), lb, ub)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func construct(t *testing.T, name string, p *model.Problem, seed int64) *wave.Solution {
	t.Helper()
	s, err := solver.New(name)
	if err != nil {
		t.Fatal(err)
	}
	sol, err := s.Solve(context.Background(), p, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatal(err)
	}
	return sol
}

func mustInvariants(t *testing.T, s *wave.Solution) {
	t.Helper()
	if err := s.CheckInvariants(); err != nil {
		t.Fatalf("invariant broken: %v", err)
	}
}

func TestLocalSearch_Monotonic(t *testing.T) {
	for seed := int64(1); seed <= 6; seed++ {
		p := randomProblem(t, seed, 40, 15, 8, 10, 80)
		for _, name := range solver.Names() {
			initial := construct(t, name, p, seed)
			ls := NewLocalSearch(nil)

			sol, err := ls.Optimize(context.Background(), initial)
			if err != nil {
				t.Fatal(err)
			}
			mustInvariants(t, sol)

			if ls.State() != Terminated {
				t.Errorf("%s seed %d: state = %s", name, seed, ls.State())
			}
			for _, step := range ls.Steps() {
				if step.PrevItemTotal >= p.LowerBound && step.Objective <= step.PrevObjective {
					t.Errorf("%s seed %d: step %d went %v -> %v outside the infeasible escape",
						name, seed, step.Iteration, step.PrevObjective, step.Objective)
				}
			}
			if initial.Feasible && sol.Objective < initial.Objective {
				t.Errorf("%s seed %d: local search lost quality %v -> %v", name, seed, initial.Objective, sol.Objective)
			}
		}
	}
}

func TestLocalSearch_KeepsInitial(t *testing.T) {
	p := randomProblem(t, 11, 30, 10, 6, 5, 50)
	initial := construct(t, solver.NameGreedy, p, 1)
	aisles := append([]int(nil), initial.Aisles...)

	if _, err := NewLocalSearch(nil).Optimize(context.Background(), initial); err != nil {
		t.Fatal(err)
	}
	if len(aisles) != len(initial.Aisles) {
		t.Error("Optimize modified the initial solution")
	}
}

func TestLocalSearch_RemovesRedundantFirst(t *testing.T) {
	p, err := model.NewProblem(1,
		[]model.ItemList{model.NewItemList(map[int]int{0: 2})},
		[]model.ItemList{
			model.NewItemList(map[int]int{0: 5}),
			model.NewItemList(map[int]int{0: 3}),
		},
		1, 10)
	if err != nil {
		t.Fatal(err)
	}
	initial := wave.NewSolution(p)
	initial.OpenAisle(0)
	initial.OpenAisle(1)

	sol, err := NewLocalSearch(nil).Optimize(context.Background(), initial)
	if err != nil {
		t.Fatal(err)
	}
	if sol.AisleTotal != 1 || sol.Objective != 2 {
		t.Errorf("aisles = %v, objective = %v", sol.Aisles, sol.Objective)
	}
}

// scenarioB 上下界都是 100，所有通道供给合计不足 100
func scenarioB(t *testing.T) *model.Problem {
	t.Helper()
	p, err := model.NewProblem(2,
		[]model.ItemList{
			model.NewItemList(map[int]int{0: 10}),
			model.NewItemList(map[int]int{1: 8}),
		},
		[]model.ItemList{
			model.NewItemList(map[int]int{0: 20}),
			model.NewItemList(map[int]int{1: 30}),
			model.NewItemList(map[int]int{0: 15, 1: 5}),
		},
		100, 100)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRefiners_ScenarioB(t *testing.T) {
	p := scenarioB(t)

	for _, name := range RefinerNames() {
		t.Run(name, func(t *testing.T) {
			r, err := NewRefiner(name, Options{ALNS: &ALNSConfig{Iterations: 100}})
			if err != nil {
				t.Fatal(err)
			}
			initial := construct(t, solver.NameGreedy, p, 1)
			sol, err := r.Refine(context.Background(), initial, rand.New(rand.NewSource(1)))
			if err != nil {
				t.Fatal(err)
			}
			mustInvariants(t, sol)
			if sol.Objective != 0 || sol.Feasible {
				t.Errorf("Objective = %v, want 0", sol.Objective)
			}
		})
	}
}

func TestNewRefiner_Unknown(t *testing.T) {
	if _, err := NewRefiner("pso", Options{}); err == nil {
		t.Error("expected UNKNOWN_STRATEGY error")
	}
}

func TestALNS_Reproducible(t *testing.T) {
	p := randomProblem(t, 21, 60, 20, 10, 10, 120)
	initial := construct(t, solver.NameGreedy, p, 1)

	run := func() (*wave.Solution, Metrics) {
		alns := NewALNS(&ALNSConfig{Iterations: 300})
		sol, err := alns.Refine(context.Background(), initial, rand.New(rand.NewSource(99)))
		if err != nil {
			t.Fatal(err)
		}
		return sol, alns.Metrics()
	}

	a, ma := run()
	b, mb := run()
	mustInvariants(t, a)

	if !a.SameAisles(b) || a.Objective != b.Objective || len(a.Orders) != len(b.Orders) {
		t.Errorf("same seed gave %v (%v) and %v (%v)", a.Aisles, a.Objective, b.Aisles, b.Objective)
	}
	if ma.Accepted != mb.Accepted || ma.Improvements != mb.Improvements {
		t.Errorf("metrics differ: %+v vs %+v", ma, mb)
	}
}

func TestALNS_BestNeverWorse(t *testing.T) {
	for seed := int64(1); seed <= 4; seed++ {
		p := randomProblem(t, seed, 50, 16, 8, 8, 90)
		initial := construct(t, solver.NameHybrid, p, seed)

		alns := NewALNS(&ALNSConfig{Iterations: 200})
		sol, err := alns.Refine(context.Background(), initial, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatal(err)
		}
		mustInvariants(t, sol)

		if sol.Objective < initial.Objective {
			t.Errorf("seed %d: best %v below initial %v", seed, sol.Objective, initial.Objective)
		}
		m := alns.Metrics()
		if m.Iterations != 200 {
			t.Errorf("Iterations = %d, want 200", m.Iterations)
		}
		if len(m.Snapshots) != 200/50 {
			t.Errorf("len(Snapshots) = %d, want 4", len(m.Snapshots))
		}
		selects := 0
		for _, n := range m.DestroySelects {
			selects += n
		}
		if selects != m.Iterations {
			t.Errorf("destroy selects %d != iterations %d", selects, m.Iterations)
		}
	}
}

func TestALNS_Cancelled(t *testing.T) {
	p := randomProblem(t, 3, 20, 8, 5, 5, 40)
	initial := construct(t, solver.NameGreedy, p, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sol, err := NewALNS(nil).Refine(ctx, initial, rand.New(rand.NewSource(1)))
	if err == nil {
		t.Fatal("expected context error")
	}
	if sol == nil || sol.Objective != initial.Objective {
		t.Error("cancelled run should return the best known solution")
	}
}

func TestDestroyOperators(t *testing.T) {
	p := randomProblem(t, 5, 40, 12, 6, 0, 100)
	base := construct(t, solver.NameGreedy, p, 1)

	for _, op := range defaultDestroyOperators() {
		t.Run(op.name, func(t *testing.T) {
			s := base.Clone()
			before := s.AisleTotal
			op.apply(s, rand.New(rand.NewSource(2)), 3)
			mustInvariants(t, s)
			if s.AisleTotal != before-3 {
				t.Errorf("AisleTotal = %d, want %d", s.AisleTotal, before-3)
			}
		})
	}
}

func TestRepairOperators(t *testing.T) {
	p := randomProblem(t, 6, 40, 12, 6, 0, 100)
	base := construct(t, solver.NameGreedy, p, 1)
	randomRemoval(base, rand.New(rand.NewSource(3)), 4)

	for _, op := range defaultRepairOperators() {
		t.Run(op.name, func(t *testing.T) {
			s := base.Clone()
			op.apply(s, rand.New(rand.NewSource(4)), DefaultALNSConfig())
			mustInvariants(t, s)
			if s.ItemTotal < base.ItemTotal {
				t.Errorf("repair dropped orders: %d -> %d", base.ItemTotal, s.ItemTotal)
			}
		})
	}
}

func TestAcceptanceProbability(t *testing.T) {
	tests := []struct {
		name  string
		delta float64
		temp  float64
		want  float64
	}{
		{"改进总是接受", 0.5, 1, 1},
		{"持平总是接受", 0, 1, 1},
		{"零温度拒绝变差", -0.1, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := acceptanceProbability(tt.delta, tt.temp); got != tt.want {
				t.Errorf("acceptanceProbability() = %v, want %v", got, tt.want)
			}
		})
	}
	if p := acceptanceProbability(-1, 10); p <= 0 || p >= 1 {
		t.Errorf("worse move at positive temperature should have probability in (0,1), got %v", p)
	}
}

func TestSelectOp(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		if got := selectOp([]float64{0, 2, 0}, rng); got != 1 {
			t.Fatalf("selectOp() = %d, want 1", got)
		}
	}
}

func TestClusterVNS(t *testing.T) {
	for seed := int64(1); seed <= 3; seed++ {
		p := randomProblem(t, seed, 40, 16, 8, 10, 80)
		initial := construct(t, solver.NameHybrid, p, seed)

		sol, err := NewClusterVNS(nil, nil).Refine(context.Background(), initial, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatal(err)
		}
		mustInvariants(t, sol)
		if initial.Feasible && sol.Objective < initial.Objective {
			t.Errorf("seed %d: VNS lost quality %v -> %v", seed, initial.Objective, sol.Objective)
		}
	}
}

func TestClusterVNS_CustomPartitioner(t *testing.T) {
	p := randomProblem(t, 8, 30, 10, 6, 5, 60)
	initial := construct(t, solver.NameGreedy, p, 1)

	// 全部通道同簇时 N1 覆盖所有交换
	vns := NewClusterVNS(&VNSConfig{MaxIterations: 100}, make(fixedPartition, p.AisleCount))
	sol, err := vns.Refine(context.Background(), initial, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	mustInvariants(t, sol)
	if initial.Feasible && sol.Objective < initial.Objective {
		t.Errorf("VNS lost quality %v -> %v", initial.Objective, sol.Objective)
	}
}

type fixedPartition []int

func (f fixedPartition) Partition(vectors [][]float64, _ int) []int {
	return f[:len(vectors)]
}

func TestSameClusterSwaps(t *testing.T) {
	p := randomProblem(t, 2, 5, 4, 3, 0, 50)
	s := wave.NewSolution(p)
	s.AddAisle(0)
	s.AddAisle(2)

	moves := sameClusterSwaps(s, fixedPartition{0, 0, 1, 2})
	if len(moves) != 1 || moves[0].In != 1 || moves[0].Out != 0 {
		t.Errorf("moves = %+v, want swap 1 for 0", moves)
	}

	opens := representedOpens(s, fixedPartition{0, 0, 1, 2})
	if len(opens) != 1 || opens[0].In != 1 {
		t.Errorf("opens = %+v, want open 1", opens)
	}
}

func TestTabuList(t *testing.T) {
	tabu := NewTabuList(2)
	tabu.Add(1)
	tabu.Add(2)
	tabu.Add(2)
	tabu.Add(3)

	if tabu.Contains(1) {
		t.Error("oldest entry should be evicted")
	}
	if !tabu.Contains(2) || !tabu.Contains(3) {
		t.Error("recent entries should be kept")
	}
}

func TestAcceptMove(t *testing.T) {
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
	current := wave.NewSolution(p)
	current.OpenAisle(0)

	opened, _ := OpenMove(1).Apply(current)
	visited := NewTabuList(0)
	visited.Add(hashAisles(opened))

	// 下界 3 时只有 2 件，处于逃逸阶段
	below, err := model.NewProblem(1,
		[]model.ItemList{model.NewItemList(map[int]int{0: 2})},
		[]model.ItemList{
			model.NewItemList(map[int]int{0: 5}),
			model.NewItemList(map[int]int{0: 5}),
		},
		3, 10)
	if err != nil {
		t.Fatal(err)
	}
	stuck := wave.NewSolution(below)
	stuck.OpenAisle(0)
	sideways, _ := SwapMove(1, 0).Apply(stuck)
	escaped := NewTabuList(0)
	escaped.Add(hashAisles(sideways))

	tests := []struct {
		name    string
		current *wave.Solution
		moves   []Move
		tabu    *TabuList
		want    bool
	}{
		{"严格改进不受禁忌表限制", current, []Move{OpenMove(1)}, visited, true},
		{"严格改进", current, []Move{OpenMove(1)}, NewTabuList(0), true},
		{"下界以上不接受变差", opened, []Move{CloseMove(1)}, NewTabuList(0), false},
		{"逃逸阶段接受持平移动", stuck, []Move{SwapMove(1, 0)}, NewTabuList(0), true},
		{"逃逸阶段跳过走过的集合", stuck, []Move{SwapMove(1, 0)}, escaped, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, ok := acceptMove(tt.current, tt.moves, tt.tabu)
			if ok != tt.want {
				t.Errorf("acceptMove() = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestMoveApply(t *testing.T) {
	p := randomProblem(t, 4, 10, 3, 4, 0, 50)
	s := wave.NewSolution(p)
	s.OpenAisle(0)

	if _, changed := CloseMove(0).Apply(s); changed {
		t.Error("closing the last aisle should not change the solution")
	}
	c, changed := OpenMove(1).Apply(s)
	if !changed || !c.AisleSelected[1] || s.AisleSelected[1] {
		t.Error("open move should apply to a copy")
	}
	if _, changed := SwapMove(1, 0).Apply(s); !changed {
		t.Error("swap move should change the aisle set")
	}
	if MoveSwap.String() != "swap" {
		t.Errorf("MoveSwap.String() = %q", MoveSwap.String())
	}
}

func TestMultiStart_Deterministic(t *testing.T) {
	p := randomProblem(t, 31, 50, 15, 8, 10, 100)
	factory := func() Pipeline {
		hybrid, _ := solver.New(solver.NameHybrid)
		return Chain(hybrid, NewALNS(&ALNSConfig{Iterations: 50}), NewLocalSearch(nil))
	}

	run := func() (*wave.Solution, []WorkerResult) {
		best, results, err := NewMultiStart(4, 7, factory).Run(context.Background(), p)
		if err != nil {
			t.Fatal(err)
		}
		return best, results
	}

	a, ra := run()
	b, _ := run()
	mustInvariants(t, a)

	if !a.SameAisles(b) || a.Objective != b.Objective {
		t.Errorf("multistart not reproducible: %v vs %v", a.Objective, b.Objective)
	}
	for _, r := range ra {
		if r.Objective > a.Objective {
			t.Errorf("worker %d objective %v beats returned best %v", r.Worker, r.Objective, a.Objective)
		}
		if r.Seed != 7+int64(r.Worker) {
			t.Errorf("worker %d seed = %d", r.Worker, r.Seed)
		}
	}
}

func TestPollination_Deterministic(t *testing.T) {
	p := randomProblem(t, 41, 40, 14, 8, 10, 90)
	cfg := func() *PollinationConfig {
		return &PollinationConfig{PopulationSize: 4, Generations: 20, Plateau: 5, Workers: 3}
	}

	hybrid, _ := solver.New(solver.NameHybrid)
	a, err := NewPollination(cfg(), hybrid, nil).Run(context.Background(), p, 5)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewPollination(cfg(), hybrid, nil).Run(context.Background(), p, 5)
	if err != nil {
		t.Fatal(err)
	}
	mustInvariants(t, a)

	if a.Objective != b.Objective || !a.SameAisles(b) {
		t.Errorf("pollination not reproducible: %v vs %v", a.Objective, b.Objective)
	}
}
