package optimizer

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/wavepick/wavepick/pkg/logger"
	"github.com/wavepick/wavepick/pkg/model"
	"github.com/wavepick/wavepick/pkg/wave"
	"github.com/wavepick/wavepick/pkg/wave/solver"
)

// Pipeline 单个工作协程的完整求解流程
type Pipeline func(ctx context.Context, p *model.Problem, rng *rand.Rand) (*wave.Solution, error)

// Chain 组合构造求解器和若干改进算法，改进算法共享同一个随机源
func Chain(construct solver.Solver, refiners ...Refiner) Pipeline {
	return func(ctx context.Context, p *model.Problem, rng *rand.Rand) (*wave.Solution, error) {
		sol, err := construct.Solve(ctx, p, rng)
		if err != nil {
			return sol, err
		}
		for _, r := range refiners {
			next, err := r.Refine(ctx, sol, rng)
			if next != nil {
				sol = next
			}
			if err != nil {
				return sol, err
			}
		}
		return sol, nil
	}
}

// PipelineFactory 为每个工作协程创建独立的求解流程
// 改进算法带有运行状态，不能在协程之间共享
type PipelineFactory func() Pipeline

// WorkerResult 单个工作协程的结果
type WorkerResult struct {
	Worker    int            `json:"worker"`
	Seed      int64          `json:"seed"`
	Objective float64        `json:"objective"`
	Feasible  bool           `json:"feasible"`
	Solution  *wave.Solution `json:"-"`
	Err       error          `json:"-"`
}

// MultiStart 多起点并行求解
// 每个工作协程持有独立的随机源 seed+i，共享只读的问题实例
type MultiStart struct {
	workers int
	seed    int64
	factory PipelineFactory
}

// NewMultiStart 创建多起点求解器
func NewMultiStart(workers int, seed int64, factory PipelineFactory) *MultiStart {
	if workers <= 0 {
		workers = 4
	}
	return &MultiStart{workers: workers, seed: seed, factory: factory}
}

// Run 并行运行所有工作协程，返回目标值最高的解，同分取编号小的工作协程
func (m *MultiStart) Run(ctx context.Context, p *model.Problem) (*wave.Solution, []WorkerResult, error) {
	log := logger.NewOptimizerLogger(ctx, "multistart")
	start := time.Now()

	results := make([]WorkerResult, m.workers)
	var wg sync.WaitGroup
	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			seed := m.seed + int64(worker)
			pipeline := m.factory()
			sol, err := pipeline(ctx, p, rand.New(rand.NewSource(seed)))
			r := WorkerResult{Worker: worker, Seed: seed, Solution: sol, Err: err}
			if sol != nil {
				r.Objective = sol.Objective
				r.Feasible = sol.Feasible
			}
			results[worker] = r
		}(i)
	}
	wg.Wait()

	var best *wave.Solution
	var firstErr error
	for _, r := range results {
		if r.Err != nil && firstErr == nil {
			firstErr = r.Err
		}
		if r.Solution != nil && (best == nil || r.Solution.Objective > best.Objective) {
			best = r.Solution
		}
	}

	if best != nil {
		log.Logger().Info().
			Int("workers", m.workers).
			Float64("best", best.Objective).
			Dur("duration", time.Since(start)).
			Msg("多起点求解完成")
	}
	return best, results, firstErr
}

// PollinationConfig 种群授粉搜索配置
type PollinationConfig struct {
	PopulationSize int `json:"population_size" yaml:"population_size"` // 种群规模
	Generations    int `json:"generations" yaml:"generations"`         // 最大代数
	Plateau        int `json:"plateau" yaml:"plateau"`                 // 连续无改进代数上限
	Workers        int `json:"workers" yaml:"workers"`                 // 并行工作数
}

// DefaultPollinationConfig 默认配置
func DefaultPollinationConfig() *PollinationConfig {
	return &PollinationConfig{
		PopulationSize: 10,
		Generations:    500,
		Plateau:        50,
		Workers:        4,
	}
}

// Pollination 种群授粉搜索
// 每一代对每个成员做随机扰动和最优邻域局部搜索，变好时替换该成员
type Pollination struct {
	config    *PollinationConfig
	construct solver.Solver
	search    *LocalSearchConfig
}

// NewPollination 创建种群授粉搜索
func NewPollination(config *PollinationConfig, construct solver.Solver, search *LocalSearchConfig) *Pollination {
	def := DefaultPollinationConfig()
	if config == nil {
		config = def
	}
	if config.PopulationSize <= 0 {
		config.PopulationSize = def.PopulationSize
	}
	if config.Generations <= 0 {
		config.Generations = def.Generations
	}
	if config.Plateau <= 0 {
		config.Plateau = def.Plateau
	}
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	return &Pollination{config: config, construct: construct, search: search}
}

// member 种群成员，持有私有随机源
type member struct {
	sol *wave.Solution
	rng *rand.Rand
}

// Run 构造初始种群并迭代，返回全局最优解
func (o *Pollination) Run(ctx context.Context, p *model.Problem, seed int64) (*wave.Solution, error) {
	start := time.Now()
	log := logger.NewOptimizerLogger(ctx, "pollination")
	log.RunStart(p.OrderCount, p.AisleCount, p.ItemCount)

	population := make([]*member, o.config.PopulationSize)
	for i := range population {
		rng := rand.New(rand.NewSource(seed + int64(i)))
		sol, err := o.construct.Solve(ctx, p, rng)
		if err != nil {
			return sol, err
		}
		population[i] = &member{sol: sol, rng: rng}
	}

	best := population[0].sol
	for _, m := range population[1:] {
		if m.sol.Objective > best.Objective {
			best = m.sol
		}
	}
	best = best.Clone()

	weights := wave.Scores(p.Aisles, wave.DemandWeights(p, wave.NoClamp))
	stale := 0
	for gen := 0; gen < o.config.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			best.Elapsed = time.Since(start)
			return best, err
		}

		o.pollinate(ctx, population, weights)

		improved := false
		for _, m := range population {
			if m.sol.Objective > best.Objective {
				best = m.sol.Clone()
				improved = true
			}
		}
		if improved {
			stale = 0
			log.Improvement(gen, best.Objective, best.ItemTotal, best.AisleTotal)
			continue
		}
		stale++
		if stale >= o.config.Plateau {
			log.Logger().Debug().Int("generation", gen).Msg("连续多代无改进，停止")
			break
		}
	}

	best.Elapsed = time.Since(start)
	log.RunComplete(best.Elapsed, best.Objective, best.Feasible)
	return best, nil
}

// pollinate 并行处理一代，成员之间互不共享状态
func (o *Pollination) pollinate(ctx context.Context, population []*member, weights []float64) {
	jobs := make(chan *member, len(population))
	for _, m := range population {
		jobs <- m
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < o.config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			search := NewLocalSearch(o.copySearchConfig())
			for m := range jobs {
				if ctx.Err() != nil {
					return
				}
				cand := m.sol.Clone()
				perturb(cand, m.rng, weights)
				next, err := search.Optimize(ctx, cand)
				if err != nil || next.Objective <= m.sol.Objective {
					continue
				}
				m.sol = next
			}
		}()
	}
	wg.Wait()
}

func (o *Pollination) copySearchConfig() *LocalSearchConfig {
	if o.search == nil {
		return DefaultLocalSearchConfig()
	}
	c := *o.search
	return &c
}

// perturb 随机移除至多四分之一的通道，再补足下界并重新接纳订单
func perturb(s *wave.Solution, rng *rand.Rand, weights []float64) {
	if s.AisleTotal > 0 {
		limit := s.AisleTotal / 4
		if limit < 1 {
			limit = 1
		}
		randomRemoval(s, rng, 1+rng.Intn(limit))
	}
	grow(s, weights)
	s.AdmitOrders()
	s.Evaluate()
}
