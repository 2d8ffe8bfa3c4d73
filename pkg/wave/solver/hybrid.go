package solver

import (
	"context"
	"math/rand"
	"time"

	"github.com/wavepick/wavepick/pkg/logger"
	"github.com/wavepick/wavepick/pkg/model"
	"github.com/wavepick/wavepick/pkg/wave"
)

// DefaultPatience 连续未改进的通道尝试次数上限
const DefaultPatience = 3

// HybridSolver 加权随机抽样通道的混合求解器
type HybridSolver struct {
	patience int
}

// NewHybridSolver 创建混合求解器
func NewHybridSolver(patience int) *HybridSolver {
	if patience <= 0 {
		patience = DefaultPatience
	}
	return &HybridSolver{patience: patience}
}

// Name 返回求解器名称
func (s *HybridSolver) Name() string {
	return NameHybrid
}

// Solve 按权重无放回抽取通道，改进目标或仍低于下界时接受
func (s *HybridSolver) Solve(ctx context.Context, p *model.Problem, rng *rand.Rand) (*wave.Solution, error) {
	start := time.Now()
	log := logger.NewOptimizerLogger(ctx, NameHybrid)
	log.RunStart(p.OrderCount, p.AisleCount, p.ItemCount)

	scores := wave.Scores(p.Aisles, wave.DemandWeights(p, wave.NoClamp))
	pool := make([]int, p.AisleCount)
	for i := range pool {
		pool[i] = i
	}

	best := wave.NewSolution(p)
	failures := 0
	for iter := 0; len(pool) > 0 && failures < s.patience; iter++ {
		if err := ctx.Err(); err != nil {
			return finish(log, best, start), err
		}

		i := SampleWeighted(rng, pool, scores)
		a := pool[i]
		pool = append(pool[:i], pool[i+1:]...)

		cand := best.Clone()
		cand.OpenAisle(a)
		if cand.Objective > best.Objective || cand.ItemTotal < p.LowerBound {
			if cand.Objective > best.Objective {
				log.Improvement(iter, cand.Objective, cand.ItemTotal, cand.AisleTotal)
			}
			best = cand
			failures = 0
			continue
		}
		failures++
	}

	return finish(log, best, start), nil
}

// SampleWeighted 按权重从候选中抽取一个下标，权重全为 0 时均匀抽取
func SampleWeighted(rng *rand.Rand, candidates []int, weights []float64) int {
	total := 0.0
	for _, c := range candidates {
		total += weights[c]
	}
	if total <= 0 {
		return rng.Intn(len(candidates))
	}
	r := rng.Float64() * total
	for i, c := range candidates {
		r -= weights[c]
		if r < 0 {
			return i
		}
	}
	return len(candidates) - 1
}
