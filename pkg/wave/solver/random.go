package solver

import (
	"context"
	"math/rand"
	"time"

	"github.com/wavepick/wavepick/pkg/logger"
	"github.com/wavepick/wavepick/pkg/model"
	"github.com/wavepick/wavepick/pkg/wave"
)

// RandomSolver 随机构造求解器
type RandomSolver struct{}

// NewRandomSolver 创建随机求解器
func NewRandomSolver() *RandomSolver {
	return &RandomSolver{}
}

// Name 返回求解器名称
func (s *RandomSolver) Name() string {
	return NameRandom
}

// Solve 按随机顺序打开通道，接纳随机长度的可行订单前缀
// 候选没有超过上一个解时停止，除非上一个解仍不可行或为空
func (s *RandomSolver) Solve(ctx context.Context, p *model.Problem, rng *rand.Rand) (*wave.Solution, error) {
	start := time.Now()
	log := logger.NewOptimizerLogger(ctx, NameRandom)
	log.RunStart(p.OrderCount, p.AisleCount, p.ItemCount)

	aisles := rng.Perm(p.AisleCount)
	prev := wave.NewSolution(p)

	for iter, a := range aisles {
		if err := ctx.Err(); err != nil {
			return finish(log, prev, start), err
		}

		cand := prev.Clone()
		cand.AddAisle(a)

		fitting := make([]int, 0)
		for o := 0; o < p.OrderCount; o++ {
			if !cand.OrderSelected[o] && cand.Fits(o) {
				fitting = append(fitting, o)
			}
		}
		rng.Shuffle(len(fitting), func(i, j int) { fitting[i], fitting[j] = fitting[j], fitting[i] })

		take := len(fitting)
		if cand.ItemTotal >= p.LowerBound {
			take = rng.Intn(len(fitting) + 1)
		}
		for _, o := range fitting[:take] {
			cand.AdmitOrder(o)
		}
		cand.Evaluate()

		if cand.Objective <= prev.Objective && prev.Feasible && len(prev.Orders) > 0 {
			break
		}
		if cand.Objective > prev.Objective {
			log.Improvement(iter, cand.Objective, cand.ItemTotal, cand.AisleTotal)
		}
		prev = cand
	}

	return finish(log, prev, start), nil
}
