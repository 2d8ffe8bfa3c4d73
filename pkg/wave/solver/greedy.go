package solver

import (
	"context"
	"math/rand"
	"time"

	"github.com/wavepick/wavepick/pkg/logger"
	"github.com/wavepick/wavepick/pkg/model"
	"github.com/wavepick/wavepick/pkg/wave"
)

// GreedySolver 按物品集中度排序的贪心求解器
type GreedySolver struct{}

// NewGreedySolver 创建贪心求解器
func NewGreedySolver() *GreedySolver {
	return &GreedySolver{}
}

// Name 返回求解器名称
func (s *GreedySolver) Name() string {
	return NameGreedy
}

// Solve 依次打开所有按得分排序的通道，每次打开后按订单排名接纳
// 不使用随机源
func (s *GreedySolver) Solve(ctx context.Context, p *model.Problem, _ *rand.Rand) (*wave.Solution, error) {
	start := time.Now()
	log := logger.NewOptimizerLogger(ctx, NameGreedy)
	log.RunStart(p.OrderCount, p.AisleCount, p.ItemCount)

	weights := wave.ConcentrationWeights(p)
	orderRank := wave.RankDescending(wave.Scores(p.Orders, weights))
	aisleRank := wave.RankDescending(wave.Scores(p.Aisles, weights))

	sol := wave.NewSolution(p)
	for _, a := range aisleRank {
		if err := ctx.Err(); err != nil {
			sol.Evaluate()
			return finish(log, sol, start), err
		}
		sol.AddAisle(a)
		for _, o := range orderRank {
			sol.AdmitOrder(o)
		}
	}
	sol.Evaluate()

	return finish(log, sol, start), nil
}
