// Package solver 提供构造初始波次的启发式求解器
package solver

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/wavepick/wavepick/pkg/errors"
	"github.com/wavepick/wavepick/pkg/logger"
	"github.com/wavepick/wavepick/pkg/model"
	"github.com/wavepick/wavepick/pkg/wave"
)

// Solver 构造求解器接口
type Solver interface {
	// Solve 构造一个波次，rng 为本次运行独占的随机源
	Solve(ctx context.Context, p *model.Problem, rng *rand.Rand) (*wave.Solution, error)

	// Name 返回求解器名称
	Name() string
}

const (
	NameGreedy = "greedy"
	NameHybrid = "hybrid"
	NameRandom = "random"
)

var registry = map[string]func() Solver{
	NameGreedy: func() Solver { return NewGreedySolver() },
	NameHybrid: func() Solver { return NewHybridSolver(DefaultPatience) },
	NameRandom: func() Solver { return NewRandomSolver() },
}

// New 按名称创建求解器
func New(name string) (Solver, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, errors.UnknownStrategy("constructive", name)
	}
	return factory(), nil
}

// Names 返回已注册的求解器名称
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// finish 记录耗时和完成日志
func finish(log *logger.OptimizerLogger, sol *wave.Solution, start time.Time) *wave.Solution {
	sol.Elapsed = time.Since(start)
	log.RunComplete(sol.Elapsed, sol.Objective, sol.Feasible)
	return sol
}
