// Package optimizer 提供波次的改进算法：最优邻域局部搜索、聚类 VNS、ALNS 和并行种群
package optimizer

import (
	"context"
	"math/rand"
	"time"

	"github.com/wavepick/wavepick/pkg/logger"
	"github.com/wavepick/wavepick/pkg/wave"
)

// State 局部搜索状态
type State int

const (
	Exploring  State = iota // 仍在探索邻域
	Terminated              // 没有可接受的移动，已终止
)

// String 返回状态名称
func (s State) String() string {
	if s == Terminated {
		return "terminated"
	}
	return "exploring"
}

// LocalSearchConfig 局部搜索配置
type LocalSearchConfig struct {
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"` // 最大迭代次数
	TabuSize      int `json:"tabu_size" yaml:"tabu_size"`           // 禁忌表大小，0 为不限
}

// DefaultLocalSearchConfig 默认局部搜索配置
func DefaultLocalSearchConfig() *LocalSearchConfig {
	return &LocalSearchConfig{
		MaxIterations: 10000,
		TabuSize:      0,
	}
}

// Step 一次被接受的移动
type Step struct {
	Iteration     int     `json:"iteration"`
	Move          Move    `json:"move"`
	PrevObjective float64 `json:"prev_objective"`
	PrevItemTotal int     `json:"prev_item_total"`
	Objective     float64 `json:"objective"`
	ItemTotal     int     `json:"item_total"`
}

// LocalSearch 最优邻域局部搜索
// 每轮比较打开最重通道、用最重通道替换最轻通道、关闭最轻通道三个候选
// 不能并发使用，并行场景每个工作协程持有自己的实例
type LocalSearch struct {
	config *LocalSearchConfig
	state  State
	steps  []Step
}

// NewLocalSearch 创建局部搜索优化器
func NewLocalSearch(config *LocalSearchConfig) *LocalSearch {
	if config == nil {
		config = DefaultLocalSearchConfig()
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = DefaultLocalSearchConfig().MaxIterations
	}
	return &LocalSearch{config: config}
}

// Name 返回优化器名称
func (o *LocalSearch) Name() string {
	return NameLocalSearch
}

// State 返回最近一次运行的状态
func (o *LocalSearch) State() State {
	return o.state
}

// Steps 返回最近一次运行接受的移动
func (o *LocalSearch) Steps() []Step {
	return o.steps
}

// Refine 实现 Refiner，局部搜索不使用随机源
func (o *LocalSearch) Refine(ctx context.Context, initial *wave.Solution, _ *rand.Rand) (*wave.Solution, error) {
	return o.Optimize(ctx, initial)
}

// Optimize 从初始解出发做最优邻域爬山，初始解保持不变
func (o *LocalSearch) Optimize(ctx context.Context, initial *wave.Solution) (*wave.Solution, error) {
	start := time.Now()
	p := initial.Problem()
	log := logger.NewOptimizerLogger(ctx, NameLocalSearch)

	current := initial.Clone()
	current.RemoveRedundantAisles()

	weights := wave.Scores(p.Aisles, wave.DemandWeights(p, p.UpperBound))
	tabu := NewTabuList(o.config.TabuSize)
	tabu.Add(hashAisles(current))

	o.state = Exploring
	o.steps = o.steps[:0]

	log.Logger().Debug().
		Float64("initial", initial.Objective).
		Int("aisles", current.AisleTotal).
		Msg("开始局部搜索")

	var err error
	for i := 0; o.state == Exploring; i++ {
		if i >= o.config.MaxIterations {
			log.Logger().Warn().Int("iterations", i).Msg("达到最大迭代次数")
			break
		}
		if err = ctx.Err(); err != nil {
			break
		}

		maxAisle, minAisle := extremeAisles(current, weights)
		moves := make([]Move, 0, 3)
		if maxAisle >= 0 {
			moves = append(moves, OpenMove(maxAisle))
		}
		if maxAisle >= 0 && minAisle >= 0 {
			moves = append(moves, SwapMove(maxAisle, minAisle))
		}
		if minAisle >= 0 {
			moves = append(moves, CloseMove(minAisle))
		}

		cand, move, ok := acceptMove(current, moves, tabu)
		if !ok {
			o.state = Terminated
			break
		}

		o.steps = append(o.steps, Step{
			Iteration:     i,
			Move:          move,
			PrevObjective: current.Objective,
			PrevItemTotal: current.ItemTotal,
			Objective:     cand.Objective,
			ItemTotal:     cand.ItemTotal,
		})
		if cand.Objective > current.Objective {
			log.Improvement(i, cand.Objective, cand.ItemTotal, cand.AisleTotal)
		}
		tabu.Add(hashAisles(cand))
		current = cand
	}

	current.Elapsed = initial.Elapsed + time.Since(start)
	log.RunComplete(time.Since(start), current.Objective, current.Feasible)
	return current, err
}

// acceptMove 严格改进的最优候选总是接受
// 件数低于下界时允许目标值不变的移动，此时跳过走过的通道集合
func acceptMove(current *wave.Solution, moves []Move, tabu *TabuList) (*wave.Solution, Move, bool) {
	cand, move, ok := bestMove(current, moves, nil)
	if ok && cand.Objective > current.Objective {
		return cand, move, true
	}
	if current.ItemTotal >= current.Problem().LowerBound {
		return nil, Move{}, false
	}
	cand, move, ok = bestMove(current, moves, func(c *wave.Solution) bool {
		return tabu.Contains(hashAisles(c))
	})
	if !ok || cand.Objective < current.Objective {
		return nil, Move{}, false
	}
	return cand, move, true
}

// extremeAisles 返回权重最大的未选择通道和权重最小的已选择通道，同权重取编号小的
// 不存在时为 -1
func extremeAisles(s *wave.Solution, weights []float64) (int, int) {
	maxAisle, minAisle := -1, -1
	for a, sel := range s.AisleSelected {
		if sel {
			if minAisle < 0 || weights[a] < weights[minAisle] {
				minAisle = a
			}
			continue
		}
		if maxAisle < 0 || weights[a] > weights[maxAisle] {
			maxAisle = a
		}
	}
	return maxAisle, minAisle
}
