package optimizer

import (
	"context"
	"math"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/wavepick/wavepick/pkg/logger"
	"github.com/wavepick/wavepick/pkg/wave"
)

// ALNSConfig 自适应大邻域搜索配置
type ALNSConfig struct {
	Iterations    int     `json:"iterations" yaml:"iterations"`         // 迭代预算
	InitialTemp   float64 `json:"initial_temp" yaml:"initial_temp"`     // 模拟退火初始温度
	Cooling       float64 `json:"cooling" yaml:"cooling"`               // 每轮降温系数
	DestroyMin    float64 `json:"destroy_min" yaml:"destroy_min"`       // 破坏比例下限
	DestroyMax    float64 `json:"destroy_max" yaml:"destroy_max"`       // 破坏比例上限
	LearningRate  float64 `json:"learning_rate" yaml:"learning_rate"`   // 算子权重平滑系数
	HybridAlpha   float64 `json:"hybrid_alpha" yaml:"hybrid_alpha"`     // 混合修复的探索概率
	TopK          int     `json:"top_k" yaml:"top_k"`                   // 混合修复的候选范围
	SnapshotEvery int     `json:"snapshot_every" yaml:"snapshot_every"` // 权重快照间隔
}

// DefaultALNSConfig 默认配置
func DefaultALNSConfig() *ALNSConfig {
	return &ALNSConfig{
		Iterations:    1000,
		InitialTemp:   10,
		Cooling:       0.999,
		DestroyMin:    0.10,
		DestroyMax:    0.25,
		LearningRate:  0.1,
		HybridAlpha:   0.2,
		TopK:          5,
		SnapshotEvery: 50,
	}
}

// normalize 用默认值补齐非法配置
func (c *ALNSConfig) normalize() {
	def := DefaultALNSConfig()
	if c.Iterations <= 0 {
		c.Iterations = def.Iterations
	}
	if c.InitialTemp <= 0 {
		c.InitialTemp = def.InitialTemp
	}
	if c.Cooling <= 0 || c.Cooling >= 1 {
		c.Cooling = def.Cooling
	}
	if c.DestroyMin <= 0 || c.DestroyMin > 1 {
		c.DestroyMin = def.DestroyMin
	}
	if c.DestroyMax < c.DestroyMin || c.DestroyMax > 1 {
		c.DestroyMax = math.Max(c.DestroyMin, def.DestroyMax)
	}
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		c.LearningRate = def.LearningRate
	}
	if c.HybridAlpha < 0 || c.HybridAlpha > 1 {
		c.HybridAlpha = def.HybridAlpha
	}
	if c.TopK <= 0 {
		c.TopK = def.TopK
	}
	if c.SnapshotEvery <= 0 {
		c.SnapshotEvery = def.SnapshotEvery
	}
}

// Metrics ALNS 运行统计
type Metrics struct {
	DestroyNames        []string         `json:"destroy_names"`
	RepairNames         []string         `json:"repair_names"`
	DestroySelects      []int            `json:"destroy_selects"`
	RepairSelects       []int            `json:"repair_selects"`
	Iterations          int              `json:"iterations"`
	Accepted            int              `json:"accepted"`
	AcceptedWorse       int              `json:"accepted_worse"`
	Improvements        int              `json:"improvements"`
	InitialObjective    float64          `json:"initial_objective"`
	BestObjective       float64          `json:"best_objective"`
	FinalTemperature    float64          `json:"final_temperature"`
	FinalDestroyWeights []float64        `json:"final_destroy_weights"`
	FinalRepairWeights  []float64        `json:"final_repair_weights"`
	Snapshots           []WeightSnapshot `json:"snapshots"`
}

// WeightSnapshot 算子权重快照
type WeightSnapshot struct {
	Iteration int       `json:"iteration"`
	Destroy   []float64 `json:"destroy"`
	Repair    []float64 `json:"repair"`
}

// ALNS 自适应大邻域搜索
// 不能并发使用，并行场景每个工作协程持有自己的实例
type ALNS struct {
	config  *ALNSConfig
	destroy []destroyOperator
	repair  []repairOperator
	metrics Metrics
}

// NewALNS 创建 ALNS 优化器
func NewALNS(config *ALNSConfig) *ALNS {
	if config == nil {
		config = DefaultALNSConfig()
	}
	config.normalize()
	return &ALNS{
		config:  config,
		destroy: defaultDestroyOperators(),
		repair:  defaultRepairOperators(),
	}
}

// Name 返回优化器名称
func (o *ALNS) Name() string {
	return NameALNS
}

// Metrics 返回最近一次运行的统计
func (o *ALNS) Metrics() Metrics {
	return o.metrics
}

// Refine 运行 ALNS，返回迭代中出现过的最优解
func (o *ALNS) Refine(ctx context.Context, initial *wave.Solution, rng *rand.Rand) (*wave.Solution, error) {
	start := time.Now()
	cfg := o.config
	p := initial.Problem()
	log := logger.NewOptimizerLogger(ctx, NameALNS)
	log.RunStart(p.OrderCount, p.AisleCount, p.ItemCount)

	aisleWeights := wave.Scores(p.Aisles, wave.DemandWeights(p, wave.NoClamp))

	current := initial.Clone()
	best := initial.Clone()

	destroyW := uniformWeights(len(o.destroy))
	repairW := uniformWeights(len(o.repair))
	m := Metrics{
		DestroyNames:     make([]string, len(o.destroy)),
		RepairNames:      make([]string, len(o.repair)),
		DestroySelects:   make([]int, len(o.destroy)),
		RepairSelects:    make([]int, len(o.repair)),
		InitialObjective: initial.Objective,
		BestObjective:    best.Objective,
	}
	for i, op := range o.destroy {
		m.DestroyNames[i] = op.name
	}
	for i, op := range o.repair {
		m.RepairNames[i] = op.name
	}

	progress := rate.Sometimes{First: 1, Every: 100, Interval: 5 * time.Second}
	temperature := cfg.InitialTemp

	var err error
	for iter := 0; iter < cfg.Iterations; iter++ {
		if err = ctx.Err(); err != nil {
			break
		}
		m.Iterations++

		di := selectOp(destroyW, rng)
		ri := selectOp(repairW, rng)
		m.DestroySelects[di]++
		m.RepairSelects[ri]++

		cand := current.Clone()
		o.destroy[di].apply(cand, rng, o.removalCount(cand, rng))
		o.repair[ri].apply(cand, rng, cfg)
		grow(cand, aisleWeights)
		cand.Evaluate()

		delta := cand.Objective - current.Objective
		if delta >= 0 || rng.Float64() < acceptanceProbability(delta, temperature) {
			m.Accepted++
			if delta < 0 {
				m.AcceptedWorse++
			}
			reward := 1 + math.Max(0, delta)
			destroyW[di] = (1-cfg.LearningRate)*destroyW[di] + cfg.LearningRate*reward
			repairW[ri] = (1-cfg.LearningRate)*repairW[ri] + cfg.LearningRate*reward
			current = cand
		}

		if cand.Objective > best.Objective {
			best = cand.Clone()
			m.Improvements++
			m.BestObjective = best.Objective
			log.Improvement(iter, best.Objective, best.ItemTotal, best.AisleTotal)
		}

		temperature *= cfg.Cooling

		if m.Iterations%cfg.SnapshotEvery == 0 {
			m.Snapshots = append(m.Snapshots, WeightSnapshot{
				Iteration: m.Iterations,
				Destroy:   append([]float64(nil), destroyW...),
				Repair:    append([]float64(nil), repairW...),
			})
		}
		progress.Do(func() {
			log.Progress(iter, current.Objective, best.Objective, temperature)
		})
	}

	m.FinalTemperature = temperature
	m.FinalDestroyWeights = destroyW
	m.FinalRepairWeights = repairW
	o.metrics = m

	best.Elapsed = initial.Elapsed + time.Since(start)
	log.RunComplete(time.Since(start), best.Objective, best.Feasible)
	return best, err
}

// removalCount 按配置比例随机决定破坏的通道数，至少一个
func (o *ALNS) removalCount(s *wave.Solution, rng *rand.Rand) int {
	if s.AisleTotal == 0 {
		return 0
	}
	frac := o.config.DestroyMin + rng.Float64()*(o.config.DestroyMax-o.config.DestroyMin)
	n := int(frac * float64(s.AisleTotal))
	if n < 1 {
		n = 1
	}
	if n > s.AisleTotal {
		n = s.AisleTotal
	}
	return n
}

// acceptanceProbability 最大化问题的模拟退火接受概率
// delta: 目标值变化 (new - old)
func acceptanceProbability(delta, temperature float64) float64 {
	if delta >= 0 {
		return 1.0
	}
	if temperature <= 0 {
		return 0.0
	}
	return math.Exp(delta / temperature)
}

// selectOp 轮盘赌选择算子
func selectOp(weights []float64, rng *rand.Rand) int {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return 0
	}
	r := rng.Float64() * sum
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc {
			return i
		}
	}
	return len(weights) - 1
}

func uniformWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}
