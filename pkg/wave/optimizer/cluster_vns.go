package optimizer

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/wavepick/wavepick/pkg/logger"
	"github.com/wavepick/wavepick/pkg/wave"
	"github.com/wavepick/wavepick/pkg/wave/cluster"
)

// VNSConfig 聚类 VNS 配置
type VNSConfig struct {
	Clusters      int `json:"clusters" yaml:"clusters"`             // 簇数，0 时取 √通道数
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"` // 最大迭代次数
	TabuSize      int `json:"tabu_size" yaml:"tabu_size"`           // 禁忌表大小
	KMeansIter    int `json:"kmeans_iter" yaml:"kmeans_iter"`       // k-means 迭代上限
}

// DefaultVNSConfig 默认配置
func DefaultVNSConfig() *VNSConfig {
	return &VNSConfig{
		Clusters:      0,
		MaxIterations: 500,
		TabuSize:      200,
		KMeansIter:    50,
	}
}

// ClusterVNS 按通道聚类限制邻域的变邻域搜索
// N1 同簇交换，N2 关闭，N3 打开已有代表的簇中的通道
type ClusterVNS struct {
	config      *VNSConfig
	partitioner cluster.Partitioner
}

// NewClusterVNS 创建聚类 VNS，partitioner 为 nil 时每次运行用 rng 构造 k-means
func NewClusterVNS(config *VNSConfig, partitioner cluster.Partitioner) *ClusterVNS {
	if config == nil {
		config = DefaultVNSConfig()
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = DefaultVNSConfig().MaxIterations
	}
	return &ClusterVNS{config: config, partitioner: partitioner}
}

// Name 返回优化器名称
func (o *ClusterVNS) Name() string {
	return NameClusterVNS
}

// Refine 运行聚类 VNS
func (o *ClusterVNS) Refine(ctx context.Context, initial *wave.Solution, rng *rand.Rand) (*wave.Solution, error) {
	start := time.Now()
	p := initial.Problem()
	log := logger.NewOptimizerLogger(ctx, NameClusterVNS)

	current := initial.Clone()
	current.RemoveRedundantAisles()

	labels := o.partition(initial, rng)
	tabu := NewTabuList(o.config.TabuSize)
	tabu.Add(hashAisles(current))
	skip := func(c *wave.Solution) bool { return tabu.Contains(hashAisles(c)) }

	neighborhoods := []func(*wave.Solution, []int) []Move{sameClusterSwaps, closeMoves, representedOpens}

	var err error
	k := 0
	for iter := 0; iter < o.config.MaxIterations && k < len(neighborhoods); iter++ {
		if err = ctx.Err(); err != nil {
			break
		}
		cand, _, ok := bestMove(current, neighborhoods[k](current, labels), skip)
		if !ok || !improves(cand, current, p.LowerBound) {
			k++
			continue
		}
		if cand.Objective > current.Objective {
			log.Improvement(iter, cand.Objective, cand.ItemTotal, cand.AisleTotal)
		}
		tabu.Add(hashAisles(cand))
		current = cand
		k = 0
	}

	current.Elapsed = initial.Elapsed + time.Since(start)
	log.RunComplete(time.Since(start), current.Objective, current.Feasible)
	return current, err
}

// improves 目标值严格提高，或当前低于下界时物品数增加
func improves(cand, current *wave.Solution, lowerBound int) bool {
	if cand.Objective > current.Objective {
		return true
	}
	return current.ItemTotal < lowerBound && cand.ItemTotal > current.ItemTotal && cand.Objective >= current.Objective
}

func (o *ClusterVNS) partition(s *wave.Solution, rng *rand.Rand) []int {
	p := s.Problem()
	vectors := make([][]float64, p.AisleCount)
	for a, list := range p.Aisles {
		vectors[a] = list.Dense(p.ItemCount)
	}
	k := o.config.Clusters
	if k <= 0 {
		k = int(math.Sqrt(float64(p.AisleCount)))
	}
	partitioner := o.partitioner
	if partitioner == nil {
		partitioner = cluster.NewKMeans(rng, o.config.KMeansIter)
	}
	return partitioner.Partition(vectors, k)
}

// sameClusterSwaps N1：已选择通道与同簇未选择通道交换
func sameClusterSwaps(s *wave.Solution, labels []int) []Move {
	moves := make([]Move, 0)
	for _, out := range s.Aisles {
		for in, sel := range s.AisleSelected {
			if !sel && labels[in] == labels[out] {
				moves = append(moves, SwapMove(in, out))
			}
		}
	}
	return moves
}

// closeMoves N2：关闭任一已选择通道
func closeMoves(s *wave.Solution, _ []int) []Move {
	moves := make([]Move, 0, len(s.Aisles))
	for _, out := range s.Aisles {
		moves = append(moves, CloseMove(out))
	}
	return moves
}

// representedOpens N3：打开所在簇已有已选择通道的未选择通道，解为空时不限簇
func representedOpens(s *wave.Solution, labels []int) []Move {
	represented := make(map[int]bool)
	for _, a := range s.Aisles {
		represented[labels[a]] = true
	}
	moves := make([]Move, 0)
	for in, sel := range s.AisleSelected {
		if !sel && (len(represented) == 0 || represented[labels[in]]) {
			moves = append(moves, OpenMove(in))
		}
	}
	return moves
}
