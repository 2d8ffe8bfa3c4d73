// Package runner 编排一次完整的波次求解
// 构造 → 改进（单线程、多起点或种群）→ 可选局部搜索收尾 → 独立校验 → 输出
package runner

import (
	"context"
	stderrors "errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wavepick/wavepick/internal/cache"
	"github.com/wavepick/wavepick/internal/config"
	"github.com/wavepick/wavepick/internal/metrics"
	"github.com/wavepick/wavepick/internal/repository"
	"github.com/wavepick/wavepick/pkg/errors"
	"github.com/wavepick/wavepick/pkg/logger"
	"github.com/wavepick/wavepick/pkg/model"
	"github.com/wavepick/wavepick/pkg/stats"
	"github.com/wavepick/wavepick/pkg/validator"
	"github.com/wavepick/wavepick/pkg/wave"
	"github.com/wavepick/wavepick/pkg/wave/optimizer"
	"github.com/wavepick/wavepick/pkg/wave/solver"
)

// idleAisles 结果中列出的低利用率通道数
const idleAisles = 5

// Options 单次运行参数
type Options struct {
	Dataset      string
	Constructive string
	Refinement   string
	Polish       bool
	Population   bool
	Seed         int64
	Workers      int
	Timeout      time.Duration

	LocalSearch optimizer.LocalSearchConfig
	VNS         optimizer.VNSConfig
	ALNS        optimizer.ALNSConfig
	Pollination optimizer.PollinationConfig
}

// OptionsFromConfig 由应用配置生成运行参数
func OptionsFromConfig(cfg *config.Config, dataset string) Options {
	return Options{
		Dataset:      dataset,
		Constructive: cfg.Solver.Constructive,
		Refinement:   cfg.Solver.Refinement,
		Polish:       cfg.Solver.Polish,
		Population:   cfg.Solver.Population,
		Seed:         cfg.Solver.Seed,
		Workers:      cfg.Solver.Workers,
		Timeout:      cfg.Solver.Timeout,
		LocalSearch:  cfg.LocalSearch,
		VNS:          cfg.VNS,
		ALNS:         cfg.ALNS,
		Pollination:  cfg.Pollination,
	}
}

// Result 运行结果
type Result struct {
	RunID    string                   `json:"run_id"`
	Record   *repository.RunRecord    `json:"record"`
	Report   *validator.Report        `json:"report"`
	Stats    *stats.WaveMetrics       `json:"stats"`
	ALNS     []optimizer.Metrics      `json:"alns,omitempty"`
	Workers  []optimizer.WorkerResult `json:"workers,omitempty"`
	Improved bool                     `json:"improved"` // 刷新了已知最优
	Warnings []string                 `json:"warnings,omitempty"`

	Solution *wave.Solution `json:"-"`
}

// Runner 求解编排器，输出、缓存和指标都可以为空
type Runner struct {
	sink    repository.Sink
	best    cache.BestCache
	metrics *metrics.Recorder
}

// New 创建编排器
func New(sink repository.Sink, best cache.BestCache, recorder *metrics.Recorder) *Runner {
	return &Runner{sink: sink, best: best, metrics: recorder}
}

// Run 执行一次求解
// 自身超时视为正常结束并给出告警；外部取消时返回已有最优解和 ctx.Err()
func (r *Runner) Run(ctx context.Context, p *model.Problem, opts Options) (*Result, error) {
	id := uuid.New()
	runID := id.String()
	ctx = logger.ContextWithRunID(ctx, runID)
	log := logger.WithContext(ctx)
	start := time.Now()

	construct, err := solver.New(opts.Constructive)
	if err != nil {
		r.observeFailure(opts)
		return nil, err
	}
	if _, err := optimizer.NewRefiner(opts.Refinement, opts.refinerOptions()); err != nil {
		r.observeFailure(opts)
		return nil, err
	}

	solveCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	log.Info().
		Str("dataset", opts.Dataset).
		Str("constructive", opts.Constructive).
		Str("refinement", opts.Refinement).
		Int64("seed", opts.Seed).
		Int("workers", opts.Workers).
		Bool("population", opts.Population).
		Msg("开始求解")

	res := &Result{RunID: runID}
	collector := &alnsCollector{}
	sol, solveErr := r.solve(solveCtx, p, opts, construct, collector, res)
	res.ALNS = collector.metrics

	if solveErr != nil {
		if sol == nil || !isContextErr(solveErr) {
			r.observeFailure(opts)
			return nil, solveErr
		}
		if ctx.Err() != nil {
			log.Warn().Err(solveErr).Msg("求解被取消，返回已有最优解")
		} else {
			res.Warnings = append(res.Warnings, string(errors.CodeTimeout)+": 达到时间上限，返回已有最优解")
		}
	}

	report := validator.Check(p, sol.Orders, sol.Aisles)
	if sol.Feasible && !report.Feasible {
		r.observeFailure(opts)
		return nil, errors.Wrap(report.Err(), errors.CodeInternal, "求解结果未通过独立校验").
			WithField("run_id", runID)
	}
	if !sol.Feasible {
		res.Warnings = append(res.Warnings, string(errors.CodeNoFeasibleSolution)+": 未找到满足上下界和库存的波次")
	}

	sol.Elapsed = time.Since(start)
	res.Solution = sol
	res.Report = report
	res.Stats = stats.Compute(p, sol.Orders, sol.Aisles, idleAisles)
	res.Record = repository.NewRunRecord(opts.Dataset, opts.Constructive, opts.label(), opts.Seed, sol)
	res.Record.ID = id

	r.publish(ctx, res)

	log.Info().
		Float64("objective", sol.Objective).
		Int("items", sol.ItemTotal).
		Int("aisles", sol.AisleTotal).
		Int("orders", len(sol.Orders)).
		Bool("feasible", sol.Feasible).
		Dur("duration", sol.Elapsed).
		Msg("求解完成")

	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	return res, nil
}

// solve 按参数选择单线程、多起点或种群模式
func (r *Runner) solve(ctx context.Context, p *model.Problem, opts Options, construct solver.Solver, collector *alnsCollector, res *Result) (*wave.Solution, error) {
	factory := opts.factory(construct, collector)

	switch {
	case opts.Population:
		pop := opts.Pollination
		search := opts.LocalSearch
		seeded, err := optimizer.NewPollination(&pop, construct, &search).Run(ctx, p, opts.Seed)
		if err != nil || seeded == nil {
			return seeded, err
		}
		refiners := opts.refiners(collector)
		rng := rand.New(rand.NewSource(opts.Seed + int64(pop.PopulationSize)))
		sol := seeded
		for _, ref := range refiners {
			next, err := ref.Refine(ctx, sol, rng)
			if next != nil {
				sol = next
			}
			if err != nil {
				return sol, err
			}
		}
		return sol, nil

	case opts.Workers > 1:
		best, results, err := optimizer.NewMultiStart(opts.Workers, opts.Seed, factory).Run(ctx, p)
		res.Workers = results
		return best, err

	default:
		return factory()(ctx, p, rand.New(rand.NewSource(opts.Seed)))
	}
}

// publish 写入输出、缓存和指标，失败只记录日志
func (r *Runner) publish(ctx context.Context, res *Result) {
	log := logger.WithContext(ctx)
	rec := res.Record

	if r.sink != nil {
		if err := r.sink.Save(ctx, rec); err != nil {
			log.Error().Err(err).Msg("保存运行记录失败")
		}
	}
	if r.best != nil {
		improved, err := r.best.Offer(ctx, rec.Fingerprint, rec)
		if err != nil {
			log.Error().Err(err).Msg("更新已知最优失败")
		}
		res.Improved = improved
		if improved {
			log.Info().Str("dataset", rec.Dataset).Str("fingerprint", rec.Fingerprint).
				Float64("objective", rec.Objective).Msg("刷新已知最优")
		}
	}
	if r.metrics != nil {
		r.metrics.ObserveRun(rec.Constructive, rec.Refinement, rec.Feasible, rec.Elapsed)
		for _, m := range res.ALNS {
			r.metrics.ObserveALNS(m)
		}
		if rec.Feasible && (r.best == nil || res.Improved) {
			r.metrics.ObserveBest(rec.Dataset, rec.Objective)
		}
	}
}

func (r *Runner) observeFailure(opts Options) {
	if r.metrics != nil {
		r.metrics.ObserveFailure(opts.Constructive, opts.label())
	}
}

// label 记录中的改进算法名称
func (o Options) label() string {
	name := o.Refinement
	if name == "" {
		name = optimizer.NameNone
	}
	if o.Population {
		name = "pollination+" + name
	}
	if o.Polish && name != optimizer.NameLocalSearch {
		name += "+polish"
	}
	return name
}

// refinerOptions 复制配置，每个改进算法实例持有自己的一份
func (o Options) refinerOptions() optimizer.Options {
	ls, vns, alns := o.LocalSearch, o.VNS, o.ALNS
	return optimizer.Options{LocalSearch: &ls, VNS: &vns, ALNS: &alns}
}

// refiners 创建一组新的改进算法实例
func (o Options) refiners(collector *alnsCollector) []optimizer.Refiner {
	main, _ := optimizer.NewRefiner(o.Refinement, o.refinerOptions())
	list := []optimizer.Refiner{collector.wrap(main)}
	if o.Polish && o.Refinement != optimizer.NameLocalSearch {
		ls := o.LocalSearch
		list = append(list, optimizer.NewLocalSearch(&ls))
	}
	return list
}

func (o Options) factory(construct solver.Solver, collector *alnsCollector) optimizer.PipelineFactory {
	return func() optimizer.Pipeline {
		c, err := solver.New(construct.Name())
		if err != nil {
			c = construct
		}
		return optimizer.Chain(c, o.refiners(collector)...)
	}
}

// alnsCollector 汇总各工作协程的 ALNS 统计
type alnsCollector struct {
	mu      sync.Mutex
	metrics []optimizer.Metrics
}

func (c *alnsCollector) wrap(r optimizer.Refiner) optimizer.Refiner {
	if a, ok := r.(*optimizer.ALNS); ok {
		return &collectingALNS{ALNS: a, collector: c}
	}
	return r
}

// collectingALNS 运行结束后把统计交给收集器
type collectingALNS struct {
	*optimizer.ALNS
	collector *alnsCollector
}

func (c *collectingALNS) Refine(ctx context.Context, initial *wave.Solution, rng *rand.Rand) (*wave.Solution, error) {
	sol, err := c.ALNS.Refine(ctx, initial, rng)
	c.collector.mu.Lock()
	c.collector.metrics = append(c.collector.metrics, c.ALNS.Metrics())
	c.collector.mu.Unlock()
	return sol, err
}

func isContextErr(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
