// wavepick 波次拣货求解器
// 命令行入口，支持单个实例或整个目录批量求解

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wavepick/wavepick/internal/cache"
	"github.com/wavepick/wavepick/internal/config"
	"github.com/wavepick/wavepick/internal/database"
	"github.com/wavepick/wavepick/internal/metrics"
	"github.com/wavepick/wavepick/internal/repository"
	"github.com/wavepick/wavepick/internal/runner"
	"github.com/wavepick/wavepick/pkg/dataset"
	"github.com/wavepick/wavepick/pkg/errors"
	"github.com/wavepick/wavepick/pkg/logger"
	"github.com/wavepick/wavepick/pkg/wave/optimizer"
	"github.com/wavepick/wavepick/pkg/wave/solver"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	GitCommit = "unknown"
)

type flags struct {
	dataset      string
	out          string
	constructive string
	refinement   string
	seed         int64
	iterations   int
	workers      int
	parallel     int
	population   bool
	polish       bool
	configPath   string
	metricsFile  string
	jsonOutput   bool
	history      int
	runID        string
	version      bool
}

func parseFlags(args []string) (*flags, map[string]bool, error) {
	f := &flags{}
	fs := flag.NewFlagSet("wave", flag.ContinueOnError)
	fs.StringVar(&f.dataset, "dataset", "", "实例文件、目录或 glob 模式")
	fs.StringVar(&f.out, "out", "", "追加结果的 CSV 文件")
	fs.StringVar(&f.constructive, "constructive", "", "构造算法: "+strings.Join(solver.Names(), "/"))
	fs.StringVar(&f.refinement, "refinement", "", "改进算法: "+strings.Join(optimizer.RefinerNames(), "/"))
	fs.Int64Var(&f.seed, "seed", 0, "随机种子")
	fs.IntVar(&f.iterations, "iterations", 0, "ALNS 迭代次数")
	fs.IntVar(&f.workers, "workers", 0, "多起点工作协程数")
	fs.IntVar(&f.parallel, "parallel", 1, "同时求解的实例数")
	fs.BoolVar(&f.population, "population", false, "使用种群授粉搜索")
	fs.BoolVar(&f.polish, "polish", true, "改进后再做一次局部搜索")
	fs.StringVar(&f.configPath, "config", "", "YAML 配置文件")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "结束后写出的 Prometheus 文本文件")
	fs.BoolVar(&f.jsonOutput, "json", false, "以 JSON 输出每个实例的结果")
	fs.IntVar(&f.history, "history", 0, "列出最近 N 次运行记录（需要数据库），可配合 -dataset 过滤")
	fs.StringVar(&f.runID, "run", "", "按 ID 查看一次运行记录（需要数据库）")
	fs.BoolVar(&f.version, "version", false, "打印版本")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	return f, set, nil
}

// applyFlags 只覆盖命令行显式给出的参数
func applyFlags(cfg *config.Config, f *flags, set map[string]bool) {
	if set["constructive"] {
		cfg.Solver.Constructive = f.constructive
	}
	if set["refinement"] {
		cfg.Solver.Refinement = f.refinement
	}
	if set["seed"] {
		cfg.Solver.Seed = f.seed
	}
	if set["iterations"] {
		cfg.ALNS.Iterations = f.iterations
	}
	if set["workers"] {
		cfg.Solver.Workers = f.workers
	}
	if set["population"] {
		cfg.Solver.Population = f.population
	}
	if set["polish"] {
		cfg.Solver.Polish = f.polish
	}
	if set["out"] {
		cfg.Output.CSVPath = f.out
	}
	if set["metrics-file"] {
		cfg.Metrics.Textfile = f.metricsFile
	}
}

// expandDatasets 把文件、目录或 glob 展开成排好序的实例列表
func expandDatasets(pattern string) ([]string, error) {
	if pattern == "" {
		return nil, fmt.Errorf("缺少 -dataset 参数")
	}
	info, err := os.Stat(pattern)
	if err == nil && info.IsDir() {
		entries, err := os.ReadDir(pattern)
		if err != nil {
			return nil, err
		}
		var paths []string
		for _, e := range entries {
			ext := filepath.Ext(e.Name())
			if !e.IsDir() && (ext == ".txt" || ext == ".json") {
				paths = append(paths, filepath.Join(pattern, e.Name()))
			}
		}
		sort.Strings(paths)
		return paths, nil
	}
	if err == nil {
		return []string{pattern}, nil
	}
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("没有匹配的实例: %s", pattern)
	}
	sort.Strings(paths)
	return paths, nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	f, set, err := parseFlags(args)
	if err != nil {
		return 2
	}
	if f.version {
		fmt.Printf("wavepick %s (%s)\n", Version, GitCommit)
		return 0
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	applyFlags(cfg, f, set)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	logger.Init(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if f.history > 0 || f.runID != "" {
		return query(ctx, cfg, f, os.Stdout)
	}

	paths, err := expandDatasets(f.dataset)
	if err != nil {
		logger.Error().Err(err).Msg("无法确定实例文件")
		return 1
	}

	sinks, store, closeSinks, err := buildSinks(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("初始化结果输出失败")
		return 1
	}
	defer closeSinks()

	best, closeCache := buildCache(ctx, cfg, store)
	defer closeCache()

	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.Default()
	}

	r := runner.New(sinks, best, recorder)
	failed := solveAll(ctx, r, cfg, paths, f)

	if cfg.Metrics.Textfile != "" && recorder != nil {
		if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Error().Err(err).Msg("写出指标失败")
		}
	}

	if failed > 0 {
		logger.Warn().Int("failed", failed).Int("total", len(paths)).Msg("部分实例求解失败")
		return 1
	}
	return 0
}

// solveAll 按 -parallel 并发求解全部实例，返回失败数
func solveAll(ctx context.Context, r *runner.Runner, cfg *config.Config, paths []string, f *flags) int {
	var mu sync.Mutex
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, f.parallel))
	for _, path := range paths {
		g.Go(func() error {
			name := dataset.Name(path)
			res, err := solveOne(gctx, r, cfg, path, name)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				logger.Error().Err(err).Str("dataset", name).Msg("求解失败")
				if res == nil {
					return nil
				}
			}
			printResult(res, f.jsonOutput)
			return nil
		})
	}
	_ = g.Wait()
	return failed
}

func solveOne(ctx context.Context, r *runner.Runner, cfg *config.Config, path, name string) (*runner.Result, error) {
	p, err := dataset.Load(path)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, p, runner.OptionsFromConfig(cfg, name))
}

func printResult(res *runner.Result, asJSON bool) {
	if asJSON {
		data, err := json.Marshal(res)
		if err != nil {
			logger.Error().Err(err).Msg("序列化结果失败")
			return
		}
		fmt.Println(string(data))
		return
	}

	rec := res.Record
	fmt.Printf("%-24s %-8s %-20s objective=%.4f items=%d aisles=%d orders=%d feasible=%v elapsed=%s\n",
		rec.Dataset, rec.Constructive, rec.Refinement, rec.Objective,
		rec.Items, rec.AisleCount, len(rec.Orders), rec.Feasible, rec.Elapsed.Round(time.Millisecond))
	for _, w := range res.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}

// buildSinks 按配置组装 CSV 与 PostgreSQL 输出，启用数据库时同时返回 PostgreSQL 仓储
func buildSinks(ctx context.Context, cfg *config.Config) (repository.Sink, *repository.PostgresSink, func(), error) {
	var sinks repository.MultiSink
	var store *repository.PostgresSink
	closeAll := func() {}

	if cfg.Output.CSVPath != "" {
		sinks = append(sinks, repository.NewCSVSink(cfg.Output.CSVPath))
	}
	if cfg.Database.Enabled {
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return nil, nil, closeAll, err
		}
		store = repository.NewPostgresSink(db)
		sinks = append(sinks, store)
		closeAll = func() { db.Close() }
	}

	if len(sinks) == 0 {
		return nil, nil, closeAll, nil
	}
	return sinks, store, closeAll, nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	db, err := database.New(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// buildCache 优先使用 Redis，不可用时退回进程内缓存
// 进程内缓存在有数据库时从历史记录回填
func buildCache(ctx context.Context, cfg *config.Config, store *repository.PostgresSink) (cache.BestCache, func()) {
	fallback := func() cache.BestCache {
		if store == nil {
			return cache.NewMemoryCache()
		}
		return cache.WithHistory(cache.NewMemoryCache(), store)
	}
	if !cfg.Redis.Enabled {
		return fallback(), func() {}
	}
	rc, err := cache.Open(&cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("Redis 配置无效，使用进程内缓存")
		return fallback(), func() {}
	}
	if err := rc.Ping(ctx); err != nil {
		logger.Warn().Err(err).Msg("Redis 不可用，使用进程内缓存")
		rc.Close()
		return fallback(), func() {}
	}
	return rc, func() { rc.Close() }
}

// runHistory 运行记录查询
type runHistory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*repository.RunRecord, error)
	List(ctx context.Context, filter repository.ListFilter) ([]*repository.RunRecord, error)
}

// query 打印已保存的运行记录
func query(ctx context.Context, cfg *config.Config, f *flags, w io.Writer) int {
	if !cfg.Database.Enabled {
		logger.Error().Msg("查询运行记录需要启用数据库 (DB_ENABLED)")
		return 1
	}
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("连接数据库失败")
		return 1
	}
	defer db.Close()

	records, err := lookup(ctx, repository.NewPostgresSink(db), f)
	if err != nil {
		logger.Error().Err(err).Msg("查询运行记录失败")
		return 1
	}
	printRecords(w, records)
	return 0
}

func lookup(ctx context.Context, h runHistory, f *flags) ([]*repository.RunRecord, error) {
	if f.runID != "" {
		id, err := uuid.Parse(f.runID)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidInput, "运行 ID 无效")
		}
		rec, err := h.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return []*repository.RunRecord{rec}, nil
	}

	filter := repository.DefaultListFilter().WithLimit(f.history)
	if f.dataset != "" {
		filter = filter.WithDataset(dataset.Name(f.dataset))
	}
	return h.List(ctx, filter)
}

func printRecords(w io.Writer, records []*repository.RunRecord) {
	for _, rec := range records {
		fmt.Fprintf(w, "%s %s %-24s %-8s %-20s objective=%.4f aisles=%d orders=%d feasible=%v\n",
			rec.ID, rec.CreatedAt.Format(time.RFC3339), rec.Dataset, rec.Constructive, rec.Refinement,
			rec.Objective, rec.AisleCount, len(rec.Orders), rec.Feasible)
	}
}
