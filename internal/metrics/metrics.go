// Package metrics 提供Prometheus监控指标
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/wavepick/wavepick/pkg/errors"
	"github.com/wavepick/wavepick/pkg/wave/optimizer"
)

const namespace = "wavepick"

// Recorder 持有独立注册表和全部求解指标
type Recorder struct {
	Registry *prometheus.Registry

	// RunsTotal 按构造算法、改进算法和结果统计运行次数
	RunsTotal *prometheus.CounterVec
	// RunDuration 运行耗时（秒）
	RunDuration *prometheus.HistogramVec
	// IterationsTotal 按优化器统计迭代次数
	IterationsTotal *prometheus.CounterVec
	// BestObjective 每个数据集的最优目标值
	BestObjective *prometheus.GaugeVec
	// OperatorSelections ALNS 算子被选中次数
	OperatorSelections *prometheus.CounterVec
}

// New 创建指标记录器，runtime 为 true 时额外注册 Go 与进程指标
func New(runtime bool) *Recorder {
	r := &Recorder{
		Registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "runs_total", Help: "波次求解运行次数"},
			[]string{"constructive", "refinement", "status"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "波次求解耗时",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"refinement"},
		),
		IterationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "optimizer_iterations_total", Help: "优化器迭代次数"},
			[]string{"optimizer"},
		),
		BestObjective: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Namespace: namespace, Name: "best_objective", Help: "数据集最优目标值（物品数/通道数）"},
			[]string{"dataset"},
		),
		OperatorSelections: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "alns_operator_selections_total", Help: "ALNS 算子选中次数"},
			[]string{"kind", "operator"},
		),
	}

	r.Registry.MustRegister(r.RunsTotal, r.RunDuration, r.IterationsTotal, r.BestObjective, r.OperatorSelections)
	if runtime {
		r.Registry.MustRegister(collectors.NewGoCollector())
		r.Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return r
}

var (
	defaultRecorder *Recorder
	once            sync.Once
)

// Default 获取进程级记录器
func Default() *Recorder {
	once.Do(func() {
		defaultRecorder = New(true)
	})
	return defaultRecorder
}

// ObserveRun 记录一次运行
func (r *Recorder) ObserveRun(constructive, refinement string, feasible bool, elapsed time.Duration) {
	status := "feasible"
	if !feasible {
		status = "infeasible"
	}
	r.RunsTotal.WithLabelValues(constructive, refinement, status).Inc()
	r.RunDuration.WithLabelValues(refinement).Observe(elapsed.Seconds())
}

// ObserveFailure 记录一次出错的运行
func (r *Recorder) ObserveFailure(constructive, refinement string) {
	r.RunsTotal.WithLabelValues(constructive, refinement, "error").Inc()
}

// ObserveIterations 累加优化器迭代次数
func (r *Recorder) ObserveIterations(optimizerName string, n int) {
	if n > 0 {
		r.IterationsTotal.WithLabelValues(optimizerName).Add(float64(n))
	}
}

// ObserveBest 更新数据集最优目标值
func (r *Recorder) ObserveBest(dataset string, objective float64) {
	r.BestObjective.WithLabelValues(dataset).Set(objective)
}

// ObserveALNS 记录 ALNS 运行统计
func (r *Recorder) ObserveALNS(m optimizer.Metrics) {
	r.ObserveIterations(optimizer.NameALNS, m.Iterations)
	for i, name := range m.DestroyNames {
		if i < len(m.DestroySelects) && m.DestroySelects[i] > 0 {
			r.OperatorSelections.WithLabelValues("destroy", name).Add(float64(m.DestroySelects[i]))
		}
	}
	for i, name := range m.RepairNames {
		if i < len(m.RepairSelects) && m.RepairSelects[i] > 0 {
			r.OperatorSelections.WithLabelValues("repair", name).Add(float64(m.RepairSelects[i]))
		}
	}
}

// WriteTextfile 以 node_exporter 文本格式写出全部指标
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.Registry); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "写出指标文件失败").WithField("path", path)
	}
	return nil
}
