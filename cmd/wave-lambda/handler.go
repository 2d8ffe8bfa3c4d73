package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/wavepick/wavepick/internal/config"
	"github.com/wavepick/wavepick/internal/runner"
	"github.com/wavepick/wavepick/internal/security"
	"github.com/wavepick/wavepick/pkg/dataset"
	"github.com/wavepick/wavepick/pkg/errors"
	"github.com/wavepick/wavepick/pkg/logger"
	"github.com/wavepick/wavepick/pkg/model"
	"github.com/wavepick/wavepick/pkg/stats"
)

// maxIterations 单次请求允许的 ALNS 迭代上限
const maxIterations = 100000

var jsonHeader = map[string]string{
	"Content-Type": "application/json",
}

// solveRequest 求解请求，instance 与 text 二选一
type solveRequest struct {
	Name         string          `json:"name"`
	Instance     json.RawMessage `json:"instance"`
	Text         string          `json:"text"`
	Constructive string          `json:"constructive"`
	Refinement   string          `json:"refinement"`
	Seed         *int64          `json:"seed"`
	Iterations   int             `json:"iterations"`
	Workers      int             `json:"workers"`
}

// solveResponse 求解结果
type solveResponse struct {
	RunID     string             `json:"run_id"`
	Objective float64            `json:"objective"`
	Feasible  bool               `json:"feasible"`
	Items     int                `json:"items"`
	Orders    []int              `json:"orders"`
	Aisles    []int              `json:"aisles"`
	ElapsedMs int64              `json:"elapsed_ms"`
	Stats     *stats.WaveMetrics `json:"stats"`
	Warnings  []string           `json:"warnings,omitempty"`
}

type handler struct {
	cfg      *config.Config
	runner   *runner.Runner
	verifier *security.SignatureVerifier // 为空时不校验签名
	limiter  *security.RateLimiter       // 为空时不限流
}

func newHandler(cfg *config.Config, r *runner.Runner) *handler {
	h := &handler{cfg: cfg, runner: r}
	if cfg.Security.SigningKey != "" {
		h.verifier = security.NewSignatureVerifier(cfg.Security.SigningKey, cfg.Security.SignatureMaxAge)
	}
	if cfg.Security.RateLimit > 0 {
		h.limiter = security.NewRateLimiter(cfg.Security.RateLimit, max(1, cfg.Security.RateBurst))
	}
	return h
}

func (h *handler) handle(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return errResp(errors.InvalidInput("body", "base64 解码失败"))
		}
		body = string(decoded)
	}

	if h.limiter != nil {
		if err := h.limiter.Allow(event.RequestContext.HTTP.SourceIP); err != nil {
			return errResp(err)
		}
	}
	if h.verifier != nil {
		err := h.verifier.Verify(body, event.Headers[security.HeaderSignature], event.Headers[security.HeaderTimestamp])
		if err != nil {
			return errResp(err)
		}
	}

	var req solveRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return errResp(errors.Wrap(err, errors.CodeInvalidInput, "请求不是合法 JSON"))
	}

	p, err := req.problem()
	if err != nil {
		return errResp(err)
	}
	opts, err := h.options(&req)
	if err != nil {
		return errResp(err)
	}

	res, err := h.runner.Run(ctx, p, opts)
	if err != nil && res == nil {
		return errResp(err)
	}
	if err != nil {
		logger.WithContext(ctx).Warn().Err(err).Msg("请求在求解结束前被取消")
	}

	rec := res.Record
	resp := solveResponse{
		RunID:     res.RunID,
		Objective: rec.Objective,
		Feasible:  rec.Feasible,
		Items:     rec.Items,
		Orders:    rec.Orders,
		Aisles:    rec.Aisles,
		ElapsedMs: rec.Elapsed.Milliseconds(),
		Stats:     res.Stats,
		Warnings:  res.Warnings,
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return errResp(errors.Wrap(err, errors.CodeInternal, "序列化结果失败"))
	}
	return events.LambdaFunctionURLResponse{StatusCode: http.StatusOK, Headers: jsonHeader, Body: string(data)}, nil
}

// problem 解析请求中的实例
func (r *solveRequest) problem() (*model.Problem, error) {
	switch {
	case len(r.Instance) > 0 && r.Text != "":
		return nil, errors.InvalidInput("instance", "instance 与 text 只能提供一个")
	case len(r.Instance) > 0:
		return dataset.ParseJSON(r.Instance)
	case r.Text != "":
		return dataset.ParseText(strings.NewReader(r.Text))
	}
	return nil, errors.InvalidInput("instance", "缺少 instance 或 text")
}

// options 以环境配置为默认值合并请求参数
func (h *handler) options(req *solveRequest) (runner.Options, error) {
	name := req.Name
	if name == "" {
		name = "request"
	}
	opts := runner.OptionsFromConfig(h.cfg, name)

	if req.Constructive != "" {
		opts.Constructive = req.Constructive
	}
	if req.Refinement != "" {
		opts.Refinement = req.Refinement
	}
	if req.Seed != nil {
		opts.Seed = *req.Seed
	}
	if req.Iterations < 0 || req.Iterations > maxIterations {
		return opts, errors.InvalidInput("iterations", "超出允许范围").WithField("max", maxIterations)
	}
	if req.Iterations > 0 {
		opts.ALNS.Iterations = req.Iterations
	}
	if req.Workers < 0 || req.Workers > 16 {
		return opts, errors.InvalidInput("workers", "必须在 0 到 16 之间")
	}
	if req.Workers > 0 {
		opts.Workers = req.Workers
	}
	return opts, nil
}

func errResp(err error) (events.LambdaFunctionURLResponse, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"error": err.Error(),
		"code":  errors.GetCode(err),
	})
	return events.LambdaFunctionURLResponse{StatusCode: errors.GetHTTPStatus(err), Headers: jsonHeader, Body: string(body)}, nil
}
