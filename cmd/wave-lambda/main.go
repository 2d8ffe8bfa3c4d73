// wavepick Lambda 入口
// 通过 Function URL 接收实例并同步返回波次

package main

import (
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/wavepick/wavepick/internal/cache"
	"github.com/wavepick/wavepick/internal/config"
	"github.com/wavepick/wavepick/internal/metrics"
	"github.com/wavepick/wavepick/internal/runner"
	"github.com/wavepick/wavepick/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("WAVEPICK_CONFIG"))
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}
	cfg.Log.Format = "json"
	logger.Init(cfg.Log)

	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.Default()
	}

	best, err := buildCache(&cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化最优结果缓存失败")
	}

	h := newHandler(cfg, runner.New(nil, best, recorder))
	lambda.Start(h.handle)
}

// buildCache 设置了 REDIS_URL 或启用 Redis 时共享已知最优，否则不缓存
// 连接在首次请求时建立，调用之间复用
func buildCache(cfg *config.RedisConfig) (cache.BestCache, error) {
	if cfg.URL == "" && !cfg.Enabled {
		return nil, nil
	}
	rc, err := cache.Open(cfg)
	if err != nil {
		return nil, err
	}
	return rc, nil
}
