// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wavepick/wavepick/pkg/errors"
	"github.com/wavepick/wavepick/pkg/logger"
	"github.com/wavepick/wavepick/pkg/wave/optimizer"
)

// Config 应用配置
type Config struct {
	App         AppConfig                   `yaml:"app"`
	Log         logger.Config               `yaml:"log"`
	Solver      SolverConfig                `yaml:"solver"`
	LocalSearch optimizer.LocalSearchConfig `yaml:"local_search"`
	VNS         optimizer.VNSConfig         `yaml:"vns"`
	ALNS        optimizer.ALNSConfig        `yaml:"alns"`
	Pollination optimizer.PollinationConfig `yaml:"pollination"`
	Database    DatabaseConfig              `yaml:"database"`
	Redis       RedisConfig                 `yaml:"redis"`
	Metrics     MetricsConfig               `yaml:"metrics"`
	Output      OutputConfig                `yaml:"output"`
	Security    SecurityConfig              `yaml:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name string `yaml:"name"`
	Env  string `yaml:"env"`
}

// SolverConfig 求解流程配置
type SolverConfig struct {
	Constructive string        `yaml:"constructive"` // greedy/hybrid/random
	Refinement   string        `yaml:"refinement"`   // none/local/vns/alns
	Polish       bool          `yaml:"polish"`       // 改进后再做一次局部搜索
	Population   bool          `yaml:"population"`   // 使用种群授粉搜索代替单条流水线
	Seed         int64         `yaml:"seed"`
	Workers      int           `yaml:"workers"` // 多起点工作数，1 为单线程
	Timeout      time.Duration `yaml:"timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	URL      string        `yaml:"url"` // redis:// 地址，优先于 host/port
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"pool_size"`
	TTL      time.Duration `yaml:"ttl"` // 0 为永不过期
	Prefix   string        `yaml:"prefix"`
}

// Addr 返回Redis地址
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Textfile string `yaml:"textfile"` // 批量运行结束后写出的 node_exporter 文本文件
}

// OutputConfig 结果输出配置
type OutputConfig struct {
	CSVPath string `yaml:"csv_path"`
}

// SecurityConfig 公开入口的访问控制
type SecurityConfig struct {
	SigningKey      string        `yaml:"signing_key"` // 为空时不校验签名
	SignatureMaxAge time.Duration `yaml:"signature_max_age"`
	RateLimit       int           `yaml:"rate_limit"` // 每个来源每分钟请求数，0 为不限
	RateBurst       int           `yaml:"rate_burst"`
}

// Load 从环境变量加载配置，path 非空时再用 YAML 文件覆盖
func Load(path string) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name: getEnv("APP_NAME", "wavepick"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Log: logger.Config{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "console"),
			Output:     getEnv("LOG_OUTPUT", "stderr"),
			FilePath:   getEnv("LOG_FILE", ""),
			TimeFormat: time.RFC3339,
		},
		Solver: SolverConfig{
			Constructive: getEnv("SOLVER_CONSTRUCTIVE", "hybrid"),
			Refinement:   getEnv("SOLVER_REFINEMENT", "alns"),
			Polish:       getEnvBool("SOLVER_POLISH", true),
			Population:   getEnvBool("SOLVER_POPULATION", false),
			Seed:         int64(getEnvInt("SOLVER_SEED", 42)),
			Workers:      getEnvInt("SOLVER_WORKERS", 1),
			Timeout:      getEnvDuration("SOLVER_TIMEOUT", 5*time.Minute),
		},
		LocalSearch: *optimizer.DefaultLocalSearchConfig(),
		VNS:         *optimizer.DefaultVNSConfig(),
		ALNS:        *optimizer.DefaultALNSConfig(),
		Pollination: *optimizer.DefaultPollinationConfig(),
		Database: DatabaseConfig{
			Enabled:         getEnvBool("DB_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "wavepick"),
			User:            getEnv("DB_USER", "wavepick"),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 5),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			URL:      getEnv("REDIS_URL", ""),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
			TTL:      getEnvDuration("REDIS_TTL", 0),
			Prefix:   getEnv("REDIS_PREFIX", "wavepick:best:"),
		},
		Metrics: MetricsConfig{
			Enabled:  getEnvBool("METRICS_ENABLED", true),
			Textfile: getEnv("METRICS_TEXTFILE", ""),
		},
		Output: OutputConfig{
			CSVPath: getEnv("OUTPUT_CSV", ""),
		},
		Security: SecurityConfig{
			SigningKey:      getEnv("SECURITY_SIGNING_KEY", ""),
			SignatureMaxAge: getEnvDuration("SECURITY_SIGNATURE_MAX_AGE", 5*time.Minute),
			RateLimit:       getEnvInt("SECURITY_RATE_LIMIT", 30),
			RateBurst:       getEnvInt("SECURITY_RATE_BURST", 5),
		},
	}
	cfg.ALNS.Iterations = getEnvInt("ALNS_ITERATIONS", cfg.ALNS.Iterations)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeNotFound, "读取配置文件失败").WithField("path", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidInput, "解析配置文件失败").WithField("path", path)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置取值
func (c *Config) Validate() error {
	var ve errors.ValidationErrors
	if c.Solver.Workers < 1 {
		ve.Addf("solver.workers", "必须大于 0，当前为 %d", c.Solver.Workers)
	}
	if c.Solver.Timeout < 0 {
		ve.Add("solver.timeout", "不能为负")
	}
	if c.Solver.Population && c.Solver.Workers > 1 {
		ve.Add("solver.population", "种群搜索自带并行，不能与多起点同时使用")
	}
	if c.Database.Enabled && c.Database.Host == "" {
		ve.Add("database.host", "启用数据库时必须配置")
	}
	if ve.HasErrors() {
		return ve.ToAppError(errors.CodeInvalidInput)
	}
	return nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
