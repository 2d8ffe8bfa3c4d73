// Package security 提供公开入口的请求签名与限流
package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wavepick/wavepick/pkg/errors"
)

// 请求头
const (
	HeaderSignature = "x-wavepick-signature"
	HeaderTimestamp = "x-wavepick-timestamp"
)

// SignatureVerifier 签名验证器，签名为 HMAC-SHA256(timestamp + ":" + body)
type SignatureVerifier struct {
	secretKey []byte
	maxAge    time.Duration
	now       func() time.Time
}

// NewSignatureVerifier 创建签名验证器
func NewSignatureVerifier(secretKey string, maxAge time.Duration) *SignatureVerifier {
	return &SignatureVerifier{secretKey: []byte(secretKey), maxAge: maxAge, now: time.Now}
}

// Sign 生成签名
func (v *SignatureVerifier) Sign(body string, timestamp int64) string {
	h := hmac.New(sha256.New, v.secretKey)
	h.Write([]byte(strconv.FormatInt(timestamp, 10)))
	h.Write([]byte(":"))
	h.Write([]byte(body))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify 校验时间戳和签名
func (v *SignatureVerifier) Verify(body, signature, timestamp string) error {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return errors.New(errors.CodeUnauthorized, "缺少或无效的时间戳")
	}
	age := v.now().Sub(time.Unix(ts, 0))
	if age > v.maxAge || age < -v.maxAge {
		return errors.New(errors.CodeUnauthorized, "请求已过期")
	}
	expected := v.Sign(body, ts)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return errors.New(errors.CodeUnauthorized, "无效的签名")
	}
	return nil
}

// RateLimiter 按来源限流，每个来源一个令牌桶
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter 创建限流器，perMinute 为每个来源每分钟的请求数
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	return &RateLimiter{
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow 检查来源是否还有配额
func (rl *RateLimiter) Allow(key string) error {
	rl.mu.Lock()
	l, ok := rl.limiters[key]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[key] = l
	}
	rl.mu.Unlock()

	if !l.Allow() {
		return errors.New(errors.CodeRateLimited, "请求频率超限").WithField("source", key)
	}
	return nil
}
