package security

import (
	"strconv"
	"testing"
	"time"

	"github.com/wavepick/wavepick/pkg/errors"
)

func TestSignatureVerifier_Verify(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := NewSignatureVerifier("secret", 5*time.Minute)
	v.now = func() time.Time { return now }

	body := `{"text":"..."}`
	ts := now.Unix()
	valid := v.Sign(body, ts)

	tests := []struct {
		name      string
		body      string
		signature string
		timestamp string
		wantErr   bool
	}{
		{"有效签名", body, valid, strconv.FormatInt(ts, 10), false},
		{"请求体被篡改", body + " ", valid, strconv.FormatInt(ts, 10), true},
		{"签名错误", body, "deadbeef", strconv.FormatInt(ts, 10), true},
		{"时间戳过期", body, v.Sign(body, ts-3600), strconv.FormatInt(ts-3600, 10), true},
		{"时间戳来自未来", body, v.Sign(body, ts+3600), strconv.FormatInt(ts+3600, 10), true},
		{"缺少时间戳", body, valid, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(tt.body, tt.signature, tt.timestamp)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.CodeUnauthorized) {
				t.Errorf("code = %s", errors.GetCode(err))
			}
		})
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(60, 2)

	for i := 0; i < 2; i++ {
		if err := rl.Allow("10.0.0.1"); err != nil {
			t.Fatalf("request %d within burst rejected: %v", i, err)
		}
	}
	if err := rl.Allow("10.0.0.1"); !errors.Is(err, errors.CodeRateLimited) {
		t.Errorf("third request err = %v, want RATE_LIMITED", err)
	}
	if err := rl.Allow("10.0.0.2"); err != nil {
		t.Errorf("other source must have its own bucket: %v", err)
	}
}
