package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Is(t *testing.T) {
	base := InvalidInstance("订单数量不匹配")
	wrapped := fmt.Errorf("加载失败: %w", base)

	if !Is(wrapped, CodeInvalidInstance) {
		t.Error("Is() should see through fmt.Errorf wrapping")
	}
	if Is(wrapped, CodeTimeout) {
		t.Error("Is() matched the wrong code")
	}
	if GetCode(errors.New("plain")) != CodeUnknown {
		t.Error("plain errors should map to CodeUnknown")
	}
}

func TestCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"实例无效", InvalidInstance("x"), http.StatusBadRequest},
		{"未知策略", UnknownStrategy("构造", "pso"), http.StatusBadRequest},
		{"无可行解", NoFeasibleSolution("x"), http.StatusUnprocessableEntity},
		{"超时", New(CodeTimeout, "x"), http.StatusGatewayTimeout},
		{"数据库", Wrap(errors.New("down"), CodeDatabaseError, "x"), http.StatusInternalServerError},
		{"签名无效", New(CodeUnauthorized, "x"), http.StatusUnauthorized},
		{"限流", New(CodeRateLimited, "x"), http.StatusTooManyRequests},
		{"普通错误", errors.New("x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetHTTPStatus(tt.err); got != tt.want {
				t.Errorf("GetHTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValidationErrors_ToAppError(t *testing.T) {
	var ve ValidationErrors
	if ve.HasErrors() {
		t.Fatal("empty collection should have no errors")
	}

	ve.Add("orders[0]", "物品编号越界")
	ve.Addf("aisles[2]", "数量为负: %d", -3)

	appErr := ve.ToAppError(CodeInvalidInstance)
	if appErr.Code != CodeInvalidInstance {
		t.Errorf("Code = %s, want %s", appErr.Code, CodeInvalidInstance)
	}
	if len(appErr.Fields) != 2 {
		t.Errorf("Fields = %d, want 2", len(appErr.Fields))
	}

	var target *ValidationErrors
	if !errors.As(appErr, &target) {
		t.Error("ToAppError should keep ValidationErrors as cause")
	}
}
