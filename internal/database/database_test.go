package database

import (
	"strings"
	"testing"
)

func TestTruncateQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"短查询", "SELECT 1", 8},
		{"长查询", strings.Repeat("x", 500), 203},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(truncateQuery(tt.query)); got != tt.want {
				t.Errorf("len = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSchema(t *testing.T) {
	for _, col := range []string{"wave_runs", "fingerprint", "idx_wave_runs_fingerprint", "orders", "aisles", "elapsed_ms"} {
		if !strings.Contains(schema, col) {
			t.Errorf("schema missing %q", col)
		}
	}
}
