package cpuspec

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptimalThreadCount(t *testing.T) {
	t.Parallel()

	available := runtime.NumCPU()

	tests := []struct {
		name string
		spec CPUSpec
		want int
	}{
		{"physical cores", CPUSpec{PhysicalCores: 1, LogicalCores: 2}, 1},
		{"capped at available", CPUSpec{PhysicalCores: available + 64}, available},
		{"logical fallback", CPUSpec{LogicalCores: 1}, 1},
		{"unknown topology", CPUSpec{}, available},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.spec.OptimalThreadCount())
		})
	}
}

func TestThreadCount(t *testing.T) {
	t.Parallel()

	available := runtime.NumCPU()

	assert.Equal(t, 1, ThreadCount(1))
	assert.Equal(t, available, ThreadCount(available+10))

	auto := ThreadCount(0)
	assert.GreaterOrEqual(t, auto, 1)
	assert.LessOrEqual(t, auto, available)
}
