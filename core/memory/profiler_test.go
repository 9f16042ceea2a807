package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subashpoudel19/wildfire/core/models"
)

const (
	mb = int64(1024 * 1024)
	gb = int64(1024 * 1024 * 1024)
)

func TestProfile_LevelBands(t *testing.T) {
	p := NewProfiler(DefaultThresholds())

	tests := []struct {
		name      string
		sizeBytes int64
		want      models.OptimizationLevel
	}{
		{"zero size", 0, models.OptimizationNone},
		{"below light threshold", 5 * mb, models.OptimizationNone},
		{"light band", 20 * mb, models.OptimizationLight},
		{"moderate band", 80 * mb, models.OptimizationModerate},
		{"aggressive band", 200 * mb, models.OptimizationAggressive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Profile(tt.sizeBytes, 16*gb)
			assert.Equal(t, tt.want, d.Level)
		})
	}
}

func TestProfile_Deterministic(t *testing.T) {
	p := NewProfiler(DefaultThresholds())

	first := p.Profile(73*mb, 3*gb)
	second := p.Profile(73*mb, 3*gb)
	assert.Equal(t, first, second)
}

func TestProfile_ZeroSizeDoesNotPanic(t *testing.T) {
	p := NewProfiler(DefaultThresholds())

	d := p.Profile(0, 0)
	assert.Equal(t, models.OptimizationNone, d.Level)
	assert.Zero(t, d.ChunkingHint)

	d = p.Profile(-1, -1)
	assert.Equal(t, models.OptimizationNone, d.Level)
}

func TestProfile_MemoryPressureForcesChunking(t *testing.T) {
	p := NewProfiler(DefaultThresholds())

	// 20 MB input would normally classify as light, but with a 4x peak
	// multiplier it cannot fit in 40 MB of free memory.
	d := p.Profile(20*mb, 40*mb)
	require.Equal(t, models.OptimizationAggressive, d.Level)
	assert.Greater(t, d.ChunkingHint, 0)
	assert.LessOrEqual(t, d.ChunkingHint, aggressiveChunkFeatures)
}

func TestProfile_ChunkHintShrinksWithOvershoot(t *testing.T) {
	p := NewProfiler(DefaultThresholds())

	mild := p.Profile(200*mb, 700*mb)  // just over budget
	severe := p.Profile(200*mb, 50*mb) // far over budget

	require.Greater(t, mild.ChunkingHint, 0)
	require.Greater(t, severe.ChunkingHint, 0)
	assert.GreaterOrEqual(t, mild.ChunkingHint, severe.ChunkingHint)
	assert.GreaterOrEqual(t, severe.ChunkingHint, minChunkFeatures)
}

func TestProfile_AmpleMemoryKeepsSizeBand(t *testing.T) {
	p := NewProfiler(DefaultThresholds())

	d := p.Profile(80*mb, 32*gb)
	assert.Equal(t, models.OptimizationModerate, d.Level)
	assert.Equal(t, moderateChunkFeatures, d.ChunkingHint)
}
