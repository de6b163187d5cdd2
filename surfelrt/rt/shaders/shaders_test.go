package shaders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKernelSources(t *testing.T) {
	for name, src := range map[string]string{
		"color-normal": GeometryColorNormalWGSL,
		"normal-cov":   GeometryNormalCovWGSL,
		"upsample":     UpsampleWGSL,
	} {
		assert.Contains(t, src, "@workgroup_size(64)", name)
		assert.Contains(t, src, "fn main(", name)
		assert.Contains(t, src, "fn quat_to_mat3(", name)
		assert.Contains(t, src, "arrayLength(&", name)
	}
	assert.Contains(t, UpsampleWGSL, "var<uniform> params")
	assert.Contains(t, UpsampleWGSL, "TAU * (turn - round(turn))")
	assert.NotContains(t, UpsampleWGSL, "f32(r) * GOLDEN_ANGLE")
}
