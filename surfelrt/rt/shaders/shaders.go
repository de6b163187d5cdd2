package shaders

import (
	_ "embed"
)

//go:embed common.wgsl
var CommonWGSL string

//go:embed geometry_color_normal.wgsl
var geometryColorNormalWGSL string

//go:embed geometry_normal_cov.wgsl
var geometryNormalCovWGSL string

//go:embed upsample.wgsl
var upsampleWGSL string

// Kernel sources are prefixed with the shared helpers.
var (
	GeometryColorNormalWGSL = CommonWGSL + "\n" + geometryColorNormalWGSL
	GeometryNormalCovWGSL   = CommonWGSL + "\n" + geometryNormalCovWGSL
	UpsampleWGSL            = CommonWGSL + "\n" + upsampleWGSL
)
