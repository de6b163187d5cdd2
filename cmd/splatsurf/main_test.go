package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixtureThenGeometryCPU(t *testing.T) {
	dir := t.TempDir()
	cloud := filepath.Join(dir, "cloud.ply")
	out := filepath.Join(dir, "surfels.ply")

	require.NoError(t, newApp().Run([]string{"splatsurf", "fixture", "-n", "70", "-o", cloud}))
	require.NoError(t, newApp().Run([]string{"splatsurf", "geometry", "--cpu", "-o", out, cloud}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "element vertex 70\n")
}

func TestUpsampleCPUWritesPCD(t *testing.T) {
	dir := t.TempDir()
	cloud := filepath.Join(dir, "cloud.ply")
	out := filepath.Join(dir, "surfels.pcd")

	require.NoError(t, newApp().Run([]string{"splatsurf", "fixture", "-n", "5", "-o", cloud}))
	require.NoError(t, newApp().Run([]string{"splatsurf", "upsample", "--cpu", "-f", "3", "-o", out, cloud}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "POINTS 15\n"))
}

func TestMissingArgument(t *testing.T) {
	assert.Error(t, newApp().Run([]string{"splatsurf", "info"}))
}

func TestUniformRejectsUnknownMode(t *testing.T) {
	assert.Error(t, newApp().Run([]string{"splatsurf", "uniform", "--mode", "depth"}))
}
