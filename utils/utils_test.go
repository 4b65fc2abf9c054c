package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenName(t *testing.T) {
	root := filepath.Join("assets", "scenes")
	tests := []struct {
		name string
		path string
		want string
	}{
		{"top level", filepath.Join(root, "box.json"), "box"},
		{"nested", filepath.Join(root, "polymesh", "dragon3.json"), "polymesh_dragon3"},
		{"deep", filepath.Join(root, "a", "b", "c.json"), "a_b_c"},
		{"dots in name", filepath.Join(root, "x", "v1.2.json"), "x_v1.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FlattenName(root, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckDirsAndFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "ray")
	require.NoError(t, os.WriteFile(file, []byte("#!/bin/sh\n"), 0o755))

	assert.NoError(t, CheckDirs(dir, ""))
	assert.Error(t, CheckDirs(file))
	assert.Error(t, CheckDirs(filepath.Join(dir, "missing")))

	assert.NoError(t, CheckFiles(file, ""))
	assert.Error(t, CheckFiles(dir))
	assert.Error(t, CheckFiles(filepath.Join(dir, "missing")))
}
