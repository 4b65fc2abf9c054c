package scanner

import (
	"io/fs"
	"path/filepath"
	"strings"

	"raycheck/logging"
	"raycheck/types"
	"raycheck/utils"
)

// SceneExt is the extension of scene files
const SceneExt = ".json"

// IsSceneFile checks if a file is a scene description
func IsSceneFile(path string) bool {
	return strings.HasSuffix(path, SceneExt)
}

// DiscoverScenes walks root in lexical order and returns every scene file
func DiscoverScenes(root string) ([]string, error) {
	var scenes []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.DebugLog("Error accessing path %s: %v", path, err)
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() && IsSceneFile(path) {
			scenes = append(scenes, path)
		}
		return nil
	})
	return scenes, err
}

// BuildTestCases derives all output paths for the discovered scenes
func BuildTestCases(options Options, scenes []string) ([]types.TestCase, error) {
	cases := make([]types.TestCase, 0, len(scenes))
	seen := make(map[string]string, len(scenes))

	for _, scene := range scenes {
		name, err := utils.FlattenName(options.SceneDir, scene)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[name]; dup {
			logging.DebugLog("Test name %s of %s collides with %s, the later result wins", name, scene, prev)
		}
		seen[name] = scene

		cases = append(cases, types.TestCase{
			Name:         name,
			ScenePath:    scene,
			ImagePath:    filepath.Join(options.OutDir, "image", name+".png"),
			RefImagePath: filepath.Join(options.RefCacheDir, name+".std.png"),
			StdoutPath:   filepath.Join(options.OutDir, "stdio", name+".out"),
			StderrPath:   filepath.Join(options.OutDir, "stdio", name+".err"),
			DiffPath:     filepath.Join(options.OutDir, "diff", name+".diff.png"),
			MontagePath:  filepath.Join(options.OutDir, "montage", name+".mtg.png"),
			Index:        len(cases),
		})
	}
	return cases, nil
}
