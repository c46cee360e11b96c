package unity

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/alvmarrod/ref-weaver/internal/storage"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Directories the editor generates; they never hold project assets
var excludedDirs = []*regexp.Regexp{
	regexp.MustCompile(`^\.`),
	regexp.MustCompile(`~$`),
	regexp.MustCompile(`^(Library|Temp|Logs|obj|Build|Builds|UserSettings)$`),
}

// builtinGUIDs belong to the editor's built-in resources and have no file
var builtinGUIDs = map[string]bool{
	"00000000000000000000000000000000": true,
	"0000000000000000e000000000000000": true,
	"0000000000000000f000000000000000": true,
}

// isExcludedDir checks a directory name against the excluded patterns
func isExcludedDir(name string) bool {
	for _, pattern := range excludedDirs {
		if pattern.MatchString(name) {
			return true
		}
	}
	return false
}

// IsBuiltin reports whether guid refers to a built-in resource or is empty
func IsBuiltin(guid string) bool {
	return guid == "" || builtinGUIDs[guid]
}

// meta is the part of a .meta file the index needs
type meta struct {
	GUID        string `yaml:"guid"`
	FolderAsset bool   `yaml:"folderAsset"`
}

// readMeta parses the GUID out of a .meta file
func readMeta(path string) (meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return meta{}, err
	}
	var m meta
	if err := yaml.Unmarshal(data, &m); err != nil {
		return meta{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if m.GUID == "" {
		return meta{}, fmt.Errorf("%s has no guid", path)
	}
	return m, nil
}

// BuildIndex walks root for .meta files and records every asset GUID in store.
// It returns the number of assets indexed.
func BuildIndex(root string, store *storage.Storage) (int, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	start := time.Now()
	indexed := 0
	skipped := 0

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != absRoot && isExcludedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".meta") {
			return nil
		}

		m, err := readMeta(path)
		if err != nil {
			logrus.Debugf("Skipping meta file: %v", err)
			skipped++
			return nil
		}
		if m.FolderAsset {
			return nil
		}

		assetPath := strings.TrimSuffix(path, ".meta")
		if _, err := os.Stat(assetPath); err != nil {
			// Orphaned meta left behind by a deleted asset
			skipped++
			return nil
		}

		if err := store.UpsertAsset(storage.Asset{
			GUID: m.GUID,
			Path: assetPath,
			Type: assetType(assetPath),
		}); err != nil {
			return err
		}
		indexed++
		return nil
	})
	if err != nil {
		return indexed, fmt.Errorf("failed to index %s: %w", absRoot, err)
	}

	logrus.Infof("Indexed %d assets under %s in %v (%d skipped)", indexed, absRoot, time.Since(start), skipped)
	return indexed, nil
}
