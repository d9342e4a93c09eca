package storage

import (
	"os"
	"path/filepath"
	"sort"
)

// PathUsage is the on-disk size of one local asset path.
type PathUsage struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
}

// DiskUsage reports the size of each named path. A path may be a file or a directory
// (recursively summed). Empty and missing paths are skipped; walk errors are returned.
func DiskUsage(paths map[string]string) ([]PathUsage, error) {
	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []PathUsage
	for _, name := range names {
		p := paths[name]
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		size := info.Size()
		if info.IsDir() {
			if size, err = dirSize(p); err != nil {
				return nil, err
			}
		}
		out = append(out, PathUsage{Name: name, Path: p, Bytes: size})
	}
	return out, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
