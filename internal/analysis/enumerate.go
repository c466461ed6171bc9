package analysis

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/qualitylab/partclass/internal/errors"
)

// DefaultExtensions are the file extensions picked up from the input folder.
var DefaultExtensions = []string{".jpg"}

// PermissiveExtensions add the other encodings the pipeline can decode.
var PermissiveExtensions = []string{".jpg", ".jpeg", ".png"}

// Extensions returns the accepted extensions for the permissive setting.
func Extensions(permissive bool) []string {
	if permissive {
		return slices.Clone(PermissiveExtensions)
	}
	return slices.Clone(DefaultExtensions)
}

// Enumerate lists the regular files directly inside dir whose extension
// matches one of exts, case-insensitively, sorted by path.
func Enumerate(dir string, exts []string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryMissingSource).
			Context("input_folder", dir).
			Build()
	}
	if !info.IsDir() {
		return nil, errors.Newf("input path %s is not a directory", dir).
			Category(errors.CategoryMissingSource).
			Context("input_folder", dir).
			Build()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("input_folder", dir).
			Context("operation", "read_directory").
			Build()
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !matchesExtension(entry.Name(), exts) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	slices.Sort(paths)
	return paths, nil
}

func matchesExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return slices.ContainsFunc(exts, func(e string) bool {
		return strings.ToLower(e) == ext
	})
}
