package packaging

import (
	"archive/zip"
	"fmt"
	"os"
	"strings"
)

// ReadNuspecFromPackage opens a .nupkg and parses the manifest at its root.
func ReadNuspecFromPackage(path string) (*Nuspec, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open package %s: %w", path, err)
	}
	defer func() { _ = zr.Close() }()

	var entry *zip.File
	for _, f := range zr.File {
		if strings.Contains(f.Name, "/") || !strings.HasSuffix(strings.ToLower(f.Name), ".nuspec") {
			continue
		}
		if entry != nil {
			return nil, fmt.Errorf("%s: %w", path, ErrMultipleNuspecs)
		}
		entry = f
	}
	if entry == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrNuspecNotFound)
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s in %s: %w", entry.Name, path, err)
	}
	defer func() { _ = rc.Close() }()

	n, err := ParseNuspec(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// ReadNuspecFile parses a loose .nuspec file.
func ReadNuspecFile(path string) (*Nuspec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	n, err := ParseNuspec(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}
