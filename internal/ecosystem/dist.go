package ecosystem

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/phobologic/pyjsonld/internal/metadata"
	"github.com/phobologic/pyjsonld/internal/model"
)

const distInfoSuffix = ".dist-info"

// Distribution is an installed package as described by its dist-info
// directory.
type Distribution struct {
	Name     string
	Version  string
	Metadata model.Metadata
	// TopLevel lists the importable top-level modules, from top_level.txt
	// or the normalized name when the file is missing.
	TopLevel []string
	DistInfo string
}

// Scan reads every *.dist-info directory of sitePackages, sorted by name.
// Directories without readable METADATA are named after the directory.
func Scan(sitePackages string) ([]Distribution, error) {
	entries, err := os.ReadDir(sitePackages)
	if err != nil {
		return nil, fmt.Errorf("reading site-packages: %w", err)
	}

	var dists []Distribution
	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(e.Name(), distInfoSuffix) {
			continue
		}
		dir := filepath.Join(sitePackages, e.Name())
		d := Distribution{DistInfo: dir}
		if m, ok := metadata.FromDistInfo(dir); ok {
			d.Metadata = m
			d.Name, d.Version = m.Name, m.Version
		} else {
			d.Name, d.Version = splitDistInfo(e.Name())
			d.Metadata = metadata.Stub(d.Name)
		}
		d.TopLevel = readTopLevel(dir)
		if len(d.TopLevel) == 0 {
			d.TopLevel = []string{Normalize(d.Name)}
		}
		dists = append(dists, d)
	}
	sort.Slice(dists, func(i, j int) bool {
		return Normalize(dists[i].Name) < Normalize(dists[j].Name)
	})
	return dists, nil
}

// splitDistInfo splits "name-1.0.dist-info" into name and version.
func splitDistInfo(dir string) (string, string) {
	base := strings.TrimSuffix(dir, distInfoSuffix)
	name, version, _ := strings.Cut(base, "-")
	return name, version
}

func readTopLevel(distInfo string) []string {
	f, err := os.Open(filepath.Join(distInfo, "top_level.txt"))
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
