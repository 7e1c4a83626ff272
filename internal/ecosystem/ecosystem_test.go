package ecosystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/pyjsonld/internal/pipeline"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// sitePackages lays out a small environment:
//
//	myapp   -> requests, six
//	requests -> urllib3
//	urllib3 (no top_level.txt)
//	six      (single module)
//	pip      (infrastructure)
//	ghost    (dist-info without code)
func sitePackages(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, dir, "myapp-1.0.0.dist-info/METADATA", "Name: myapp\nVersion: 1.0.0\nSummary: The app\n")
	writeFile(t, dir, "myapp-1.0.0.dist-info/top_level.txt", "myapp\n")
	writeFile(t, dir, "myapp/__init__.py", "from .client import fetch\n")
	writeFile(t, dir, "myapp/client.py", "import requests\nfrom six import moves\n\ndef fetch(url):\n    return requests.get(url)\n")

	writeFile(t, dir, "requests-2.32.3.dist-info/METADATA", "Name: requests\nVersion: 2.32.3\n")
	writeFile(t, dir, "requests-2.32.3.dist-info/top_level.txt", "requests\n")
	writeFile(t, dir, "requests/__init__.py", "import urllib3\nimport json\nfrom . import api\n")
	writeFile(t, dir, "requests/api.py", "def get(url): pass\ndef broken(:\n")

	writeFile(t, dir, "urllib3-2.2.0.dist-info/METADATA", "Name: urllib3\nVersion: 2.2.0\n")
	writeFile(t, dir, "urllib3/__init__.py", "import socket\n")

	writeFile(t, dir, "six-1.16.0.dist-info/METADATA", "Name: six\nVersion: 1.16.0\n")
	writeFile(t, dir, "six-1.16.0.dist-info/top_level.txt", "six\n")
	writeFile(t, dir, "six.py", "import sys\n")

	writeFile(t, dir, "pip-24.0.dist-info/METADATA", "Name: pip\nVersion: 24.0\n")
	writeFile(t, dir, "pip/__init__.py", "")

	writeFile(t, dir, "ghost-0.1.dist-info/RECORD", "")
	return dir
}

func TestScan(t *testing.T) {
	t.Parallel()

	dists, err := Scan(sitePackages(t))
	require.NoError(t, err)

	var names []string
	for _, d := range dists {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"ghost", "myapp", "pip", "requests", "six", "urllib3"}, names)
	assert.Equal(t, "0.1", dists[0].Version)
	assert.Equal(t, []string{"urllib3"}, dists[5].TopLevel)
	assert.Equal(t, "The app", dists[1].Metadata.Description)

	_, err = Scan(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	dir := sitePackages(t)
	rep, err := New(pipeline.New(), WithWorkers(2)).Analyze(context.Background(), dir, "MyApp")
	require.NoError(t, err)

	require.NotNil(t, rep.Primary)
	assert.Equal(t, "myapp", rep.Primary.Name)
	assert.Equal(t, "1.0.0", rep.Primary.Version)
	assert.Equal(t, "The app", rep.Primary.Description)

	byName := map[string]Package{}
	for _, p := range rep.Packages {
		byName[p.Name] = p
	}
	assert.NotContains(t, byName, "pip")

	app := byName["myapp"]
	assert.Equal(t, Deep, app.AnalysisType)
	assert.Equal(t, 2, app.FileCount)
	assert.Equal(t, []string{"requests", "six"}, app.Imports)

	req := byName["requests"]
	assert.Equal(t, Light, req.AnalysisType)
	assert.Equal(t, StatusSuccess, req.Status)
	assert.Equal(t, 2, req.FileCount)
	assert.Equal(t, []string{"json", "urllib3"}, req.Imports)

	assert.Equal(t, 1, byName["six"].FileCount)
	assert.Equal(t, StatusPathNotFound, byName["ghost"].Status)

	assert.Equal(t, []CrossImport{
		{Source: "myapp", Target: "requests", Modules: []string{"requests"}},
		{Source: "myapp", Target: "six", Modules: []string{"six"}},
		{Source: "requests", Target: "urllib3", Modules: []string{"urllib3"}},
	}, rep.CrossPackageImports)
}

func TestAnalyzeMissingPrimary(t *testing.T) {
	t.Parallel()

	_, err := New(pipeline.New()).Analyze(context.Background(), sitePackages(t), "nope")
	assert.ErrorIs(t, err, ErrPrimaryNotFound)
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "typing_extensions", Normalize("Typing-Extensions"))
	assert.Equal(t, "zope_interface", Normalize("zope.interface"))
}
