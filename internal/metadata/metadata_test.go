package metadata

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectToml = `
[project]
name = "demo"
version = "1.2.3"
description = "A demo package"
license = { text = "MIT" }
authors = [{ name = "Ada", email = "ada@example.com" }, { email = "ops@example.com" }]
keywords = ["parsing", "graphs"]

[project.urls]
Homepage = "https://example.com"
Repository = "https://github.com/example/demo"
`

func TestParsePyprojectProject(t *testing.T) {
	t.Parallel()

	m, err := ParsePyproject([]byte(projectToml))
	require.NoError(t, err)
	assert.Equal(t, "demo", m.Name)
	assert.Equal(t, "1.2.3", m.Version)
	assert.Equal(t, "A demo package", m.Description)
	assert.Equal(t, "MIT", m.License)
	assert.Equal(t, []string{"Ada <ada@example.com>", "ops@example.com"}, m.Authors)
	assert.Equal(t, []string{"parsing", "graphs"}, m.Keywords)
	assert.Equal(t, "https://github.com/example/demo", m.CodeRepository)
	assert.Len(t, m.URLs, 2)
}

func TestParsePyprojectPoetry(t *testing.T) {
	t.Parallel()

	m, err := ParsePyproject([]byte(`
[tool.poetry]
name = "poetic"
version = "0.1.0"
license = "Apache-2.0"
authors = ["Bo <bo@example.com>"]
homepage = "https://poetic.dev"
`))
	require.NoError(t, err)
	assert.Equal(t, "poetic", m.Name)
	assert.Equal(t, "Apache-2.0", m.License)
	assert.Equal(t, []string{"Bo <bo@example.com>"}, m.Authors)
	assert.Equal(t, "https://poetic.dev", m.CodeRepository)
}

func TestParsePyprojectInvalid(t *testing.T) {
	t.Parallel()
	_, err := ParsePyproject([]byte("[project\nname = "))
	assert.Error(t, err)
}

func TestParsePKGInfo(t *testing.T) {
	t.Parallel()

	info := strings.Join([]string{
		"Metadata-Version: 2.1",
		"Name: requests",
		"Version: 2.32.3",
		"Summary: Python HTTP for Humans.",
		"Home-page: https://requests.readthedocs.io",
		"Author: Kenneth Reitz",
		"License: Apache-2.0",
		"Keywords: http,client",
		"Project-URL: Source, https://github.com/psf/requests",
		"Project-URL: Documentation, https://requests.readthedocs.io",
		"",
		"Long description body.",
	}, "\n")

	m, err := ParsePKGInfo(strings.NewReader(info))
	require.NoError(t, err)
	assert.Equal(t, "requests", m.Name)
	assert.Equal(t, "2.32.3", m.Version)
	assert.Equal(t, "Python HTTP for Humans.", m.Description)
	assert.Equal(t, "Apache-2.0", m.License)
	assert.Equal(t, []string{"Kenneth Reitz"}, m.Authors)
	assert.Equal(t, []string{"http", "client"}, m.Keywords)
	assert.Equal(t, "https://github.com/psf/requests", m.CodeRepository)
	assert.Equal(t, "https://requests.readthedocs.io", m.URLs["Homepage"])
}

func TestLoadOrder(t *testing.T) {
	t.Parallel()

	// pyproject.toml in the parent of the package directory.
	project := t.TempDir()
	pkg := filepath.Join(project, "demo")
	require.NoError(t, os.MkdirAll(pkg, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(project, "pyproject.toml"), []byte(projectToml), 0o644))

	m, src, err := Load(pkg, "fallback")
	require.NoError(t, err)
	assert.Equal(t, SourcePyproject, src)
	assert.Equal(t, "demo", m.Name)

	// PKG-INFO in an unpacked sdist.
	sdist := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(sdist, "PKG-INFO"), []byte("Name: sdistpkg\nVersion: 3.0\n\n"), 0o644))
	m, src, err = Load(sdist, "fallback")
	require.NoError(t, err)
	assert.Equal(t, SourcePKGInfo, src)
	assert.Equal(t, "3.0", m.Version)

	// Nothing at all.
	bare := filepath.Join(t.TempDir(), "bare")
	require.NoError(t, os.MkdirAll(bare, 0o755))
	m, src, err = Load(bare, "bare")
	require.NoError(t, err)
	assert.Equal(t, SourceStub, src)
	assert.Equal(t, Stub("bare"), m)
}

func TestFromDistInfo(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "six-1.16.0.dist-info")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "METADATA"), []byte("Name: six\nVersion: 1.16.0\n"), 0o644))

	m, ok := FromDistInfo(dir)
	require.True(t, ok)
	assert.Equal(t, "six", m.Name)

	_, ok = FromDistInfo(t.TempDir())
	assert.False(t, ok)
}
