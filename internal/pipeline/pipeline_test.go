package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/pyjsonld/internal/checkers"
	"github.com/phobologic/pyjsonld/internal/discover"
	"github.com/phobologic/pyjsonld/internal/model"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func findFile(doc *model.Document, name string) *model.File {
	for i := range doc.HasPart {
		for j := range doc.HasPart[i].HasPart {
			if doc.HasPart[i].HasPart[j].Name == name {
				return &doc.HasPart[i].HasPart[j]
			}
		}
	}
	return nil
}

func noTools() Option {
	return WithTools(checkers.WithLookPath(func(string) (string, error) {
		return "", errors.New("not found")
	}))
}

func TestRunScenario(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "pkg/__init__.py", "")
	writeFile(t, root, "pkg/core.py", "class A:\n    def m(self): return helper()\n\ndef helper(): return 1")

	a, err := New(WithWorkers(2)).Run(context.Background(), root)
	require.NoError(t, err)
	doc := a.Document

	assert.Equal(t, filepath.Base(root), doc.Name)
	assert.Equal(t, model.Language, doc.ProgrammingLanguage)
	require.Len(t, doc.HasPart, 1)
	assert.Equal(t, "pkg", doc.HasPart[0].Name)
	require.Len(t, doc.HasPart[0].HasPart, 2)

	core := findFile(doc, "pkg/core.py")
	require.NotNil(t, core)
	require.Len(t, core.HasPart, 2)
	class := core.HasPart[0].(*model.Class)
	assert.Equal(t, "A", class.Name)
	require.Len(t, class.HasPart, 1)
	assert.Equal(t, "m", class.HasPart[0].Name)
	assert.Equal(t, "helper", core.HasPart[1].EntryName())

	cg := core.Enhanced.CallGraph
	require.NotNil(t, cg)
	var found bool
	for _, r := range cg.Relationships {
		if r.Caller == "A.m" {
			assert.Equal(t, []string{"helper"}, r.Callees)
			found = true
		}
	}
	assert.True(t, found, "expected A.m -> helper")
	assert.NotContains(t, cg.CallPatterns.IsolatedFunctions, "helper")
	assert.NotContains(t, cg.CallPatterns.IsolatedFunctions, "A.m")
}

func TestRunKeepsEveryNonCacheFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "pkg/__init__.py", "")
	writeFile(t, root, "pkg/env/__init__.py", "")
	writeFile(t, root, "pkg/env/core.py", "def f(): pass\n")
	writeFile(t, root, "pkg/build/ext.py", "x = 1\n")
	writeFile(t, root, "pkg/dist/x.py", "y = 2\n")
	writeFile(t, root, "pkg/.hidden.py", "z = 3\n")
	writeFile(t, root, "pkg/__pycache__/c.py", "pass\n")
	writeFile(t, root, "pkg/big.py", "def g():\n    return 1\n"+strings.Repeat("# padding\n", 30))

	a, err := New(
		WithWalk(discover.Options{MaxFileSize: 128}),
	).Run(context.Background(), root)
	require.NoError(t, err)

	for _, name := range []string{
		"pkg/__init__.py", "pkg/env/__init__.py", "pkg/env/core.py",
		"pkg/build/ext.py", "pkg/dist/x.py", "pkg/.hidden.py",
	} {
		f := findFile(a.Document, name)
		if assert.NotNil(t, f, name) {
			assert.Equal(t, model.StatusSuccess, f.ExtractionStatus, name)
		}
	}
	assert.Nil(t, findFile(a.Document, "pkg/__pycache__/c.py"))

	big := findFile(a.Document, "pkg/big.py")
	require.NotNil(t, big, "oversized file must stay in the document")
	assert.Equal(t, model.StatusFailed, big.ExtractionStatus)
	assert.Contains(t, big.Error, discover.ErrTooLarge.Error())
	assert.Empty(t, big.HasPart)
	require.NotNil(t, big.Enhanced.CallGraph)
	assert.Equal(t, model.StatusFailed, big.Enhanced.CallGraph.ExtractionStatus)
	assert.Equal(t, 7, fileCount(a.Document))
}

func fileCount(doc *model.Document) int {
	n := 0
	for _, m := range doc.HasPart {
		n += len(m.HasPart)
	}
	return n
}

func TestRunTotalityAndDegradation(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "main.py", "from pkg import core\n\ncore.helper()\n")
	writeFile(t, root, "pkg/__init__.py", "")
	writeFile(t, root, "pkg/core.py", "from . import util\n\ndef helper():\n    return util.x\n")
	writeFile(t, root, "pkg/util.py", "x = 1\n")
	writeFile(t, root, "pkg/broken.py", "def f(:\n    pass\n")
	writeFile(t, root, "pkg/sub/deep.py", "def unused(): pass\n")

	files, err := discover.Walk(root, discover.Options{})
	require.NoError(t, err)

	a, err := New(WithWorkers(3), noTools()).Run(context.Background(), root)
	require.NoError(t, err)
	doc := a.Document

	total := 0
	for _, m := range doc.HasPart {
		total += len(m.HasPart)
	}
	assert.Equal(t, len(files), total)
	assert.Len(t, a.Files, len(files))

	var names []string
	for _, m := range doc.HasPart {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"", "pkg", "pkg/sub"}, names)

	broken := findFile(doc, "pkg/broken.py")
	require.NotNil(t, broken)
	assert.Equal(t, model.StatusFailed, broken.ExtractionStatus)
	assert.Empty(t, broken.HasPart)
	require.NotNil(t, broken.Enhanced.ErrorTolerant)
	assert.NotEmpty(t, broken.Enhanced.ErrorTolerant.ParseErrors)

	// Missing tools leave null fields and an empty tool list; everything
	// else is still populated.
	core := findFile(doc, "pkg/core.py")
	require.NotNil(t, core)
	require.NotNil(t, core.Enhanced.TypeAnalysis)
	assert.Nil(t, core.Enhanced.TypeAnalysis.Pyright)
	assert.Nil(t, core.Enhanced.TypeAnalysis.Mypy)
	assert.Empty(t, core.Enhanced.TypeAnalysis.Summary.ToolsUsed)
	assert.Equal(t, model.Unavailable, core.Enhanced.TypeAnalysis.Availability[checkers.Mypy])
	require.NotNil(t, core.Enhanced.SecurityAnalysis)
	assert.Nil(t, core.Enhanced.SecurityAnalysis.Bandit)
	assert.Empty(t, core.Enhanced.SecurityAnalysis.Summary.ToolsUsed)
	assert.NotNil(t, core.Enhanced.CallGraph)
	assert.NotNil(t, core.Enhanced.DataFlow)
	assert.NotNil(t, core.Enhanced.ConcreteSyntax)

	var deps []string
	for _, d := range doc.Dependencies {
		deps = append(deps, d.Source+"->"+d.Target)
	}
	assert.Contains(t, deps, "main.py->pkg/core.py")
	assert.Contains(t, deps, "pkg/core.py->pkg/util.py")

	util := findFile(doc, "pkg/util.py")
	deep := findFile(doc, "pkg/sub/deep.py")
	assert.Greater(t, util.Rank, deep.Rank)
}

func TestRunWithoutToolsLeavesDiagnosticsNull(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "a.py", "x = 1\n")

	a, err := New(WithName("custom")).Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, "custom", a.Document.Name)
	f := findFile(a.Document, "a.py")
	require.NotNil(t, f)
	assert.Nil(t, f.Enhanced.TypeAnalysis)
	assert.Nil(t, f.Enhanced.SecurityAnalysis)
}

func TestRunEmptyAndMissingRoot(t *testing.T) {
	t.Parallel()

	a, err := New().Run(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.NotNil(t, a.Document.HasPart)
	assert.Empty(t, a.Document.HasPart)

	_, err = New().Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "a.py", "x = 1\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Run(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunMetadataFromPyproject(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	writeFile(t, project, "pyproject.toml", "[project]\nname = \"demo\"\nversion = \"0.3.0\"\n")
	writeFile(t, project, "demo/__init__.py", "from .core import run\n")
	writeFile(t, project, "demo/core.py", "def run(): pass\n")

	a, err := New().Run(context.Background(), filepath.Join(project, "demo"))
	require.NoError(t, err)
	assert.Equal(t, "demo", a.Document.Name)
	assert.Equal(t, "0.3.0", a.Document.Version)
	require.Len(t, a.Document.Dependencies, 1)
	assert.Equal(t, "__init__.py", a.Document.Dependencies[0].Source)
}
