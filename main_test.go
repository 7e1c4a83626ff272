package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func createSamplePackage(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, "models.py", `class User:
    def __init__(self, name: str) -> None:
        self.name = name
`)
	writeTestFile(t, dir, "main.py", `from models import User

def greet(user: User) -> str:
    return f"Hello, {user.name}"
`)
	return dir
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

type document struct {
	Context string `json:"@context"`
	Name    string `json:"name"`
	HasPart []struct {
		Name    string `json:"name"`
		HasPart []struct {
			Name             string            `json:"name"`
			ExtractionStatus string            `json:"extractionStatus"`
			HasPart          []json.RawMessage `json:"hasPart"`
			Enhanced         map[string]any    `json:"enhanced"`
		} `json:"hasPart"`
	} `json:"hasPart"`
	Dependencies []struct {
		Source  string   `json:"source"`
		Target  string   `json:"target"`
		Symbols []string `json:"symbols"`
	} `json:"dependencies"`
}

func decode(t *testing.T, out string) document {
	t.Helper()
	var doc document
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out)
	}
	return doc
}

func TestRunAnalyze(t *testing.T) {
	t.Parallel()
	dir := createSamplePackage(t)

	out, stderr, err := runCLI(t, "analyze", "--no-tools", dir)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr)
	}

	doc := decode(t, out)
	if doc.Context != "https://schema.org" {
		t.Errorf("@context = %q", doc.Context)
	}
	if doc.Name != filepath.Base(dir) {
		t.Errorf("name = %q, want %q", doc.Name, filepath.Base(dir))
	}
	if len(doc.HasPart) != 1 || len(doc.HasPart[0].HasPart) != 2 {
		t.Fatalf("expected one module with 2 files, got %+v", doc.HasPart)
	}
	for _, f := range doc.HasPart[0].HasPart {
		if f.ExtractionStatus != "success" {
			t.Errorf("%s: status %s", f.Name, f.ExtractionStatus)
		}
		if f.Enhanced["typeAnalysis"] != nil {
			t.Errorf("%s: typeAnalysis should be null with --no-tools", f.Name)
		}
		if f.Enhanced["callGraph"] == nil {
			t.Errorf("%s: missing callGraph", f.Name)
		}
	}
	if len(doc.Dependencies) != 1 || doc.Dependencies[0].Source != "main.py" || doc.Dependencies[0].Target != "models.py" {
		t.Errorf("dependencies = %+v", doc.Dependencies)
	}
	if !strings.Contains(stderr, "analysis complete") {
		t.Errorf("expected completion log, got:\n%s", stderr)
	}
}

func TestRunName(t *testing.T) {
	t.Parallel()
	dir := createSamplePackage(t)

	out, _, err := runCLI(t, "analyze", "--no-tools", "--name", "custom", dir)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if doc := decode(t, out); doc.Name != "custom" {
		t.Errorf("name = %q", doc.Name)
	}
}

func TestRunYAML(t *testing.T) {
	t.Parallel()
	dir := createSamplePackage(t)

	out, _, err := runCLI(t, "analyze", "--no-tools", "--format", "yaml", dir)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not yaml: %v", err)
	}
	if doc["programmingLanguage"] != "Python" {
		t.Errorf("programmingLanguage = %v", doc["programmingLanguage"])
	}
}

func TestRunBadFormat(t *testing.T) {
	t.Parallel()

	_, _, err := runCLI(t, "analyze", "--format", "toml", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "output format") {
		t.Errorf("expected format error, got %v", err)
	}
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	out, _, err := runCLI(t, "--version")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "pyjsonld") {
		t.Errorf("version output: %q", out)
	}
}

func TestRunNoFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "readme.txt", "nothing here")

	out, _, err := runCLI(t, "analyze", "--no-tools", dir)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	doc := decode(t, out)
	if len(doc.HasPart) != 0 {
		t.Errorf("expected no modules, got %+v", doc.HasPart)
	}
}

func TestRunNotADirectory(t *testing.T) {
	t.Parallel()
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := runCLI(t, "analyze", "--no-tools", f)
	if err == nil {
		t.Fatal("expected error for non-directory")
	}
}

func TestRunBrokenFile(t *testing.T) {
	t.Parallel()
	dir := createSamplePackage(t)
	writeTestFile(t, dir, "broken.py", "def f(:\n    pass\n")

	out, _, err := runCLI(t, "analyze", "--no-tools", dir)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	doc := decode(t, out)
	var found bool
	for _, f := range doc.HasPart[0].HasPart {
		if f.Name == "broken.py" {
			found = true
			if f.ExtractionStatus != "failed" {
				t.Errorf("broken.py status = %s", f.ExtractionStatus)
			}
			if f.Enhanced["errorTolerant"] == nil {
				t.Error("broken.py should carry the error-tolerant view")
			}
		}
	}
	if !found {
		t.Error("broken.py missing from output")
	}
}

func TestRunCache(t *testing.T) {
	t.Parallel()
	dir := createSamplePackage(t)
	cachePath := filepath.Join(t.TempDir(), "test.cache")

	out1, _, err := runCLI(t, "analyze", "--no-tools", "--cache", cachePath, dir)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := os.Stat(cachePath); err != nil {
		t.Fatalf("cache not created: %v", err)
	}

	out2, stderr, err := runCLI(t, "analyze", "--no-tools", "-v", "--cache", cachePath, dir)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if out1 != out2 {
		t.Errorf("cache mismatch:\nfirst:\n%s\nsecond:\n%s", out1, out2)
	}
	if !strings.Contains(stderr, "using cached output") {
		t.Errorf("second run should use the cache:\n%s", stderr)
	}
}

func TestRunOutputDir(t *testing.T) {
	t.Parallel()
	dir := createSamplePackage(t)
	outDir := t.TempDir()

	out, _, err := runCLI(t, "analyze", "--no-tools", "--name", "sample", "-o", outDir, dir)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "" {
		t.Errorf("stdout should be empty when writing a file, got %q", out)
	}
	matches, _ := filepath.Glob(filepath.Join(outDir, "sample_*.json"))
	if len(matches) != 1 {
		t.Fatalf("expected one timestamped file, got %v", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if doc := decode(t, string(data)); doc.Name != "sample" {
		t.Errorf("name = %q", doc.Name)
	}
}

func TestRunMaxFileSize(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "small.py", "x = 1")
	writeTestFile(t, dir, "big.py", strings.Repeat("x = 1\n", 200))

	out, stderr, err := runCLI(t, "analyze", "--no-tools", "--max-file-size", "100", dir)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	statuses := map[string]string{}
	for _, m := range decode(t, out).HasPart {
		for _, f := range m.HasPart {
			statuses[f.Name] = f.ExtractionStatus
		}
	}
	if statuses["small.py"] != "success" {
		t.Errorf("small.py status = %q", statuses["small.py"])
	}
	if statuses["big.py"] != "failed" {
		t.Errorf("big.py should be kept as a failed file, got %q", statuses["big.py"])
	}
	if !strings.Contains(out, "file too large") {
		t.Error("expected the size error in the document")
	}
	if !strings.Contains(stderr, "level=WARN") {
		t.Error("expected warning about the oversized file")
	}
}

func TestRunExclude(t *testing.T) {
	t.Parallel()
	dir := createSamplePackage(t)
	writeTestFile(t, dir, "tests/test_models.py", "def test_user(): pass\n")

	out, _, err := runCLI(t, "analyze", "--no-tools", "--exclude", "tests/**", dir)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(out, "test_models.py") {
		t.Error("tests/test_models.py should be excluded")
	}
}

func TestRunSkipDirsOptIn(t *testing.T) {
	t.Parallel()
	dir := createSamplePackage(t)
	writeTestFile(t, dir, "env/core.py", "def f(): pass\n")
	writeTestFile(t, dir, "generated/out.py", "x = 1\n")
	writeTestFile(t, dir, ".gitignore", "generated/\n")

	out, _, err := runCLI(t, "analyze", "--no-tools", dir)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, name := range []string{"env/core.py", "generated/out.py"} {
		if !strings.Contains(out, `"name": "`+name+`"`) {
			t.Errorf("%s should be analyzed by default", name)
		}
	}

	out, _, err = runCLI(t, "analyze", "--no-tools", "--skip-dir", "env", "--gitignore", dir)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, name := range []string{"env/core.py", "generated/out.py"} {
		if strings.Contains(out, name) {
			t.Errorf("%s should be skipped when asked", name)
		}
	}
}

func TestRunSummaries(t *testing.T) {
	t.Parallel()
	dir := createSamplePackage(t)

	out, _, err := runCLI(t, "analyze", "--no-tools", "--summaries", "--embedding-dim", "8", dir)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, `"summary": "def greet(user: User) -> str"`) {
		t.Errorf("missing greet summary:\n%s", out)
	}
	if !strings.Contains(out, `"embedding": [`) {
		t.Error("missing embeddings")
	}
}

func TestRunProbe(t *testing.T) {
	t.Parallel()

	out, _, err := runCLI(t, "probe", "--bin-dir", t.TempDir())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var probes []struct {
		Tool         string `json:"tool"`
		Availability string `json:"availability"`
	}
	if err := json.Unmarshal([]byte(out), &probes); err != nil {
		t.Fatalf("decoding probes: %v\n%s", err, out)
	}
	if len(probes) != 4 || probes[0].Tool != "pyright" || probes[3].Tool != "codeql" {
		t.Errorf("probes = %+v", probes)
	}
}

func TestRunEcosystem(t *testing.T) {
	t.Parallel()
	site := t.TempDir()
	writeTestFile(t, site, "app-1.0.dist-info/METADATA", "Name: app\nVersion: 1.0\n")
	writeTestFile(t, site, "app/__init__.py", "import dep\n")
	writeTestFile(t, site, "dep-2.0.dist-info/METADATA", "Name: dep\nVersion: 2.0\n")
	writeTestFile(t, site, "dep/__init__.py", "")

	out, _, err := runCLI(t, "ecosystem", "--no-tools", "--primary", "app", site)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var rep struct {
		Primary struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"primary"`
		CrossPackageImports []struct {
			Source string `json:"source"`
			Target string `json:"target"`
		} `json:"crossPackageImports"`
	}
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if rep.Primary.Name != "app" || rep.Primary.Version != "1.0" {
		t.Errorf("primary = %+v", rep.Primary)
	}
	if len(rep.CrossPackageImports) != 1 || rep.CrossPackageImports[0].Target != "dep" {
		t.Errorf("crossPackageImports = %+v", rep.CrossPackageImports)
	}

	if _, _, err := runCLI(t, "ecosystem", site); err == nil {
		t.Error("expected error without --primary")
	}
}
