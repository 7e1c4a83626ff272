package checkers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/phobologic/pyjsonld/internal/model"
)

// Probe is the capability of one tool, determined once per Analyzer.
type Probe struct {
	Tool         string             `json:"tool"`
	Path         string             `json:"path,omitempty"`
	Version      string             `json:"version,omitempty"`
	Availability model.Availability `json:"availability"`
	Reason       string             `json:"reason,omitempty"`
}

// Probe resolves and version-checks every tool. The result is cached.
func (a *Analyzer) Probe(ctx context.Context) map[string]Probe {
	a.probeOnce.Do(func() {
		a.probes = make(map[string]Probe)
		a.paths = make(map[string]string)
		for _, name := range Tools() {
			p := a.probe(ctx, name)
			a.probes[name] = p
			if p.Availability == model.Available {
				a.paths[name] = p.Path
			} else {
				a.log.Debug("tool not used", "tool", name, "availability", p.Availability, "reason", p.Reason)
			}
		}
	})
	return a.probes
}

func (a *Analyzer) probe(ctx context.Context, name string) Probe {
	p := Probe{Tool: name, Availability: model.Unavailable}
	if a.disabled[name] {
		p.Availability = model.Disabled
		return p
	}

	path, err := a.locate(name)
	if err != nil {
		p.Reason = err.Error()
		return p
	}
	p.Path = path

	versionArg := "--version"
	if name == CodeQL {
		versionArg = "version"
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	out, err := a.run(probeCtx, a.root, path, versionArg)
	switch {
	case err != nil:
		p.Reason = err.Error()
		return p
	case out.ExitCode != 0:
		p.Reason = failure(name, out).Error()
		return p
	}

	p.Version = firstLines(string(out.Stdout), 1)
	p.Availability = model.Available
	return p
}

// locate looks in the configured bin directory before PATH.
func (a *Analyzer) locate(name string) (string, error) {
	if a.binDir != "" {
		if path, err := a.lookPath(filepath.Join(a.binDir, name)); err == nil {
			return path, nil
		}
	}
	path, err := a.lookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, ErrToolUnavailable)
	}
	return path, nil
}

func firstLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
