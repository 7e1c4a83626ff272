// Package metadata describes a Python package from its packaging files.
//
// Sources are tried in order: pyproject.toml ([project], then
// [tool.poetry]), PKG-INFO, and a dist-info METADATA file. When none is
// found a stub holding only the package name is returned.
package metadata

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/phobologic/pyjsonld/internal/model"
)

// Source names where metadata came from.
type Source string

const (
	SourcePyproject Source = "pyproject.toml"
	SourcePKGInfo   Source = "PKG-INFO"
	SourceMetadata  Source = "METADATA"
	SourceStub      Source = "stub"
)

type pyproject struct {
	Project struct {
		Name        string            `toml:"name"`
		Version     string            `toml:"version"`
		Description string            `toml:"description"`
		License     any               `toml:"license"`
		Authors     []person          `toml:"authors"`
		Keywords    []string          `toml:"keywords"`
		URLs        map[string]string `toml:"urls"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name        string   `toml:"name"`
			Version     string   `toml:"version"`
			Description string   `toml:"description"`
			License     string   `toml:"license"`
			Authors     []string `toml:"authors"`
			Keywords    []string `toml:"keywords"`
			Repository  string   `toml:"repository"`
			Homepage    string   `toml:"homepage"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

type person struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

func (p person) String() string {
	switch {
	case p.Name != "" && p.Email != "":
		return fmt.Sprintf("%s <%s>", p.Name, p.Email)
	case p.Name != "":
		return p.Name
	}
	return p.Email
}

// ParsePyproject reads the metadata of a pyproject.toml document. It
// returns an empty Name when neither [project] nor [tool.poetry] names
// the package.
func ParsePyproject(data []byte) (model.Metadata, error) {
	var pf pyproject
	if err := toml.Unmarshal(data, &pf); err != nil {
		return model.Metadata{}, fmt.Errorf("parsing pyproject.toml: %w", err)
	}

	p := pf.Project
	if p.Name != "" {
		m := model.Metadata{
			Name:        p.Name,
			Version:     p.Version,
			Description: p.Description,
			License:     license(p.License),
			Keywords:    p.Keywords,
			URLs:        p.URLs,
		}
		for _, a := range p.Authors {
			m.Authors = append(m.Authors, a.String())
		}
		m.CodeRepository = repository(p.URLs)
		return m, nil
	}

	poetry := pf.Tool.Poetry
	m := model.Metadata{
		Name:           poetry.Name,
		Version:        poetry.Version,
		Description:    poetry.Description,
		License:        poetry.License,
		Authors:        poetry.Authors,
		Keywords:       poetry.Keywords,
		CodeRepository: poetry.Repository,
	}
	if m.CodeRepository == "" {
		m.CodeRepository = poetry.Homepage
	}
	return m, nil
}

// license accepts the string form and the {text = ...} / {file = ...}
// table form.
func license(v any) string {
	switch l := v.(type) {
	case string:
		return l
	case map[string]any:
		if s, ok := l["text"].(string); ok {
			return s
		}
		if s, ok := l["file"].(string); ok {
			return "file:" + s
		}
	}
	return ""
}

var repoKeys = []string{"Repository", "Source", "Source Code", "Homepage", "Home"}

func repository(urls map[string]string) string {
	for _, k := range repoKeys {
		for label, u := range urls {
			if strings.EqualFold(label, k) {
				return u
			}
		}
	}
	return ""
}

// ParsePKGInfo reads core metadata in the PKG-INFO / METADATA header format.
func ParsePKGInfo(r io.Reader) (model.Metadata, error) {
	tp := textproto.NewReader(bufio.NewReader(r))
	h, err := tp.ReadMIMEHeader()
	if err != nil && !errors.Is(err, io.EOF) {
		return model.Metadata{}, fmt.Errorf("parsing package metadata: %w", err)
	}

	m := model.Metadata{
		Name:        h.Get("Name"),
		Version:     h.Get("Version"),
		Description: h.Get("Summary"),
		License:     h.Get("License"),
	}
	if m.License == "" {
		m.License = h.Get("License-Expression")
	}
	if a := h.Get("Author"); a != "" {
		m.Authors = append(m.Authors, a)
	} else if a := h.Get("Author-Email"); a != "" {
		m.Authors = append(m.Authors, a)
	}
	if kw := h.Get("Keywords"); kw != "" {
		sep := ","
		if !strings.Contains(kw, ",") {
			sep = " "
		}
		for _, k := range strings.Split(kw, sep) {
			if k = strings.TrimSpace(k); k != "" {
				m.Keywords = append(m.Keywords, k)
			}
		}
	}

	urls := map[string]string{}
	for _, v := range h.Values("Project-Url") {
		label, u, ok := strings.Cut(v, ",")
		if ok {
			urls[strings.TrimSpace(label)] = strings.TrimSpace(u)
		}
	}
	if hp := h.Get("Home-Page"); hp != "" {
		urls["Homepage"] = hp
	}
	if len(urls) > 0 {
		m.URLs = urls
		m.CodeRepository = repository(urls)
	}
	return m, nil
}

// Load finds metadata for the package rooted at root. pyproject.toml and
// PKG-INFO are looked for in root and then in its parent, so both a
// project checkout and its importable package directory work.
func Load(root, fallbackName string) (model.Metadata, Source, error) {
	for _, dir := range []string{root, filepath.Dir(root)} {
		data, err := os.ReadFile(filepath.Join(dir, "pyproject.toml"))
		switch {
		case err == nil:
			m, err := ParsePyproject(data)
			if err != nil {
				return Stub(fallbackName), SourceStub, err
			}
			if m.Name != "" {
				return m, SourcePyproject, nil
			}
		case !errors.Is(err, fs.ErrNotExist):
			return Stub(fallbackName), SourceStub, err
		}

		if m, ok := readHeaders(filepath.Join(dir, "PKG-INFO")); ok {
			return m, SourcePKGInfo, nil
		}
	}
	return Stub(fallbackName), SourceStub, nil
}

// FromDistInfo reads the METADATA file of an installed distribution.
func FromDistInfo(distInfo string) (model.Metadata, bool) {
	return readHeaders(filepath.Join(distInfo, "METADATA"))
}

func readHeaders(path string) (model.Metadata, bool) {
	f, err := os.Open(path)
	if err != nil {
		return model.Metadata{}, false
	}
	defer f.Close()
	m, err := ParsePKGInfo(f)
	if err != nil || m.Name == "" {
		return model.Metadata{}, false
	}
	return m, true
}

// Stub is the minimal metadata used when no packaging file is found.
func Stub(name string) model.Metadata {
	return model.Metadata{Name: name}
}

