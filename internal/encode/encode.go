// Package encode writes analysis documents as JSON or YAML.
package encode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Format is an output encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat accepts a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case JSON, YAML:
		return f, nil
	}
	return "", fmt.Errorf("unsupported output format %q", s)
}

// Encode writes v to w. indent is the number of spaces per level; 0 gives
// compact JSON. YAML output keeps the JSON field names and order.
func Encode(w io.Writer, v any, f Format, indent int) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		if indent > 0 {
			enc.SetIndent("", strings.Repeat(" ", indent))
		}
		return enc.Encode(v)
	case YAML:
		return encodeYAML(w, v, indent)
	}
	return fmt.Errorf("unsupported output format %q", f)
}

// encodeYAML goes through JSON so the json tags, omitempty rules and
// custom marshalers of the model apply unchanged. Decoding into a
// yaml.Node preserves key order.
func encodeYAML(w io.Writer, v any, indent int) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("converting to yaml: %w", err)
	}
	plain(&node)

	enc := yaml.NewEncoder(w)
	if indent > 0 {
		enc.SetIndent(indent)
	}
	if err := enc.Encode(&node); err != nil {
		return fmt.Errorf("writing yaml: %w", err)
	}
	return enc.Close()
}

// plain drops the flow collections and quoted scalars inherited from the
// JSON input. The encoder still quotes strings that would read back as
// another type.
func plain(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		plain(c)
	}
}

// FileName returns the default output name for a package: the package name,
// a UTC timestamp and the format extension.
func FileName(name string, f Format, now time.Time) string {
	if name == "" {
		name = "package"
	}
	return fmt.Sprintf("%s_%s.%s", name, now.UTC().Format("20060102_150405"), f)
}

// WriteFile encodes v to path through a temporary file in the same
// directory, so readers never see a partial document.
func WriteFile(path string, v any, f Format, indent int) error {
	var buf bytes.Buffer
	if err := Encode(&buf, v, f, indent); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("creating output: %w", err)
	}

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// Fresh reports whether the output at path is newer than every source file
// under root, so it can be reused instead of re-analyzing.
func Fresh(path, root string, files []string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	mtime := info.ModTime()

	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, filepath.FromSlash(f)))
		if err != nil {
			return false
		}
		if !fi.ModTime().Before(mtime) {
			return false
		}
	}
	return true
}
