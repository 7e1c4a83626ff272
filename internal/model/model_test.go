package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileGroup(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		want string
	}{
		{"core.py", ""},
		{"pkg/core.py", "pkg"},
		{"pkg/sub/mod.py", "pkg/sub"},
	}
	for _, tt := range tests {
		f := &File{Name: tt.name}
		assert.Equal(t, tt.want, f.Group(), tt.name)
	}
}

func TestQualifiedName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "helper", (&Function{Name: "helper"}).QualifiedName())
	assert.Equal(t, "A.m", (&Function{Name: "m", InClass: "A"}).QualifiedName())
}

func TestFileEnhancedNullFields(t *testing.T) {
	t.Parallel()
	f := File{
		Type:                "CodeFile",
		Name:                "a.py",
		ProgrammingLanguage: Language,
		HasPart:             []Entry{&Function{Type: "Function", Name: "f", Decorators: []string{}, Calls: []string{}}},
		ExtractionStatus:    StatusSuccess,
		Enhanced:            &Enhanced{TypeAnalysis: &TypeAnalysis{Availability: map[string]Availability{"mypy": Unavailable}}},
	}
	data, err := json.Marshal(f)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	enh := got["enhanced"].(map[string]any)
	assert.Nil(t, enh["callGraph"])
	assert.Contains(t, enh, "callGraph")
	ta := enh["typeAnalysis"].(map[string]any)
	assert.Nil(t, ta["mypy"])
	assert.Equal(t, "unavailable", ta["availability"].(map[string]any)["mypy"])

	parts := got["hasPart"].([]any)
	require.Len(t, parts, 1)
	fn := parts[0].(map[string]any)
	assert.Equal(t, "", fn["description"])
	assert.Equal(t, false, fn["isAsync"])
}

func TestDocumentFlattensMetadata(t *testing.T) {
	t.Parallel()
	doc := Document{
		Context:             Context,
		Type:                "SoftwareSourceCode",
		Metadata:            Metadata{Name: "demo", Version: "1.0"},
		ProgrammingLanguage: Language,
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "demo", got["name"])
	assert.Equal(t, "1.0", got["version"])
	assert.Equal(t, "https://schema.org", got["@context"])
	assert.NotContains(t, got, "license")
}
