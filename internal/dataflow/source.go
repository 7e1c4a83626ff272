package dataflow

import (
	"strings"

	"github.com/phobologic/pyjsonld/internal/model"
	"github.com/phobologic/pyjsonld/internal/syntax"
)

// Value source types.
const (
	SourceVariable   = "variable"
	SourceCall       = "function_call"
	SourceConstant   = "constant"
	SourceList       = "list_literal"
	SourceDict       = "dict_literal"
	SourceBinary     = "binary_operation"
	SourceAttribute  = "attribute_access"
	SourceExpression = "expression"
	SourceParameter  = "function_parameter"
	SourceInput      = "input"
)

const (
	// maxConstant is the rune limit of a recorded constant value.
	maxConstant = 50
	// maxListElements is the number of list elements classified.
	maxListElements = 3
	// maxSourceDepth bounds the nesting of classified operands.
	maxSourceDepth = 32
)

var constantTypes = map[string]string{
	"integer":  "int",
	"float":    "float",
	"true":     "bool",
	"false":    "bool",
	"none":     "NoneType",
	"ellipsis": "ellipsis",
}

var constantValues = map[string]string{
	"true":     "True",
	"false":    "False",
	"none":     "None",
	"ellipsis": "Ellipsis",
}

func intPtr(n int) *int { return &n }

// classify describes where the value of expression id comes from.
func classify(t *syntax.Tree, id syntax.NodeID, depth int) *model.ValueSource {
	id = t.Unparen(id)
	kind := t.Kind(id)
	if depth >= maxSourceDepth {
		return &model.ValueSource{Type: SourceExpression, NodeType: syntax.ASTName(kind)}
	}

	switch kind {
	case "identifier":
		return &model.ValueSource{Type: SourceVariable, Name: t.Text(id), Context: "local"}
	case "call":
		argc := 0
		if args := t.Field(id, "arguments"); t.Kind(args) == "argument_list" {
			for _, a := range t.NamedChildren(args) {
				if k := t.Kind(a); k != "keyword_argument" && k != "dictionary_splat" {
					argc++
				}
			}
		} else if args != syntax.NoNode {
			argc = 1
		}
		return &model.ValueSource{Type: SourceCall, Function: callName(t, t.Field(id, "function")), ArgumentCount: intPtr(argc)}
	case "integer", "float", "true", "false", "none", "ellipsis":
		v, ok := constantValues[kind]
		if !ok {
			v = t.Text(id)
		}
		return constant(v, constantTypes[kind])
	case "string", "concatenated_string":
		if v, typ, ok := stringConstant(t, id); ok {
			return constant(v, typ)
		}
		return &model.ValueSource{Type: SourceExpression, NodeType: "JoinedStr"}
	case "list":
		elems := t.NamedChildren(id)
		src := &model.ValueSource{Type: SourceList, ElementCount: intPtr(len(elems)), Elements: []*model.ValueSource{}}
		for i, e := range elems {
			if i == maxListElements {
				break
			}
			src.Elements = append(src.Elements, classify(t, e, depth+1))
		}
		return src
	case "dictionary":
		return &model.ValueSource{Type: SourceDict, KeyCount: intPtr(len(t.NamedChildren(id)))}
	case "binary_operator":
		return &model.ValueSource{
			Type:      SourceBinary,
			Operation: syntax.OperatorName(t.Text(t.Field(id, "operator"))),
			Left:      classify(t, t.Field(id, "left"), depth+1),
			Right:     classify(t, t.Field(id, "right"), depth+1),
		}
	case "attribute":
		return &model.ValueSource{
			Type:      SourceAttribute,
			Object:    classify(t, t.Field(id, "object"), depth+1),
			Attribute: t.Text(t.Field(id, "attribute")),
		}
	}
	return &model.ValueSource{Type: SourceExpression, NodeType: syntax.ASTName(kind)}
}

func constant(v, typ string) *model.ValueSource {
	return &model.ValueSource{Type: SourceConstant, Value: syntax.Truncate(v, maxConstant), ValueType: typ}
}

// stringConstant decodes a string literal or an implicit concatenation of
// plain literals. Byte strings keep their source text.
func stringConstant(t *syntax.Tree, id syntax.NodeID) (string, string, bool) {
	parts := []syntax.NodeID{id}
	if t.Kind(id) == "concatenated_string" {
		parts = t.NamedChildren(id)
	}
	var b strings.Builder
	for _, p := range parts {
		if v, ok := t.StringValue(p); ok {
			b.WriteString(v)
			continue
		}
		if len(parts) == 1 && strings.Contains(stringPrefix(t.Text(p)), "b") {
			return t.Text(p), "bytes", true
		}
		return "", "", false
	}
	return b.String(), "str", true
}

func stringPrefix(lit string) string {
	i := strings.IndexAny(lit, `'"`)
	if i < 0 {
		return ""
	}
	return strings.ToLower(lit[:i])
}

func callName(t *syntax.Tree, fn syntax.NodeID) string {
	fn = t.Unparen(fn)
	switch t.Kind(fn) {
	case "identifier":
		return t.Text(fn)
	case "attribute":
		return t.Text(t.Field(fn, "attribute"))
	}
	return "unknown_call"
}

// annotationName renders a parameter annotation the way the flow records
// expect: a bare name, a string literal's value, or the expression kind.
func annotationName(t *syntax.Tree, ann syntax.NodeID) string {
	if ann == syntax.NoNode {
		return ""
	}
	if t.Kind(ann) == "type" {
		if inner := t.NamedChildren(ann); len(inner) == 1 {
			ann = inner[0]
		}
	}
	switch t.Kind(ann) {
	case "identifier":
		return t.Text(ann)
	case "string":
		if v, ok := t.StringValue(ann); ok {
			return v
		}
	}
	return syntax.ASTName(t.Kind(ann))
}
