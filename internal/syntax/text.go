package syntax

import (
	"strings"
)

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string { return truncate(s, n) }

// StringValue decodes a plain string literal node. It reports false for
// f-strings, byte strings, concatenations and non-string nodes.
func (t *Tree) StringValue(id NodeID) (string, bool) {
	if t.Kind(id) != "string" {
		return "", false
	}
	raw := t.Text(id)
	i := strings.IndexAny(raw, `'"`)
	if i < 0 {
		return "", false
	}
	prefix := strings.ToLower(raw[:i])
	if strings.ContainsAny(prefix, "fb") {
		return "", false
	}
	body := raw[i:]
	var q string
	switch {
	case strings.HasPrefix(body, `"""`), strings.HasPrefix(body, `'''`):
		q = body[:3]
	default:
		q = body[:1]
	}
	if len(body) < 2*len(q) || !strings.HasSuffix(body, q) {
		return "", false
	}
	body = body[len(q) : len(body)-len(q)]
	if strings.Contains(prefix, "r") {
		return body, true
	}
	return unescape(body), true
}

var escapes = map[byte]string{
	'n': "\n", 't': "\t", 'r': "\r", '\\': "\\", '\'': "'", '"': "\"",
	'a': "\a", 'b': "\b", 'f': "\f", 'v': "\v", '0': "\x00",
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		next := s[i+1]
		if next == '\n' {
			i++
			continue
		}
		if r, ok := escapes[next]; ok {
			b.WriteString(r)
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Docstring returns the cleaned docstring of a def, class or module body.
// body is the block node (or the module root).
func (t *Tree) Docstring(body NodeID) (string, bool) {
	if body == NoNode {
		return "", false
	}
	stmts := t.NamedChildren(body)
	if len(stmts) == 0 || t.Kind(stmts[0]) != "expression_statement" {
		return "", false
	}
	exprs := t.NamedChildren(stmts[0])
	if len(exprs) != 1 {
		return "", false
	}
	s, ok := t.StringValue(exprs[0])
	if !ok {
		return "", false
	}
	return CleanDoc(s), true
}

// CleanDoc removes docstring indentation: the first line is left-stripped,
// the common indentation of the remaining lines is removed, and leading
// and trailing blank lines are dropped.
func CleanDoc(doc string) string {
	lines := strings.Split(strings.ReplaceAll(doc, "\t", "        "), "\n")
	margin := -1
	for _, l := range lines[1:] {
		content := strings.TrimLeft(l, " ")
		if content == "" {
			continue
		}
		if indent := len(l) - len(content); margin < 0 || indent < margin {
			margin = indent
		}
	}
	lines[0] = strings.TrimLeft(lines[0], " ")
	if margin > 0 {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= margin {
				lines[i] = lines[i][margin:]
			} else {
				lines[i] = strings.TrimLeft(lines[i], " ")
			}
		}
	}
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// Unparen strips enclosing parenthesized_expression nodes.
func (t *Tree) Unparen(id NodeID) NodeID {
	for t.Kind(id) == "parenthesized_expression" {
		inner := t.NamedChildren(id)
		if len(inner) != 1 {
			return id
		}
		id = inner[0]
	}
	return id
}

// astNames maps tree-sitter expression kinds to the names of the
// corresponding Python ast node classes.
var astNames = map[string]string{
	"identifier":               "Name",
	"call":                     "Call",
	"attribute":                "Attribute",
	"subscript":                "Subscript",
	"string":                   "Constant",
	"concatenated_string":      "JoinedStr",
	"integer":                  "Constant",
	"float":                    "Constant",
	"true":                     "Constant",
	"false":                    "Constant",
	"none":                     "Constant",
	"ellipsis":                 "Constant",
	"list":                     "List",
	"tuple":                    "Tuple",
	"set":                      "Set",
	"dictionary":               "Dict",
	"list_comprehension":       "ListComp",
	"set_comprehension":        "SetComp",
	"dictionary_comprehension": "DictComp",
	"generator_expression":     "GeneratorExp",
	"lambda":                   "Lambda",
	"conditional_expression":   "IfExp",
	"comparison_operator":      "Compare",
	"boolean_operator":         "BoolOp",
	"not_operator":             "UnaryOp",
	"unary_operator":           "UnaryOp",
	"binary_operator":          "BinOp",
	"await":                    "Await",
	"named_expression":         "NamedExpr",
	"yield":                    "Yield",
	"starred":                  "Starred",
	"list_splat":               "Starred",
	"expression_list":          "Tuple",
	"pattern_list":             "Tuple",
}

// ASTName returns the Python ast class name for a node kind, or the kind
// itself when there is no direct counterpart.
func ASTName(kind string) string {
	if n, ok := astNames[kind]; ok {
		return n
	}
	return kind
}

var operatorNames = map[string]string{
	"+": "Add", "-": "Sub", "*": "Mult", "/": "Div", "//": "FloorDiv",
	"%": "Mod", "**": "Pow", "<<": "LShift", ">>": "RShift", "|": "BitOr",
	"^": "BitXor", "&": "BitAnd", "@": "MatMult",
}

// OperatorName returns the ast operator name for a binary or augmented
// operator token; a trailing "=" is ignored.
func OperatorName(tok string) string {
	tok = strings.TrimSuffix(tok, "=")
	if n, ok := operatorNames[tok]; ok {
		return n
	}
	return tok
}
