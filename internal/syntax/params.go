package syntax

// Parameter kinds, named after inspect.Parameter kinds.
const (
	PositionalOnly      = "positional_only"
	PositionalOrKeyword = "positional_or_keyword"
	VarPositional       = "var_positional"
	KeywordOnly         = "keyword_only"
	VarKeyword          = "var_keyword"
)

// Param is a formal parameter of a function definition. Annotation and
// Default are NoNode when absent.
type Param struct {
	Name       string
	Kind       string
	Annotation NodeID
	Default    NodeID
	Node       NodeID
}

// Params returns the parameters of a function_definition or lambda.
func (t *Tree) Params(def NodeID) []Param {
	list := t.Field(def, "parameters")
	if list == NoNode {
		return nil
	}

	var out []Param
	keywordOnly := false
	for _, c := range t.NamedChildren(list) {
		p := Param{Kind: PositionalOrKeyword, Annotation: NoNode, Default: NoNode, Node: c}
		if keywordOnly {
			p.Kind = KeywordOnly
		}
		target := c
		switch t.Kind(c) {
		case "identifier":
		case "typed_parameter":
			p.Annotation = t.Field(c, "type")
			target = t.firstUnfielded(c)
		case "default_parameter":
			p.Default = t.Field(c, "value")
			target = t.Field(c, "name")
		case "typed_default_parameter":
			p.Annotation = t.Field(c, "type")
			p.Default = t.Field(c, "value")
			target = t.Field(c, "name")
		case "list_splat_pattern", "dictionary_splat_pattern":
		case "keyword_separator":
			keywordOnly = true
			continue
		case "positional_separator":
			for i := range out {
				out[i].Kind = PositionalOnly
			}
			continue
		default:
			continue
		}

		switch t.Kind(target) {
		case "list_splat_pattern":
			p.Kind = VarPositional
			keywordOnly = true
			target = t.firstUnfielded(target)
		case "dictionary_splat_pattern":
			p.Kind = VarKeyword
			target = t.firstUnfielded(target)
		}
		if target == NoNode {
			continue
		}
		p.Name = t.Text(target)
		out = append(out, p)
	}
	return out
}

func (t *Tree) firstUnfielded(id NodeID) NodeID {
	for _, c := range t.NamedChildren(id) {
		if t.Nodes[c].Field == "" {
			return c
		}
	}
	return NoNode
}
