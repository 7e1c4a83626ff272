package syntax

import "strings"

// The grammar still accepts a few Python 2 forms that Python 3 rejects.
// build records them as syntax errors so strict extraction fails on them.

// rejected returns why the node at id is not valid Python 3, or "".
func rejected(t *Tree, id NodeID) string {
	n := &t.Nodes[id]
	switch n.Kind {
	case "print_statement":
		return "Missing parentheses in call to 'print'"
	case "exec_statement":
		return "Missing parentheses in call to 'exec'"
	case "<>":
		if !n.Named {
			return "unexpected '<>'"
		}
	case "integer":
		return integerError(string(t.Source[n.Start:n.End]))
	}
	return ""
}

// integerError rejects long suffixes and old-style octal literals.
func integerError(lit string) string {
	if strings.HasSuffix(lit, "l") || strings.HasSuffix(lit, "L") {
		return "invalid integer literal " + quote(lit)
	}
	if strings.HasSuffix(lit, "j") || strings.HasSuffix(lit, "J") {
		return ""
	}
	digits := strings.ReplaceAll(lit, "_", "")
	if len(digits) > 1 && digits[0] == '0' && isDigit(digits[1]) && strings.Trim(digits, "0") != "" {
		return "leading zeros in decimal integer literals are not permitted"
	}
	return ""
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
