package loopback

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// statement is one command of an Eval input.
type statement struct {
	target string
	expr   string
	quiet  bool
	line   int
}

// splitStatements breaks src into statements at newlines and semicolons
// outside brackets and string literals. A semicolon suppresses display.
func splitStatements(src string) []statement {
	var (
		out     []statement
		depth   int
		inStr   bool
		escaped bool
		start   int
		line    = 1
		first   = 1
	)
	emit := func(end int, quiet bool) {
		text := strings.TrimSpace(src[start:end])
		if text != "" && !strings.HasPrefix(text, "%") {
			target, expr := splitAssignment(text)
			out = append(out, statement{target: target, expr: expr, quiet: quiet, line: first})
		}
		start = end + 1
		first = line
	}
	for i := 0; i < len(src); i++ {
		c := src[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 {
				emit(i, true)
			}
		case '\n':
			line++
			if depth == 0 {
				emit(i, false)
				first = line
			}
		}
	}
	if start < len(src) {
		emit(len(src), false)
	}
	return out
}

// splitAssignment separates "name = expr" into its parts. Anything else is
// a bare expression assigned to ans.
func splitAssignment(text string) (string, string) {
	i := 0
	for i < len(text) && isIdentByte(text[i], i == 0) {
		i++
	}
	if i == 0 {
		return "", text
	}
	j := i
	for j < len(text) && (text[j] == ' ' || text[j] == '\t') {
		j++
	}
	if j < len(text) && text[j] == '=' && (j+1 == len(text) || text[j+1] != '=') {
		return text[:i], strings.TrimSpace(text[j+1:])
	}
	return "", text
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case !first && (c == '_' || (c >= '0' && c <= '9')):
		return true
	}
	return false
}

// evaluate parses and evaluates one expression against the workspace.
func (c *Conn) evaluate(st statement) (cty.Value, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(st.expr), "statement", hcl.Pos{Line: st.line, Column: 1, Byte: 0})
	if diags.HasErrors() {
		return cty.NilVal, diagError(diags)
	}

	vars := make(map[string]cty.Value)
	for _, tr := range expr.Variables() {
		name := tr.RootName()
		if _, done := vars[name]; done {
			continue
		}
		a, ok := c.workspace[name]
		if !ok {
			return cty.NilVal, fmt.Errorf("unrecognized function or variable '%s'", name)
		}
		v, err := toCty(a)
		if err != nil {
			return cty.NilVal, fmt.Errorf("variable '%s': %w", name, err)
		}
		vars[name] = v
	}

	funcs := builtins(&c.out)
	for name, a := range c.workspace {
		funcs[name] = indexFunc(a)
	}

	v, diags := expr.Value(&hcl.EvalContext{Variables: vars, Functions: funcs})
	if diags.HasErrors() {
		return cty.NilVal, diagError(diags)
	}
	return v, nil
}

// diagError turns HCL diagnostics into a single error. Errors raised by the
// error built-in keep their own message.
func diagError(diags hcl.Diagnostics) error {
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		if extra, ok := hcl.DiagnosticExtra[hclsyntax.FunctionCallDiagExtra](d); ok {
			var ue userError
			if stderrors.As(extra.FunctionCallError(), &ue) {
				return ue
			}
			if err := extra.FunctionCallError(); err != nil {
				return fmt.Errorf("%s: %w", extra.CalledFunctionName(), err)
			}
		}
		if d.Detail != "" {
			return stderrors.New(strings.TrimSuffix(d.Summary+": "+d.Detail, "."))
		}
		return stderrors.New(d.Summary)
	}
	return stderrors.New("invalid expression")
}

// workspaceNames returns the workspace variable names in sorted order.
func (c *Conn) workspaceNames() []string {
	names := make([]string, 0, len(c.workspace))
	for name := range c.workspace {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
