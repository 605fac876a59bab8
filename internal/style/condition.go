package style

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

var featureRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// Condition is a compiled boolean style expression such as the show
// channel, evaluated against the properties of one feature.
type Condition struct {
	source  string
	program *exprvm.Program
}

// CompileCondition compiles a tileset style condition. Feature properties
// are referenced as ${name}; strict (in)equality operators are accepted.
// An empty expression always holds.
func CompileCondition(expression string) (*Condition, error) {
	c := &Condition{source: expression}
	if strings.TrimSpace(expression) == "" {
		return c, nil
	}
	translated := featureRef.ReplaceAllStringFunc(expression, func(m string) string {
		name := featureRef.FindStringSubmatch(m)[1]
		return "feature[" + strconv.Quote(strings.TrimSpace(name)) + "]"
	})
	translated = strings.NewReplacer("===", "==", "!==", "!=").Replace(translated)

	program, err := exprlang.Compile(translated,
		exprlang.Env(map[string]any{"feature": map[string]any{}}),
		exprlang.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedStyle, expression, err)
	}
	c.program = program
	return c, nil
}

// Eval reports whether the condition holds for the given feature properties.
func (c *Condition) Eval(props map[string]any) (bool, error) {
	if c == nil || c.program == nil {
		return true, nil
	}
	if props == nil {
		props = map[string]any{}
	}
	out, err := exprlang.Run(c.program, map[string]any{"feature": props})
	if err != nil {
		return false, fmt.Errorf("evaluating %q: %w", c.source, err)
	}
	switch v := out.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	case nil:
		return false, nil
	}
	return false, fmt.Errorf("evaluating %q: non-boolean result %T", c.source, out)
}

// String returns the source expression.
func (c *Condition) String() string {
	if c == nil {
		return ""
	}
	return c.source
}
