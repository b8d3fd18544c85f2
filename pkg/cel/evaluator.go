package cel

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"switchyard/pkg/models"
)

// EvalError wraps a condition that failed to compile or evaluate. Callers
// treat a failing condition as "not matched" rather than aborting the event.
type EvalError struct {
	Expression string
	Err        error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("condition %q: %v", e.Expression, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

// Evaluator evaluates routing condition strings against events.
//
// The evaluation scope exposes the event fields (type, eventId,
// correlationId, source, version), the context map, the metadata map, and
// every context key as a bare top-level name, so both
// `context['customerTier'] == 'premium'` and `customerTier == 'premium'`
// resolve to the same value. Event fields shadow context keys on name
// collision. `#`-prefixed variable references from legacy rule files are
// accepted and normalized before compilation. `type` is a standard CEL
// declaration and cannot be redeclared, so references to it are rewritten
// to the internal name eventType before compilation.
//
// Programs are compiled once per condition string and cached; evaluation is
// a pure function safe for concurrent use.
type Evaluator struct {
	mu       sync.RWMutex
	programs map[string]*compiled
}

type compiled struct {
	prg cel.Program
	// context keys referenced explicitly (context['key']) and bare
	// identifiers resolved against the context. Absent keys are bound to
	// null at evaluation time, matching the original null semantics of
	// missing map entries.
	contextKeys []string
	bareIdents  []string
}

// scope names always declared; bare context keys never shadow these.
var baseScope = map[string]struct{}{
	"eventType":     {},
	"eventId":       {},
	"correlationId": {},
	"source":        {},
	"version":       {},
	"context":       {},
	"metadata":      {},
}

var reservedWords = map[string]struct{}{
	"true": {}, "false": {}, "null": {}, "in": {},
	"as": {}, "break": {}, "const": {}, "continue": {}, "else": {},
	"for": {}, "function": {}, "if": {}, "import": {}, "let": {},
	"loop": {}, "package": {}, "namespace": {}, "return": {},
	"var": {}, "void": {}, "while": {},
	// standard CEL declarations; redeclaring them fails compilation
	"type": {}, "int": {}, "uint": {}, "double": {}, "bool": {},
	"string": {}, "bytes": {}, "list": {}, "map": {}, "null_type": {},
	"dyn": {},
}

func NewEvaluator() *Evaluator {
	return &Evaluator{
		programs: make(map[string]*compiled),
	}
}

// Evaluate runs one condition against one event. A blank condition is a
// configuration error, not "always true".
func (e *Evaluator) Evaluate(ctx context.Context, expression string, event models.Event) (bool, error) {
	c, err := e.program(expression)
	if err != nil {
		return false, err
	}

	out, _, err := c.prg.ContextEval(ctx, e.buildScope(c, event))
	if err != nil {
		return false, &EvalError{Expression: expression, Err: err}
	}

	boolVal, ok := out.Value().(bool)
	if !ok {
		return false, &EvalError{
			Expression: expression,
			Err:        fmt.Errorf("condition did not return bool, got %T", out.Value()),
		}
	}

	return boolVal, nil
}

// ValidateCondition compile-checks a condition without evaluating it. Used
// by the rule set loader to surface broken conditions at load time.
func (e *Evaluator) ValidateCondition(expression string) error {
	_, err := e.program(expression)
	return err
}

func (e *Evaluator) program(expression string) (*compiled, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, &EvalError{Expression: expression, Err: fmt.Errorf("condition must not be empty")}
	}

	e.mu.RLock()
	c, ok := e.programs[expression]
	e.mu.RUnlock()
	if ok {
		return c, nil
	}

	c, err := compileCondition(expression)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.programs[expression] = c
	e.mu.Unlock()
	return c, nil
}

func compileCondition(expression string) (*compiled, error) {
	normalized := normalize(expression)
	bare := bareIdentifiers(normalized)

	opts := []cel.EnvOption{
		cel.Variable("eventType", cel.StringType),
		cel.Variable("eventId", cel.DynType),
		cel.Variable("correlationId", cel.DynType),
		cel.Variable("source", cel.DynType),
		cel.Variable("version", cel.StringType),
		cel.Variable("context", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("metadata", cel.MapType(cel.StringType, cel.DynType)),
	}
	for _, ident := range bare {
		opts = append(opts, cel.Variable(ident, cel.DynType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, &EvalError{Expression: expression, Err: fmt.Errorf("failed to create CEL environment: %w", err)}
	}

	ast, issues := env.Compile(normalized)
	if issues != nil && issues.Err() != nil {
		return nil, &EvalError{Expression: expression, Err: fmt.Errorf("failed to compile condition: %w", issues.Err())}
	}

	if ast.OutputType() != cel.BoolType && ast.OutputType() != cel.DynType {
		return nil, &EvalError{
			Expression: expression,
			Err:        fmt.Errorf("condition must return bool, got %v", ast.OutputType()),
		}
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, &EvalError{Expression: expression, Err: fmt.Errorf("failed to create CEL program: %w", err)}
	}

	return &compiled{
		prg:         prg,
		contextKeys: indexedContextKeys(normalized),
		bareIdents:  bare,
	}, nil
}

func (e *Evaluator) buildScope(c *compiled, event models.Event) map[string]interface{} {
	ctxMap := make(map[string]interface{}, len(event.Context)+len(c.contextKeys))
	for k, v := range event.Context {
		ctxMap[k] = v
	}
	for _, key := range c.contextKeys {
		if _, ok := ctxMap[key]; !ok {
			ctxMap[key] = nil
		}
	}

	vars := map[string]interface{}{
		"eventType":     event.Type,
		"eventId":       nullable(event.EventID),
		"correlationId": nullable(event.CorrelationID),
		"source":        nullable(event.Source),
		"version":       event.Version,
		"context":       ctxMap,
		"metadata":      metadataToMap(event.Metadata),
	}

	for _, ident := range c.bareIdents {
		if v, ok := event.Context[ident]; ok {
			vars[ident] = v
		} else {
			vars[ident] = nil
		}
	}

	return vars
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func metadataToMap(metadata map[string]string) map[string]interface{} {
	result := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		result[k] = v
	}
	return result
}

// normalize strips the `#` variable-reference prefix the legacy rule format
// uses (`#context['x']`, `#type`) so the expression parses as CEL, and
// rewrites top-level `type` references to eventType, which is declarable.
// String literal contents and field selections are left untouched.
func normalize(expression string) string {
	var b strings.Builder
	b.Grow(len(expression) + len("eventType"))

	var quote rune
	escaped := false
	prevSignificant := rune(0)
	runes := []rune(expression)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if quote != 0 {
			b.WriteRune(r)
			if escaped {
				escaped = false
			} else if r == '\\' {
				escaped = true
			} else if r == quote {
				quote = 0
			}
			continue
		}
		switch {
		case r == '\'' || r == '"':
			quote = r
			prevSignificant = r
			b.WriteRune(r)
		case r == '#' && i+1 < len(runes) && isIdentStart(runes[i+1]):
			// drop the prefix; the identifier after it stays a
			// top-level reference
		case isIdentStart(r):
			start := i
			for i < len(runes) && isIdentPart(runes[i]) {
				i++
			}
			name := string(runes[start:i])
			i--
			if name == "type" && prevSignificant != '.' && nextSignificant(runes, i+1) != '(' {
				name = "eventType"
			}
			b.WriteString(name)
			prevSignificant = 'a'
		default:
			b.WriteRune(r)
			if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
				prevSignificant = r
			}
		}
	}
	return b.String()
}

func nextSignificant(runes []rune, from int) rune {
	for j := from; j < len(runes); j++ {
		switch runes[j] {
		case ' ', '\t', '\n', '\r':
		default:
			return runes[j]
		}
	}
	return 0
}

// bareIdentifiers returns identifiers that are not part of the base scope:
// these are context keys referenced by name and get declared as dyn.
// Field selections (after `.`) and function calls (before `(`) are skipped.
func bareIdentifiers(expression string) []string {
	seen := make(map[string]struct{})
	var idents []string

	var quote rune
	escaped := false
	runes := []rune(expression)
	prevSignificant := rune(0)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if quote != 0 {
			if escaped {
				escaped = false
			} else if r == '\\' {
				escaped = true
			} else if r == quote {
				quote = 0
			}
			continue
		}
		if r == '\'' || r == '"' {
			quote = r
			prevSignificant = r
			continue
		}
		if !isIdentStart(r) {
			if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
				prevSignificant = r
			}
			continue
		}

		start := i
		for i < len(runes) && isIdentPart(runes[i]) {
			i++
		}
		name := string(runes[start:i])

		next := nextSignificant(runes, i)
		i--

		if prevSignificant == '.' {
			prevSignificant = 'a'
			continue
		}
		prevSignificant = 'a'

		if next == '(' {
			continue
		}
		if _, ok := reservedWords[name]; ok {
			continue
		}
		if _, ok := baseScope[name]; ok {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		idents = append(idents, name)
	}

	return idents
}

// indexedContextKeys extracts string literals used to index the context map
// (`context['key']`). Keys absent from an event's context are bound to null
// so null checks behave like the source system.
func indexedContextKeys(expression string) []string {
	seen := make(map[string]struct{})
	var keys []string

	rest := expression
	for {
		idx := strings.Index(rest, "context[")
		if idx < 0 {
			break
		}
		rest = rest[idx+len("context["):]
		trimmed := strings.TrimLeft(rest, " \t")
		if len(trimmed) == 0 || (trimmed[0] != '\'' && trimmed[0] != '"') {
			continue
		}
		quote := trimmed[0]
		end := strings.IndexByte(trimmed[1:], quote)
		if end < 0 {
			break
		}
		key := trimmed[1 : 1+end]
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
		rest = trimmed[1+end:]
	}

	return keys
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}
