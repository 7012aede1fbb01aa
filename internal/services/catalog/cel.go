package catalog

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// CELEngine compiles and evaluates search relation predicates
type CELEngine struct {
	env      *cel.Env
	programs sync.Map // expression -> cel.Program
}

// NewCELEngine creates a new CEL engine with the search variables declared
func NewCELEngine() (*CELEngine, error) {
	env, err := cel.NewEnv(
		// object: the candidate instance (type, id and its attributes)
		cel.Variable("object", cel.MapType(cel.StringType, cel.DynType)),
		// subject: the page instance the search runs for
		cel.Variable("subject", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &CELEngine{env: env}, nil
}

// ValidateExpression checks that an expression compiles and returns a boolean
func (e *CELEngine) ValidateExpression(expression string) error {
	if expression == "" {
		return fmt.Errorf("search expression is empty")
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("invalid CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return fmt.Errorf("CEL expression must return boolean, got: %s", ast.OutputType())
	}

	return nil
}

// Matches evaluates a search expression against one candidate object
func (e *CELEngine) Matches(expression string, object, subject map[string]interface{}) (bool, error) {
	program, err := e.program(expression)
	if err != nil {
		return false, err
	}

	if object == nil {
		object = map[string]interface{}{}
	}
	if subject == nil {
		subject = map[string]interface{}{}
	}

	result, _, err := program.Eval(map[string]interface{}{
		"object":  object,
		"subject": subject,
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	matched, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not evaluate to boolean, got: %T", result.Value())
	}

	return matched, nil
}

// program returns the compiled program for an expression, compiling it on first use
func (e *CELEngine) program(expression string) (cel.Program, error) {
	if cached, ok := e.programs.Load(expression); ok {
		return cached.(cel.Program), nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	e.programs.Store(expression, program)
	return program, nil
}
