package host

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"slate/pkg/compiler"
)

// Evaluator is the render-time host the compiled artifact targets: it
// binds variables, dispatches $this-> calls against the registered
// function table, escapes echoed values and resolves translations and
// partials.
type Evaluator struct {
	Compiler *compiler.Compiler

	table        *funcTable
	sanitizer    *bluemonday.Policy
	translations *TranslationTable
	lang         string

	programs sync.Map // normalized expression -> compiled program
}

// NewEvaluator wires an evaluator to a compiler. The compiler reference
// is used by render-time partial includes and RenderFile; it may be nil
// for artifact-only rendering.
func NewEvaluator(c *compiler.Compiler) *Evaluator {
	return &Evaluator{
		Compiler: c,
		table:    newFuncTable(),
	}
}

// Register adds a template function. Registering the same name twice is
// an error the caller must treat as fatal. cacheBound controls the
// call-result cache; 0 disables it.
func (e *Evaluator) Register(name string, fn Func, cacheBound int) error {
	return e.table.register(name, fn, cacheBound)
}

// Invoke dispatches a registered function by name, through the bounded
// call-result cache.
func (e *Evaluator) Invoke(name string, args []interface{}) (interface{}, error) {
	return e.table.invoke(name, args)
}

// WithSanitizer routes raw (non-escaping) emissions through the given
// policy.
func (e *Evaluator) WithSanitizer(p *bluemonday.Policy) *Evaluator {
	e.sanitizer = p
	return e
}

// WithTranslations selects the translation table and target language.
func (e *Evaluator) WithTranslations(t *TranslationTable, lang string) *Evaluator {
	e.translations = t
	e.lang = lang
	return e
}

// Render executes a compiled artifact against the given variables.
func (e *Evaluator) Render(artifact string, vars map[string]interface{}) (string, error) {
	scope := NewScope(nil)
	for k, v := range vars {
		scope.Set(k, v)
	}
	return e.renderArtifact(artifact, scope)
}

// RenderFile compiles a template (through the compile cache) and
// renders it in one step.
func (e *Evaluator) RenderFile(path string, vars map[string]interface{}) (string, error) {
	artifact, err := e.Compiler.CompileFile(path)
	if err != nil {
		return "", err
	}
	return e.Render(artifact, vars)
}
