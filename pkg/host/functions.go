package host

import (
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/zeebo/xxh3"
)

// Func is a user-registered template function.
type Func func(args ...interface{}) (interface{}, error)

// DefaultCacheBound is how many repeated calls with identical arguments
// reuse the cached result before the function runs again.
const DefaultCacheBound = 1000

type registration struct {
	fn         Func
	cacheBound int
}

type callEntry struct {
	result interface{}
	hits   int
}

type funcTable struct {
	mu    sync.Mutex
	funcs map[string]registration
	calls map[string]*callEntry
}

func newFuncTable() *funcTable {
	return &funcTable{
		funcs: make(map[string]registration),
		calls: make(map[string]*callEntry),
	}
}

// register adds a callable under name. Re-registration is refused; a
// bound of 0 disables result caching for this function.
func (t *funcTable) register(name string, fn Func, cacheBound int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.funcs[name]; exists {
		return fmt.Errorf("template function %q is already registered", name)
	}
	t.funcs[name] = registration{fn: fn, cacheBound: cacheBound}
	return nil
}

// invoke dispatches name against the table, going through the bounded
// call-result cache: the last result for (name, args) is reused until
// the hit counter reaches the registration's bound, then the function
// runs again and the counter resets.
func (t *funcTable) invoke(name string, args []interface{}) (interface{}, error) {
	t.mu.Lock()
	reg, ok := t.funcs[name]
	t.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown template function %q", name)
	}

	if reg.cacheBound <= 0 {
		return reg.fn(args...)
	}

	key, hashable := callKey(name, args)
	if !hashable {
		return reg.fn(args...)
	}

	t.mu.Lock()
	if e, ok := t.calls[key]; ok && e.hits < reg.cacheBound {
		e.hits++
		res := e.result
		t.mu.Unlock()
		return res, nil
	}
	t.mu.Unlock()

	res, err := reg.fn(args...)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.calls[key] = &callEntry{result: res, hits: 0}
	t.mu.Unlock()
	return res, nil
}

func (t *funcTable) names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.funcs))
	for name := range t.funcs {
		out = append(out, name)
	}
	return out
}

func callKey(name string, args []interface{}) (string, bool) {
	data, err := json.Marshal(args)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%s:%016x", name, xxh3.Hash(data)), true
}
