// Package hookloader resolves a hook module by name and invokes its entry
// point. Concrete hook modules are out of scope for the core engine — they
// are user-authored, job-specific side effects — so this package only
// supplies the Go-idiomatic stand-in for "import a named module and call
// its main": a compile-time registry that hook-bearing packages populate
// via init().
package hookloader

import (
	"fmt"
	"os"
	"strings"
)

// Namespace is the fixed prefix short hook names resolve under.
const Namespace = "deepwork.hooks."

// Main is a hook module's entry point, returning a process exit code.
type Main func() int

var registry = map[string]Main{}

// Register adds a hook module's entry point under its fully qualified name.
// Called from hook-module packages' init() functions.
func Register(fullyQualifiedName string, main Main) {
	registry[fullyQualifiedName] = main
}

// Resolve looks up a hook module by either its fully qualified name or a
// short name under Namespace.
func Resolve(name string) (Main, error) {
	if fn, ok := registry[name]; ok {
		return fn, nil
	}
	if !strings.HasPrefix(name, Namespace) {
		if fn, ok := registry[Namespace+name]; ok {
			return fn, nil
		}
	}
	return nil, fmt.Errorf("no hook module registered under %q", name)
}

// Run resolves and invokes the named hook module, returning its exit code.
func Run(name string) int {
	fn, err := Resolve(name)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return fn()
}
