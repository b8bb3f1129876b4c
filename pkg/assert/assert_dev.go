//go:build !release

package assert

import "fmt"

// Fatal reports whether a violated invariant stops the program.
const Fatal = true

// That panics with the formatted message when cond is false.
func That(cond bool, format string, args ...any) { //nolint:goprintffuncname // it's ok
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
