//go:build release

package assert

import "github.com/rs/zerolog/log"

// Fatal reports whether a violated invariant stops the program.
const Fatal = false

// That logs a violated invariant instead of panicking. Release builds keep running and the
// caller is expected to treat the offending operation as a no-op.
func That(cond bool, format string, args ...any) { //nolint:goprintffuncname // it's ok
	if !cond {
		log.Error().Str("component", "assert").Msgf(format, args...)
	}
}
