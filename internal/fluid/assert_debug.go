//go:build waterdebug

package fluid

import "fmt"

// DebugAssertions reports whether invariant checks panic.
const DebugAssertions = true

func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
