//go:build !waterdebug

package fluid

// DebugAssertions reports whether invariant checks panic.
const DebugAssertions = false

func assertf(bool, string, ...any) {}
