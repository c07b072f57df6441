//go:build !debug

package capture

func assertf(format string, args ...any) {}
