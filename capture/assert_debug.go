//go:build debug

package capture

import "fmt"

func assertf(format string, args ...any) {
	panic(fmt.Sprintf(format, args...))
}
