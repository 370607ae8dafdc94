package ninja

import "github.com/yue/binsizer/internal/sizerr"

func newTestDiagnostics() *sizerr.Diagnostics {
	return sizerr.NewDiagnostics(func(format string, args ...any) {})
}
