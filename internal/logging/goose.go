package logging

import (
	"context"
	"fmt"
	"strings"
)

// GooseLogger routes goose migration output through a Logger. It satisfies
// goose.Logger.
type GooseLogger struct {
	L Logger
}

func (g GooseLogger) Printf(format string, v ...any) {
	g.L.Info(context.Background(), strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrations")
}

// Fatalf is reported as an error; goose returns the failure to the caller
// as well, so the process is not terminated here.
func (g GooseLogger) Fatalf(format string, v ...any) {
	g.L.Error(context.Background(), strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrations")
}
