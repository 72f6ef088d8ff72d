package ipddp

import (
	"fmt"
	"io"
	"os"
)

// LogLevel controls the verbosity of iteration logging, kept in the same
// leveled-writer shape as the teacher's lbfgsb.Logger.
type LogLevel int

const (
	// LogNoop disables all output.
	LogNoop LogLevel = -1
	// LogSummary prints the solver header (when enabled) and the final
	// status line.
	LogSummary LogLevel = 0
	// LogIteration prints one line per outer iteration, accepted or not.
	LogIteration LogLevel = 1
	// LogVerbose additionally prints per-iteration scalar diagnostics
	// (mu, rho, filter state).
	LogVerbose LogLevel = 2
)

// Logger handles solver logging output. Writers must be safe to use from a
// single goroutine (the outer iteration loop is synchronous, see spec.md
// §5); no locking is performed.
type Logger struct {
	Level LogLevel
	Out   io.Writer
}

func newDefaultLogger(verbose, debug bool) *Logger {
	level := LogSummary
	if verbose {
		level = LogIteration
	}
	if debug {
		level = LogVerbose
	}
	return &Logger{Level: level, Out: os.Stdout}
}

func (l *Logger) enable(level LogLevel) bool {
	return l != nil && l.Level >= level
}

func (l *Logger) log(format string, a ...any) {
	if l == nil || l.Out == nil {
		return
	}
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Out, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Out, format)
	}
}

func (l *Logger) header(name string, n, m, horizon int) {
	if !l.enable(LogSummary) {
		return
	}
	l.log("RUNNING THE IPDDP SOLVER (%s)\n", name)
	l.log("n = %d    m = %d    H = %d\n", n, m, horizon)
}

func (l *Logger) iteration(iter int, s ScalarState) {
	if !l.enable(LogIteration) {
		return
	}
	l.log("iter %4d   J= %12.5e   alpha= %8.2e   inf_pr= %8.2e   inf_du= %8.2e   inf_comp= %8.2e\n",
		iter, s.J, s.StepLen, s.InfPr, s.InfDu, s.InfComp)
	if l.enable(LogVerbose) {
		l.log("            mu= %8.2e   rho= %8.2e   phi= %12.5e   theta= %8.2e\n", s.Mu, s.Rho, s.Phi, s.Theta)
	}
}

func (l *Logger) exit(status Status, iters int) {
	if !l.enable(LogSummary) {
		return
	}
	l.log("\n%s after %d iterations\n", status.String(), iters)
}
