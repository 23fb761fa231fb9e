package runner

import "context"

// FailureLogger logs failed requests.
type FailureLogger interface {
	LogFailure(err error)
}

// loggingExecutor wraps an Executor with failure logging.
type loggingExecutor struct {
	inner  Executor
	logger FailureLogger
}

// WithLogging wraps an Executor to log failures as they complete.
func WithLogging(exec Executor, logger FailureLogger) Executor {
	if logger == nil || exec == nil {
		return exec
	}
	return &loggingExecutor{
		inner:  exec,
		logger: logger,
	}
}

func (l *loggingExecutor) Execute(ctx context.Context) Outcome {
	out := l.inner.Execute(ctx)
	if !out.OK() {
		l.logger.LogFailure(out.Err)
	}
	return out
}
