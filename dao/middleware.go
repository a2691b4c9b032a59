package dao

import (
	"context"
	"log/slog"
	"time"
)

// QueryEvent describes one statement execution passing through the middleware chain.
type QueryEvent struct {
	Query    string
	Args     []any
	Duration time.Duration
	Error    error
	Start    time.Time
	End      time.Time
}

// Middleware intercepts statement executions. It must call next exactly once
// for the statement to run.
type Middleware func(ctx context.Context, event *QueryEvent, next func() error) error

// chain runs exec behind the given middlewares, outermost first.
func chain(ctx context.Context, middlewares []Middleware, query string, args []any, exec func() error) error {
	if len(middlewares) == 0 {
		return exec()
	}

	event := &QueryEvent{
		Query: query,
		Args:  args,
		Start: time.Now(),
	}

	index := 0
	var next func() error
	next = func() error {
		if index >= len(middlewares) {
			err := exec()
			event.End = time.Now()
			event.Duration = event.End.Sub(event.Start)
			event.Error = err
			return err
		}

		mw := middlewares[index]
		index++
		return mw(ctx, event, next)
	}

	return next()
}

// LoggingMiddleware logs every statement at debug level and failures at error level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		logger.DebugContext(ctx, "executing query", "sql", event.Query, "args", event.Args)
		err := next()
		if err != nil {
			logger.ErrorContext(ctx, "query failed", "sql", event.Query, "error", err)
		} else {
			logger.DebugContext(ctx, "query completed", "sql", event.Query, "duration", event.Duration)
		}
		return err
	}
}

// TimingMiddleware reports the duration of every statement.
func TimingMiddleware(onTiming func(query string, duration time.Duration)) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if onTiming != nil {
			onTiming(event.Query, event.Duration)
		}
		return err
	}
}

// ErrorMiddleware reports failed statements.
func ErrorMiddleware(onError func(query string, err error)) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if err != nil && onError != nil {
			onError(event.Query, err)
		}
		return err
	}
}
