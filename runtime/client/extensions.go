package client

import (
	"context"
	"log/slog"
	"time"
)

// Operation names passed to extensions
const (
	OpFetch     = "fetch"
	OpIterate   = "iterate"
	OpCount     = "count"
	OpExists    = "exists"
	OpValues    = "values"
	OpDistinct  = "distinct"
	OpAggregate = "aggregate"
	OpInsert    = "insert"
	OpUpdate    = "update"
	OpDelete    = "delete"
)

// ExtensionContext describes a model operation
type ExtensionContext struct {
	Context   context.Context
	Model     string // table name
	Operation string
	Args      interface{}
	Result    interface{} // set before the After hooks run
	Error     error
	Duration  time.Duration
	StartTime time.Time
	EndTime   time.Time
}

// Hook is called around a model operation
type Hook func(ctx *ExtensionContext, next func() error) error

// Extension hooks into the model operations of a client. Query hooks see
// reads, mutation hooks see inserts, updates and deletes.
type Extension struct {
	Name string

	BeforeQuery Hook
	AfterQuery  Hook

	BeforeMutation Hook
	AfterMutation  Hook
}

// ExtensionChain manages a chain of extensions
type ExtensionChain struct {
	extensions []Extension
}

// NewExtensionChain creates a new extension chain
func NewExtensionChain() *ExtensionChain {
	return &ExtensionChain{
		extensions: []Extension{},
	}
}

// Add adds an extension to the chain
func (ec *ExtensionChain) Add(ext Extension) {
	ec.extensions = append(ec.extensions, ext)
}

// Len returns the number of extensions
func (ec *ExtensionChain) Len() int {
	return len(ec.extensions)
}

// ExecuteQuery runs a read operation through the extension chain
func (ec *ExtensionChain) ExecuteQuery(ctx context.Context, model, operation string, args interface{}, exec func() (interface{}, error)) (interface{}, error) {
	return ec.execute(ctx, model, operation, args, false, exec)
}

// ExecuteMutation runs a write operation through the extension chain
func (ec *ExtensionChain) ExecuteMutation(ctx context.Context, model, operation string, args interface{}, exec func() (interface{}, error)) (interface{}, error) {
	return ec.execute(ctx, model, operation, args, true, exec)
}

func (ec *ExtensionChain) execute(ctx context.Context, model, operation string, args interface{}, mutation bool, exec func() (interface{}, error)) (interface{}, error) {
	extCtx := &ExtensionContext{
		Context:   ctx,
		Model:     model,
		Operation: operation,
		Args:      args,
		StartTime: time.Now(),
	}

	before := func(ext Extension) Hook {
		if mutation {
			return ext.BeforeMutation
		}
		return ext.BeforeQuery
	}
	after := func(ext Extension) Hook {
		if mutation {
			return ext.AfterMutation
		}
		return ext.AfterQuery
	}

	// A failing Before hook aborts the operation
	for _, ext := range ec.extensions {
		if hook := before(ext); hook != nil {
			if err := hook(extCtx, func() error { return nil }); err != nil {
				return nil, err
			}
		}
	}

	result, err := exec()
	extCtx.Result = result
	extCtx.Error = err
	extCtx.EndTime = time.Now()
	extCtx.Duration = extCtx.EndTime.Sub(extCtx.StartTime)

	// After hooks run in reverse order. A hook error replaces the result of
	// the operation.
	for i := len(ec.extensions) - 1; i >= 0; i-- {
		if hook := after(ec.extensions[i]); hook != nil {
			if hookErr := hook(extCtx, func() error { return nil }); hookErr != nil {
				return result, hookErr
			}
		}
	}

	return result, err
}

// LoggingExtension logs every model operation at debug level
func LoggingExtension(logger *slog.Logger) Extension {
	log := func(kind string) Hook {
		return func(ctx *ExtensionContext, next func() error) error {
			attrs := []any{"model", ctx.Model, "operation", ctx.Operation, "duration", ctx.Duration}
			if ctx.Error != nil {
				logger.WarnContext(ctx.Context, kind+" failed", append(attrs, "error", ctx.Error)...)
			} else {
				logger.DebugContext(ctx.Context, kind+" completed", attrs...)
			}
			return next()
		}
	}

	return Extension{
		Name:          "logging",
		AfterQuery:    log("query"),
		AfterMutation: log("mutation"),
	}
}

// TimingExtension reports the duration of every model operation
func TimingExtension(onTiming func(model, operation string, duration time.Duration)) Extension {
	hook := func(ctx *ExtensionContext, next func() error) error {
		if onTiming != nil {
			onTiming(ctx.Model, ctx.Operation, ctx.Duration)
		}
		return next()
	}

	return Extension{
		Name:          "timing",
		AfterQuery:    hook,
		AfterMutation: hook,
	}
}

// ErrorHandlingExtension reports failed model operations
func ErrorHandlingExtension(onError func(model, operation string, err error)) Extension {
	hook := func(ctx *ExtensionContext, next func() error) error {
		if ctx.Error != nil && onError != nil {
			onError(ctx.Model, ctx.Operation, ctx.Error)
		}
		return next()
	}

	return Extension{
		Name:          "error-handling",
		AfterQuery:    hook,
		AfterMutation: hook,
	}
}

// ReadOnlyExtension rejects every mutation with err
func ReadOnlyExtension(err error) Extension {
	return Extension{
		Name: "read-only",
		BeforeMutation: func(ctx *ExtensionContext, next func() error) error {
			return err
		},
	}
}
