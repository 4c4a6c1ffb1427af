// Package infrastructure provides reusable infrastructure components for Go applications.
package infrastructure

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap logger for level. "debug" selects the
// human-readable development encoder; every other level logs JSON.
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	return cfg.Build()
}

// FxLoggerAdapter routes Fx lifecycle events and prints through zap.
// Routine wiring events log at debug; failures log at error.
type FxLoggerAdapter struct {
	logger *zap.Logger
}

// NewFxLoggerAdapter returns an fxevent.Logger backed by logger.
func NewFxLoggerAdapter(logger *zap.Logger) fxevent.Logger {
	return &FxLoggerAdapter{logger: logger.Named("fx")}
}

// NewFxPrinter returns an fx.Printer backed by logger.
func NewFxPrinter(logger *zap.Logger) fx.Printer {
	return &FxLoggerAdapter{logger: logger.Named("fx")}
}

// LogEvent implements fxevent.Logger.
func (p *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		p.logger.Debug("OnStart hook executing",
			zap.String("callee", e.FunctionName),
			zap.String("caller", e.CallerName))
	case *fxevent.OnStartExecuted:
		p.hookDone("OnStart", e.FunctionName, e.CallerName, e.Runtime.String(), e.Err)
	case *fxevent.OnStopExecuting:
		p.logger.Debug("OnStop hook executing",
			zap.String("callee", e.FunctionName),
			zap.String("caller", e.CallerName))
	case *fxevent.OnStopExecuted:
		p.hookDone("OnStop", e.FunctionName, e.CallerName, e.Runtime.String(), e.Err)
	case *fxevent.Supplied:
		p.result("Supplied", e.Err, zap.String("type", e.TypeName), zap.String("module", e.ModuleName))
	case *fxevent.Provided:
		p.result("Provided", e.Err,
			zap.Strings("types", e.OutputTypeNames),
			zap.String("constructor", e.ConstructorName),
			zap.String("module", e.ModuleName))
	case *fxevent.Decorated:
		p.result("Decorated", e.Err,
			zap.Strings("types", e.OutputTypeNames),
			zap.String("decorator", e.DecoratorName))
	case *fxevent.Invoking:
		p.logger.Debug("Invoking", zap.String("function", e.FunctionName), zap.String("module", e.ModuleName))
	case *fxevent.Invoked:
		p.result("Invoked", e.Err, zap.String("function", e.FunctionName), zap.String("module", e.ModuleName))
	case *fxevent.Stopping:
		p.logger.Info("Received signal", zap.String("signal", e.Signal.String()))
	case *fxevent.Stopped:
		p.lifecycle("Stopped", e.Err)
	case *fxevent.RollingBack:
		p.logger.Error("Start failed, rolling back", zap.Error(e.StartErr))
	case *fxevent.RolledBack:
		p.lifecycle("Rolled back", e.Err)
	case *fxevent.Started:
		p.lifecycle("Started", e.Err)
	case *fxevent.LoggerInitialized:
		p.result("Logger initialized", e.Err, zap.String("constructor", e.ConstructorName))
	default:
		p.logger.Debug("Unhandled Fx event", zap.String("type", fmt.Sprintf("%T", event)))
	}
}

// Printf implements fx.Printer.
func (p *FxLoggerAdapter) Printf(format string, args ...any) {
	p.logger.Info(fmt.Sprintf(format, args...))
}

func (p *FxLoggerAdapter) hookDone(hook, callee, caller, runtime string, err error) {
	if err != nil {
		p.logger.Error(hook+" hook failed",
			zap.String("callee", callee),
			zap.String("caller", caller),
			zap.Error(err))

		return
	}
	p.logger.Debug(hook+" hook executed",
		zap.String("callee", callee),
		zap.String("caller", caller),
		zap.String("runtime", runtime))
}

func (p *FxLoggerAdapter) result(msg string, err error, fields ...zap.Field) {
	if err != nil {
		p.logger.Error(msg+" with error", append(fields, zap.Error(err))...)

		return
	}
	p.logger.Debug(msg, fields...)
}

func (p *FxLoggerAdapter) lifecycle(msg string, err error) {
	if err != nil {
		p.logger.Error(msg+" with error", zap.Error(err))

		return
	}
	p.logger.Info(msg)
}
