// Package logger provides adapters for popular logger libraries to work with
// ridx's Logger interface.
//
// The adapters allow you to use your existing logger with ridx without
// writing boilerplate. Note that the standard library's slog.Logger already
// implements ridx.Logger directly.
//
// Example with zap:
//
//	zapLogger, _ := zap.NewProduction()
//
//	bm := bufmgr.New(bufmgr.DefaultPoolSize)
//	idx, _, err := ridx.Open("orders", 0, ridx.Integer, bm,
//		ridx.WithLogger(logger.NewZap(zapLogger)),
//	)
package logger
