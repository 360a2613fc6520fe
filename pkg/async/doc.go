// Package async runs background work with panic recovery and timeouts.
//
// SafeGo runs one task in a goroutine:
//
//	async.SafeGo(ctx, 5*time.Second, "audit emit", func(ctx context.Context) error {
//		return auditLogger.Log(ctx, event)
//	})
//
// Every runs a task on a fixed interval until the context is cancelled:
//
//	async.Every(ctx, 15*time.Second, "db pool stats", func(ctx context.Context) error {
//		metrics.UpdateDBStats(db.Stats())
//		return nil
//	})
//
// Errors and panics are logged through logrus and never crash the process.
package async
