// Package audit records administrative actions: role, category and user
// administration, comment moderation and sign-ins.
//
// Post status changes are not recorded here; they are written to
// revisiones_posts inside the status-change transaction.
//
// # Usage
//
// Services emit events after their transaction commits. Emission is
// best-effort: a failed write is logged and never fails the operation.
//
//	audit.Emit(ctx, s.audit, audit.NewEvent(ctx, audit.EventRoleCreate, actor.UserID).
//		WithResource(audit.ResourceRole, roleID).
//		WithMessage("role %s created", name))
//
// Sinks:
//
//   - DBLogger: audit_logs table, searchable through Handlers, purged by Cleanup
//   - LogrusLogger: JSON lines through logrus
//   - MultiLogger: fan-out to several sinks
//
// # Retention
//
// The janitor calls DBLogger.Cleanup on a cron schedule with the configured
// RetentionPolicy.
package audit
