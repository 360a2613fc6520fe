// Package httputil provides HTTP utilities shared by the thin handlers.
//
// # Responses
//
//	httputil.WriteOK(w, post)
//	httputil.WriteCreated(w, map[string]int64{"id": id})
//	httputil.WriteAppError(w, r, err) // status chosen by StatusFor
//
// StatusFor maps the apperr taxonomy: 400 validation, 401 unauthenticated,
// 403 permission denied, 404 not found, 409 conflict or invalid state,
// 503 when the database is unreachable or missing, 500 otherwise.
//
// # Requests
//
//	var in posts.Input
//	if !httputil.ParseJSONOrError(w, r, &in) {
//		return
//	}
//	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//	page, ok := httputil.ParsePageOrError(w, r)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RecoveryMiddleware(logger),
//		httputil.LoggingMiddleware(logger),
//		httputil.CORSMiddleware(origins),
//		httputil.MaxBytesMiddleware(1<<20),
//	)
package httputil
