// Package httpserver runs the serving process's HTTP listener: the WebSocket
// upgrade endpoint plus the health and metrics routes.
//
// Server is built from an env-tagged Config and driven entirely by its Run
// context. Cancelling the context drains in-flight requests within the
// shutdown timeout; the process's signal handling stays in cmd/server where
// the rest of the lifecycle lives. Long-lived WebSocket connections are not
// subject to the server's read/write timeouts after the upgrade hijacks them.
//
//	srv := httpserver.New(cfg.Server, httpserver.WithLogger(log))
//	g.Go(func() error { return srv.Run(ctx, router) })
//
// HealthCheckHandler serves both probe flavors: with no dependency checks it
// is a liveness probe, with checks it reports readiness.
//
// Run wraps listen failures with ErrStart and shutdown failures with
// ErrShutdown, inspectable with errors.Is.
package httpserver
