// Package health provides liveness and readiness endpoints for vigil.
//
// Liveness reports that the process is serving HTTP. Readiness runs every
// registered component check concurrently, each bounded by a timeout. A
// failed Critical check (the catalog) returns 503. Failed Degrading checks
// (the stores) return 200 with status "degraded", since evaluations still
// produce verdicts while persistence is down:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("catalog", health.Critical, health.CatalogCheck(manager))
//	checker.RegisterCheck("profiles", health.Degrading, health.PingCheck(store))
//	checker.RegisterCheck("events", health.Degrading, health.PingCheck(log))
//	health.Register(mux, checker, cfg.Telemetry.Health, buildInfo)
//
// Stores that implement Pinger are pinged; any other value passed to
// PingCheck is treated as always reachable.
package health
