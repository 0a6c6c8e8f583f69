/*
Package observability turns engine lifecycle events into metrics and log lines.

Metrics registers Prometheus collectors for step visits, step latency, repair
attempts and session outcomes. LoggingHooks writes the same events to slog.
Combine merges several domain.LifecycleHooks into one so both can be installed
on the engine.
*/
package observability
