/*
Package observability turns engine lifecycle hooks into logs and Prometheus
metrics.

Both helpers return domain.LifecycleHooks, so they compose with any caller
hooks through domain.ComposeHooks.
*/
package observability
