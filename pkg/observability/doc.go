/*
Package observability provides tools for monitoring state systems.

Everything here is built on domain.LifecycleHooks: Prometheus collectors for
dispatches and notification passes, structured logging of lifecycle events, and
Combine to stack several hook sets on one system.
*/
package observability
