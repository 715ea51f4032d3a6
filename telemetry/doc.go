/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package telemetry provides the logging, metrics and tracing used by the
// persistence controller and the storectl command.
//
// Logging is built on zerolog. Metrics are Prometheus collectors registered
// on a private registry; a Metrics value built with metrics disabled is a
// no-op, as is a nil *Metrics. Spans are created through the global
// OpenTelemetry tracer provider, which is a no-op unless the application
// installs one.
package telemetry
