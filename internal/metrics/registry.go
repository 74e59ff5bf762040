package metrics

import "github.com/prometheus/client_golang/prometheus"

// namespace prefixes every metric exposed by this package.
const namespace = "cop"

// Registry is the Prometheus registry metrics in this package are
// registered against. A dedicated registry (rather than the global
// default) keeps CLI invocations from leaking unrelated process metrics.
var Registry = prometheus.NewRegistry()
