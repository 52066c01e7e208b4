package metrics

import "strconv"

// Exporter names a metric backend. Values match telemetry.metrics_provider.
type Exporter string

const (
	ExporterPrometheus Exporter = "prometheus"
	ExporterOTLP       Exporter = "otlp"
)

// ParseExporter maps a config value onto an Exporter, defaulting to
// Prometheus.
func ParseExporter(s string) Exporter {
	if Exporter(s) == ExporterOTLP {
		return ExporterOTLP
	}
	return ExporterPrometheus
}

// ExporterCfg configures one reader on the meter provider.
type ExporterCfg struct {
	Exporter Exporter
	Endpoint string
	Headers  map[string]string
	Insecure bool
}

// OTLP pushes to a collector over gRPC.
func OTLP(endpoint string, headers map[string]string, insecure bool) ExporterCfg {
	return ExporterCfg{Exporter: ExporterOTLP, Endpoint: endpoint, Headers: headers, Insecure: insecure}
}

// Prometheus exposes a pull endpoint; see ServePrometheusMetrics.
func Prometheus() ExporterCfg {
	return ExporterCfg{Exporter: ExporterPrometheus}
}

type Config struct {
	ServiceName    string
	ServiceVersion string
	Exporters      []ExporterCfg
	// LatencyBuckets overrides the boundaries of every *_ms histogram.
	LatencyBuckets []float64
}

type OptionFn func(*Config)

func WithService(name, version string) OptionFn {
	return func(c *Config) {
		c.ServiceName = name
		c.ServiceVersion = version
	}
}

func WithExporter(e ExporterCfg) OptionFn {
	return func(c *Config) { c.Exporters = append(c.Exporters, e) }
}

func WithLatencyBuckets(bounds ...float64) OptionFn {
	return func(c *Config) { c.LatencyBuckets = bounds }
}

type serverConfig struct {
	port string
	path string
}

type ServerOptionFn func(*serverConfig)

// WithPort ignores non-positive ports.
func WithPort(port int) ServerOptionFn {
	return func(c *serverConfig) {
		if port > 0 {
			c.port = strconv.Itoa(port)
		}
	}
}

func WithPath(path string) ServerOptionFn {
	return func(c *serverConfig) {
		if path != "" {
			c.path = path
		}
	}
}
