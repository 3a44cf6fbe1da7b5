// Package metrics exports a scan summary in the Prometheus text format,
// for the node_exporter textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ner0x652/bonomen/pkg/types"
)

const namespace = "bonomen"

// Registry builds a registry describing one scan result
func Registry(result *types.ScanResult) *prometheus.Registry {
	reg := prometheus.NewRegistry()

	gauge := func(name, help string, value float64) {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
		g.Set(value)
		reg.MustRegister(g)
	}

	gauge("suspicious_processes", "Impersonation findings in the last scan.", float64(result.Summary.Suspicious))
	gauge("scanned_processes", "Processes inspected in the last scan.", float64(result.Summary.TotalProcesses))
	gauge("process_errors", "Processes that could not be fully inspected in the last scan.", float64(result.Summary.ProcessErrors))
	gauge("rules", "Critical process rules loaded for the last scan.", float64(result.Summary.TotalRules))
	gauge("scan_duration_seconds", "Duration of the last scan.", float64(result.ScanDurationMs)/1000)
	gauge("last_scan_timestamp_seconds", "Unix time of the last scan.", float64(result.ScanTime.Unix()))

	findings := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "findings",
		Help:      "Impersonation findings per critical process rule.",
	}, []string{"rule"})
	for _, f := range result.Findings {
		findings.WithLabelValues(f.RuleName).Inc()
	}
	reg.MustRegister(findings)

	return reg
}

// WriteTextfile atomically writes the scan summary to path
func WriteTextfile(path string, result *types.ScanResult) error {
	if err := prometheus.WriteToTextfile(path, Registry(result)); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
