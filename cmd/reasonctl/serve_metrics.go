package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"deepreason/internal/metrics"
)

var serveMetricsAddr string

var serveMetricsCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Serve the orchestrator's Prometheus collectors over HTTP",
	Long:  `serve-metrics exposes the risk cache, strategy duration and chunk store counters at /metrics for scraping.`,
	RunE:  runServeMetrics,
}

func init() {
	serveMetricsCmd.Flags().StringVar(&serveMetricsAddr, "addr", ":9090", "address to serve /metrics on")
}

func runServeMetrics(cmd *cobra.Command, args []string) error {
	collectors := metrics.New()

	mux := http.NewServeMux()
	mux.Handle("/metrics", collectors.Handler())

	fmt.Fprintf(cmd.OutOrStdout(), "serving metrics on %s/metrics\n", serveMetricsAddr)
	return http.ListenAndServe(serveMetricsAddr, mux)
}
