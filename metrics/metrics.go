// Package metrics exposes Prometheus collectors for the ingestion
// pipeline. Collectors register on the default registry; embedders that
// serve /metrics pick them up automatically.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchAttempts counts individual fetch attempts by strategy
	// (http, browser) and outcome (ok, retry, failed).
	FetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docforest",
		Subsystem: "fetch",
		Name:      "attempts_total",
		Help:      "Fetch attempts by strategy and outcome.",
	}, []string{"strategy", "outcome"})

	// PagesParsed counts pages handed to a parser, by MIME family.
	PagesParsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docforest",
		Subsystem: "parse",
		Name:      "pages_total",
		Help:      "Pages parsed by MIME family.",
	}, []string{"mime"})

	// ParseFailures counts per-document or per-subtree parse failures
	// that degraded to partial output.
	ParseFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docforest",
		Subsystem: "parse",
		Name:      "failures_total",
		Help:      "Structural parse failures by MIME family.",
	}, []string{"mime"})

	// ArtifactsProduced counts artifacts emitted by parsers.
	ArtifactsProduced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "docforest",
		Subsystem: "parse",
		Name:      "artifacts_total",
		Help:      "Artifacts produced across all loads.",
	})
)
