// Copyright 2025 Skald Labs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@skaldlabs.dev
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ingestMetrics holds the Prometheus metrics for the ingestion subsystem.
// Registration is lazy so importing the package in tests does not pollute
// the default registry until a pipeline actually runs.
type ingestMetrics struct {
	once sync.Once

	files         prometheus.Counter
	parseErrors   prometheus.Counter
	classes       prometheus.Counter
	functions     prometheus.Counter
	embedded      prometheus.Counter
	failedBatches prometheus.Counter

	parseDuration prometheus.Histogram
	graphDuration prometheus.Histogram
	embedDuration prometheus.Histogram
	totalDuration prometheus.Histogram
}

var metrics ingestMetrics

func (m *ingestMetrics) init() {
	m.once.Do(func() {
		m.files = prometheus.NewCounter(prometheus.CounterOpts{Name: "skald_ingest_files_total", Help: "Files walked during ingestion"})
		m.parseErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "skald_ingest_parse_errors_total", Help: "Files that failed to parse"})
		m.classes = prometheus.NewCounter(prometheus.CounterOpts{Name: "skald_ingest_classes_total", Help: "Class nodes written"})
		m.functions = prometheus.NewCounter(prometheus.CounterOpts{Name: "skald_ingest_functions_total", Help: "Function and method nodes written"})
		m.embedded = prometheus.NewCounter(prometheus.CounterOpts{Name: "skald_ingest_embeddings_total", Help: "Chunks successfully embedded"})
		m.failedBatches = prometheus.NewCounter(prometheus.CounterOpts{Name: "skald_ingest_failed_batches_total", Help: "Embedding batches skipped after provider errors"})

		buckets := []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}
		m.parseDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "skald_ingest_parse_seconds", Help: "Walk and parse phase duration", Buckets: buckets})
		m.graphDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "skald_ingest_graph_seconds", Help: "Graph population duration", Buckets: buckets})
		m.embedDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "skald_ingest_embed_seconds", Help: "Embedding phase duration", Buckets: buckets})
		m.totalDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "skald_ingest_total_seconds", Help: "Total ingestion run duration", Buckets: buckets})

		prometheus.MustRegister(
			m.files, m.parseErrors, m.classes, m.functions,
			m.embedded, m.failedBatches,
			m.parseDuration, m.graphDuration, m.embedDuration, m.totalDuration,
		)
	})
}

func recordFiles(n int)         { metrics.init(); metrics.files.Add(float64(n)) }
func recordParseErrors(n int)   { metrics.init(); metrics.parseErrors.Add(float64(n)) }
func recordClasses(n int)       { metrics.init(); metrics.classes.Add(float64(n)) }
func recordFunctions(n int)     { metrics.init(); metrics.functions.Add(float64(n)) }
func recordEmbedded(n int)      { metrics.init(); metrics.embedded.Add(float64(n)) }
func recordFailedBatches(n int) { metrics.init(); metrics.failedBatches.Add(float64(n)) }

func observeParse(d time.Duration) { metrics.init(); metrics.parseDuration.Observe(d.Seconds()) }
func observeGraph(d time.Duration) { metrics.init(); metrics.graphDuration.Observe(d.Seconds()) }
func observeEmbed(d time.Duration) { metrics.init(); metrics.embedDuration.Observe(d.Seconds()) }
func observeTotal(d time.Duration) { metrics.init(); metrics.totalDuration.Observe(d.Seconds()) }
