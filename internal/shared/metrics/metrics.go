package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	analysisStartedTotal   atomic.Uint64
	analysisCompletedTotal atomic.Uint64
	analysisFailedTotal    atomic.Uint64
	videosUploadedTotal    atomic.Uint64
	analysisJobsReceived   atomic.Uint64
	analysisJobsCompleted  atomic.Uint64
	analysisJobsFailed     atomic.Uint64
	analysisJobsDeleted    atomic.Uint64

	analysisDuration = newHistogram([]float64{500, 1000, 2500, 5000, 10000, 30000, 60000, 120000, 300000})
)

// IncAnalysisStarted increments the started counter.
func IncAnalysisStarted() {
	analysisStartedTotal.Add(1)
}

// IncAnalysisCompleted increments the completed counter.
func IncAnalysisCompleted() {
	analysisCompletedTotal.Add(1)
}

// IncAnalysisFailed increments the failed counter.
func IncAnalysisFailed() {
	analysisFailedTotal.Add(1)
}

// IncVideosUploaded increments the uploaded-videos counter.
func IncVideosUploaded() {
	videosUploadedTotal.Add(1)
}

// IncAnalysisJobsReceived increments the queue-messages-received counter.
func IncAnalysisJobsReceived() {
	analysisJobsReceived.Add(1)
}

// IncAnalysisJobsCompleted increments the queue-messages-completed counter.
func IncAnalysisJobsCompleted() {
	analysisJobsCompleted.Add(1)
}

// IncAnalysisJobsFailed increments the queue-messages-failed counter.
func IncAnalysisJobsFailed() {
	analysisJobsFailed.Add(1)
}

// IncAnalysisJobsDeletedUnrecoverable counts messages dropped as unrecoverable.
func IncAnalysisJobsDeletedUnrecoverable() {
	analysisJobsDeleted.Add(1)
}

// ObserveAnalysisDurationMs records a pipeline duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "video_analysis_started_total", "Total analysis pipelines started", analysisStartedTotal.Load())
	writeCounter(&buf, "video_analysis_completed_total", "Total analysis pipelines completed", analysisCompletedTotal.Load())
	writeCounter(&buf, "video_analysis_failed_total", "Total analysis pipelines failed", analysisFailedTotal.Load())
	writeCounter(&buf, "videos_uploaded_total", "Total videos uploaded", videosUploadedTotal.Load())
	writeCounter(&buf, "analysis_jobs_received_total", "Total queue messages received", analysisJobsReceived.Load())
	writeCounter(&buf, "analysis_jobs_completed_total", "Total queue messages processed successfully", analysisJobsCompleted.Load())
	writeCounter(&buf, "analysis_jobs_failed_total", "Total queue messages that failed processing", analysisJobsFailed.Load())
	writeCounter(&buf, "analysis_jobs_deleted_unrecoverable_total", "Total queue messages dropped as unrecoverable", analysisJobsDeleted.Load())
	writeHistogram(&buf, "video_analysis_duration_ms", "Analysis pipeline duration in milliseconds", analysisDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)+1),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	idx := len(h.buckets)
	for i, bound := range h.buckets {
		if value <= bound {
			idx = i
			break
		}
	}
	h.counts[idx]++
	h.sum += value
	h.count++
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	counts := make([]uint64, len(h.counts))
	copy(counts, h.counts)
	return histogramSnapshot{
		buckets: h.buckets,
		counts:  counts,
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	cumulative := uint64(0)
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=%q} %d\n", name, strconv.FormatFloat(bound, 'f', -1, 64), cumulative)
	}
	cumulative += snap.counts[len(snap.buckets)]
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, cumulative)
	fmt.Fprintf(buf, "%s_sum %s\n", name, strconv.FormatFloat(snap.sum, 'f', -1, 64))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}
