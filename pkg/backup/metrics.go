package backup

import "time"

// UploadMetrics receives upload instrumentation callbacks.
// Implementations must be safe for concurrent use.
type UploadMetrics interface {
	// ObserveUpload records one upload attempt with the archive size,
	// the transfer duration and its outcome. On failure bytes is the
	// size of the archive that failed to transfer.
	ObserveUpload(bytes int64, duration time.Duration, err error)
}

// nopUploadMetrics discards all observations.
type nopUploadMetrics struct{}

func (nopUploadMetrics) ObserveUpload(int64, time.Duration, error) {}

func uploadMetricsOrNop(m UploadMetrics) UploadMetrics {
	if m == nil {
		return nopUploadMetrics{}
	}
	return m
}
