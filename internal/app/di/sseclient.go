package di

import (
	"log/slog"
	"time"

	"updown_backend/internal/feature/stream/sseclient"
	infrahttp "updown_backend/internal/platform/http"
)

// snapshotTimeout bounds the fallback price fetch. The stream request itself
// must never time out client-side, so its client gets no timeout at all.
const snapshotTimeout = 10 * time.Second

// NewStreamSupervisor creates a stream supervisor with its HTTP clients.
func NewStreamSupervisor(cfg sseclient.Config, handlers sseclient.Handlers, logger *slog.Logger) *sseclient.Supervisor {
	streamClient := infrahttp.NewHTTPClient(0)
	snapClient := infrahttp.NewHTTPClient(snapshotTimeout)
	return sseclient.New(cfg, handlers, streamClient, snapClient, logger)
}
