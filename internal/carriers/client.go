package carriers

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"time"

	"github.com/mercaline/marketplace-backend/pkg/clock"
	"github.com/mercaline/marketplace-backend/pkg/logger"
)

const maxResponseBytes = 1 << 20

// fetch performs an authenticated GET against a carrier API and returns the
// body. Any transport error or non-2xx status is reported to the caller, who
// is expected to fall back rather than propagate.
func fetch(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("carrier responded with status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}

// fallbackInfo builds the deterministic substitute timeline used when the
// upstream is unavailable. The shipment's apparent progress is derived from a
// hash of the tracking number, so repeated lookups agree with each other.
func fallbackInfo(c Carrier, trackingNumber string, clk clock.Clock) *TrackingInfo {
	now := clk.Now().UTC().Truncate(time.Hour)

	h := fnv.New32a()
	h.Write([]byte(trackingNumber))
	progress := int(h.Sum32() % 3)

	events := []TrackingEvent{
		{
			Status:      StatusPickedUp,
			Description: "Shipment picked up",
			Location:    "Origin facility",
			Timestamp:   now.Add(-48 * time.Hour),
		},
	}
	if progress >= 1 {
		events = append(events, TrackingEvent{
			Status:      StatusInTransit,
			Description: "Shipment in transit",
			Location:    "Sorting hub",
			Timestamp:   now.Add(-24 * time.Hour),
		})
	}
	if progress >= 2 {
		events = append(events, TrackingEvent{
			Status:      StatusOutForDelivery,
			Description: "Out for delivery",
			Location:    "Local depot",
			Timestamp:   now.Add(-2 * time.Hour),
		})
	}

	return &TrackingInfo{
		TrackingNumber: trackingNumber,
		Carrier:        c.Name(),
		TrackingURL:    c.GetTrackingURL(trackingNumber),
		Events:         events,
		Fallback:       true,
	}
}

func logUpstreamFailure(ctx context.Context, logg *logger.Logger, c Carrier, trackingNumber string, err error) {
	if logg == nil {
		return
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"carrier":         string(c.Name()),
		"tracking_number": trackingNumber,
		"error":           err.Error(),
	})
	logg.Warn(logCtx, "carrier lookup failed, serving fallback")
}
