package carriers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mercaline/marketplace-backend/pkg/clock"
	"github.com/mercaline/marketplace-backend/pkg/enums"
)

// localCarrier covers in-house deliveries. There is no upstream API: tracking
// state lives in the order itself, so lookups always serve the synthesized
// timeline.
type localCarrier struct {
	clk clock.Clock
}

// NewLocal builds the in-house delivery carrier.
func NewLocal(clk clock.Clock) Carrier {
	if clk == nil {
		clk = clock.System()
	}
	return &localCarrier{clk: clk}
}

func (l *localCarrier) Name() enums.Carrier {
	return enums.CarrierLocal
}

func (l *localCarrier) GetTrackingURL(trackingNumber string) string {
	return ""
}

func (l *localCarrier) ValidateTrackingNumber(trackingNumber string) bool {
	return strings.TrimSpace(trackingNumber) != ""
}

func (l *localCarrier) GetTrackingInfo(ctx context.Context, trackingNumber string) (*TrackingInfo, error) {
	if !l.ValidateTrackingNumber(trackingNumber) {
		return nil, fmt.Errorf("tracking number is required")
	}
	return fallbackInfo(l, trackingNumber, l.clk), nil
}

func (l *localCarrier) ParseTrackingEvents(raw []byte) ([]TrackingEvent, error) {
	var events []TrackingEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("parse local events: %w", err)
	}
	return events, nil
}
