package carriers

import (
	"context"
	"time"

	"github.com/mercaline/marketplace-backend/pkg/enums"
)

// TrackingStatus is the normalized state of a tracking event across carriers.
type TrackingStatus string

const (
	StatusLabelCreated   TrackingStatus = "label_created"
	StatusPickedUp       TrackingStatus = "picked_up"
	StatusInTransit      TrackingStatus = "in_transit"
	StatusOutForDelivery TrackingStatus = "out_for_delivery"
	StatusDelivered      TrackingStatus = "delivered"
	StatusException      TrackingStatus = "exception"
)

// TrackingEvent is one normalized scan in a shipment's history.
type TrackingEvent struct {
	Status      TrackingStatus `json:"status"`
	Description string         `json:"description"`
	Location    string         `json:"location"`
	Timestamp   time.Time      `json:"timestamp"`
}

// TrackingInfo is the carrier-agnostic tracking view shown on order detail.
// Fallback is set when the upstream could not be reached and the events are
// synthesized instead.
type TrackingInfo struct {
	TrackingNumber string          `json:"tracking_number"`
	Carrier        enums.Carrier   `json:"carrier"`
	TrackingURL    string          `json:"tracking_url"`
	Events         []TrackingEvent `json:"events"`
	Fallback       bool            `json:"fallback"`
}

// Carrier looks up and normalizes shipment tracking for one shipping company.
// GetTrackingInfo never returns an upstream error: on timeout, auth failure,
// or a non-2xx response it degrades to a deterministic fallback so order
// pages stay renderable during carrier outages.
type Carrier interface {
	GetTrackingInfo(ctx context.Context, trackingNumber string) (*TrackingInfo, error)
	ParseTrackingEvents(raw []byte) ([]TrackingEvent, error)
	GetTrackingURL(trackingNumber string) string
	ValidateTrackingNumber(trackingNumber string) bool
	Name() enums.Carrier
}
