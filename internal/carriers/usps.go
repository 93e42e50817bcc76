package carriers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/mercaline/marketplace-backend/pkg/clock"
	"github.com/mercaline/marketplace-backend/pkg/config"
	"github.com/mercaline/marketplace-backend/pkg/enums"
	"github.com/mercaline/marketplace-backend/pkg/logger"
)

var uspsTrackingPattern = regexp.MustCompile(`^(\d{20,22}|[A-Z]{2}\d{9}US)$`)

type uspsCarrier struct {
	baseURL string
	apiKey  string
	client  *http.Client
	clk     clock.Clock
	logg    *logger.Logger
}

// NewUSPS builds the USPS tracking client.
func NewUSPS(cfg config.CarriersConfig, clk clock.Clock, logg *logger.Logger) Carrier {
	if clk == nil {
		clk = clock.System()
	}
	return &uspsCarrier{
		baseURL: cfg.USPSBaseURL,
		apiKey:  cfg.USPSAPIKey,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		clk:     clk,
		logg:    logg,
	}
}

func (u *uspsCarrier) Name() enums.Carrier {
	return enums.CarrierUSPS
}

func (u *uspsCarrier) GetTrackingURL(trackingNumber string) string {
	return "https://tools.usps.com/go/TrackConfirmAction?tLabels=" + url.QueryEscape(trackingNumber)
}

func (u *uspsCarrier) ValidateTrackingNumber(trackingNumber string) bool {
	return uspsTrackingPattern.MatchString(trackingNumber)
}

func (u *uspsCarrier) GetTrackingInfo(ctx context.Context, trackingNumber string) (*TrackingInfo, error) {
	if !u.ValidateTrackingNumber(trackingNumber) {
		return nil, fmt.Errorf("invalid usps tracking number %q", trackingNumber)
	}

	endpoint := fmt.Sprintf("%s/%s", u.baseURL, url.PathEscape(trackingNumber))
	raw, err := fetch(ctx, u.client, endpoint, map[string]string{"X-Api-Key": u.apiKey})
	if err != nil {
		logUpstreamFailure(ctx, u.logg, u, trackingNumber, err)
		return fallbackInfo(u, trackingNumber, u.clk), nil
	}

	events, err := u.ParseTrackingEvents(raw)
	if err != nil {
		logUpstreamFailure(ctx, u.logg, u, trackingNumber, err)
		return fallbackInfo(u, trackingNumber, u.clk), nil
	}
	return &TrackingInfo{
		TrackingNumber: trackingNumber,
		Carrier:        u.Name(),
		TrackingURL:    u.GetTrackingURL(trackingNumber),
		Events:         events,
	}, nil
}

type uspsResponse struct {
	TrackingEvents []struct {
		EventType      string `json:"eventType"`
		EventTimestamp string `json:"eventTimestamp"`
		EventCity      string `json:"eventCity"`
	} `json:"trackingEvents"`
}

func (u *uspsCarrier) ParseTrackingEvents(raw []byte) ([]TrackingEvent, error) {
	var payload uspsResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse usps response: %w", err)
	}
	if len(payload.TrackingEvents) == 0 {
		return nil, fmt.Errorf("usps response has no tracking events")
	}

	events := make([]TrackingEvent, 0, len(payload.TrackingEvents))
	for _, ev := range payload.TrackingEvents {
		ts, err := time.Parse(time.RFC3339, ev.EventTimestamp)
		if err != nil {
			continue
		}
		events = append(events, TrackingEvent{
			Status:      uspsStatus(ev.EventType),
			Description: ev.EventType,
			Location:    ev.EventCity,
			Timestamp:   ts,
		})
	}
	return events, nil
}

func uspsStatus(eventType string) TrackingStatus {
	switch eventType {
	case "Shipping Label Created":
		return StatusLabelCreated
	case "Accepted at USPS Origin Facility", "Picked Up":
		return StatusPickedUp
	case "In Transit to Next Facility", "Arrived at USPS Facility", "Departed USPS Facility":
		return StatusInTransit
	case "Out for Delivery":
		return StatusOutForDelivery
	case "Delivered":
		return StatusDelivered
	case "Alert":
		return StatusException
	default:
		return StatusInTransit
	}
}
