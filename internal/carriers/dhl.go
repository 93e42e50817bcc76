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

var dhlTrackingPattern = regexp.MustCompile(`^\d{10}(\d{10})?$`)

type dhlCarrier struct {
	baseURL string
	apiKey  string
	client  *http.Client
	clk     clock.Clock
	logg    *logger.Logger
}

// NewDHL builds the DHL tracking client.
func NewDHL(cfg config.CarriersConfig, clk clock.Clock, logg *logger.Logger) Carrier {
	if clk == nil {
		clk = clock.System()
	}
	return &dhlCarrier{
		baseURL: cfg.DHLBaseURL,
		apiKey:  cfg.DHLAPIKey,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		clk:     clk,
		logg:    logg,
	}
}

func (d *dhlCarrier) Name() enums.Carrier {
	return enums.CarrierDHL
}

func (d *dhlCarrier) GetTrackingURL(trackingNumber string) string {
	return "https://www.dhl.com/track?tracking-id=" + url.QueryEscape(trackingNumber)
}

func (d *dhlCarrier) ValidateTrackingNumber(trackingNumber string) bool {
	return dhlTrackingPattern.MatchString(trackingNumber)
}

func (d *dhlCarrier) GetTrackingInfo(ctx context.Context, trackingNumber string) (*TrackingInfo, error) {
	if !d.ValidateTrackingNumber(trackingNumber) {
		return nil, fmt.Errorf("invalid dhl tracking number %q", trackingNumber)
	}

	endpoint := fmt.Sprintf("%s?trackingNumber=%s", d.baseURL, url.QueryEscape(trackingNumber))
	raw, err := fetch(ctx, d.client, endpoint, map[string]string{"DHL-API-Key": d.apiKey})
	if err != nil {
		logUpstreamFailure(ctx, d.logg, d, trackingNumber, err)
		return fallbackInfo(d, trackingNumber, d.clk), nil
	}

	events, err := d.ParseTrackingEvents(raw)
	if err != nil {
		logUpstreamFailure(ctx, d.logg, d, trackingNumber, err)
		return fallbackInfo(d, trackingNumber, d.clk), nil
	}
	return &TrackingInfo{
		TrackingNumber: trackingNumber,
		Carrier:        d.Name(),
		TrackingURL:    d.GetTrackingURL(trackingNumber),
		Events:         events,
	}, nil
}

type dhlResponse struct {
	Shipments []struct {
		Events []struct {
			Timestamp   string `json:"timestamp"`
			StatusCode  string `json:"statusCode"`
			Description string `json:"description"`
			Location    struct {
				Address struct {
					AddressLocality string `json:"addressLocality"`
				} `json:"address"`
			} `json:"location"`
		} `json:"events"`
	} `json:"shipments"`
}

func (d *dhlCarrier) ParseTrackingEvents(raw []byte) ([]TrackingEvent, error) {
	var payload dhlResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse dhl response: %w", err)
	}
	if len(payload.Shipments) == 0 {
		return nil, fmt.Errorf("dhl response has no shipments")
	}

	events := make([]TrackingEvent, 0, len(payload.Shipments[0].Events))
	for _, ev := range payload.Shipments[0].Events {
		ts, err := time.Parse(time.RFC3339, ev.Timestamp)
		if err != nil {
			continue
		}
		events = append(events, TrackingEvent{
			Status:      dhlStatus(ev.StatusCode),
			Description: ev.Description,
			Location:    ev.Location.Address.AddressLocality,
			Timestamp:   ts,
		})
	}
	return events, nil
}

func dhlStatus(code string) TrackingStatus {
	switch code {
	case "pre-transit":
		return StatusLabelCreated
	case "transit":
		return StatusInTransit
	case "delivered":
		return StatusDelivered
	case "failure":
		return StatusException
	default:
		return StatusInTransit
	}
}
