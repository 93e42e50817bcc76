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

var fedexTrackingPattern = regexp.MustCompile(`^\d{12}(\d{3})?$`)

type fedexCarrier struct {
	baseURL string
	apiKey  string
	client  *http.Client
	clk     clock.Clock
	logg    *logger.Logger
}

// NewFedEx builds the FedEx tracking client.
func NewFedEx(cfg config.CarriersConfig, clk clock.Clock, logg *logger.Logger) Carrier {
	if clk == nil {
		clk = clock.System()
	}
	return &fedexCarrier{
		baseURL: cfg.FedExBaseURL,
		apiKey:  cfg.FedExAPIKey,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		clk:     clk,
		logg:    logg,
	}
}

func (f *fedexCarrier) Name() enums.Carrier {
	return enums.CarrierFedEx
}

func (f *fedexCarrier) GetTrackingURL(trackingNumber string) string {
	return "https://www.fedex.com/fedextrack/?trknbr=" + url.QueryEscape(trackingNumber)
}

func (f *fedexCarrier) ValidateTrackingNumber(trackingNumber string) bool {
	return fedexTrackingPattern.MatchString(trackingNumber)
}

func (f *fedexCarrier) GetTrackingInfo(ctx context.Context, trackingNumber string) (*TrackingInfo, error) {
	if !f.ValidateTrackingNumber(trackingNumber) {
		return nil, fmt.Errorf("invalid fedex tracking number %q", trackingNumber)
	}

	endpoint := fmt.Sprintf("%s?trackingNumber=%s", f.baseURL, url.QueryEscape(trackingNumber))
	raw, err := fetch(ctx, f.client, endpoint, map[string]string{"Authorization": "Bearer " + f.apiKey})
	if err != nil {
		logUpstreamFailure(ctx, f.logg, f, trackingNumber, err)
		return fallbackInfo(f, trackingNumber, f.clk), nil
	}

	events, err := f.ParseTrackingEvents(raw)
	if err != nil {
		logUpstreamFailure(ctx, f.logg, f, trackingNumber, err)
		return fallbackInfo(f, trackingNumber, f.clk), nil
	}
	return &TrackingInfo{
		TrackingNumber: trackingNumber,
		Carrier:        f.Name(),
		TrackingURL:    f.GetTrackingURL(trackingNumber),
		Events:         events,
	}, nil
}

type fedexResponse struct {
	Output struct {
		CompleteTrackResults []struct {
			TrackResults []struct {
				ScanEvents []struct {
					Date             string `json:"date"`
					DerivedStatus    string `json:"derivedStatus"`
					EventDescription string `json:"eventDescription"`
					ScanLocation     struct {
						City string `json:"city"`
					} `json:"scanLocation"`
				} `json:"scanEvents"`
			} `json:"trackResults"`
		} `json:"completeTrackResults"`
	} `json:"output"`
}

func (f *fedexCarrier) ParseTrackingEvents(raw []byte) ([]TrackingEvent, error) {
	var payload fedexResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse fedex response: %w", err)
	}
	results := payload.Output.CompleteTrackResults
	if len(results) == 0 || len(results[0].TrackResults) == 0 {
		return nil, fmt.Errorf("fedex response has no track results")
	}

	scans := results[0].TrackResults[0].ScanEvents
	events := make([]TrackingEvent, 0, len(scans))
	for _, ev := range scans {
		ts, err := time.Parse(time.RFC3339, ev.Date)
		if err != nil {
			continue
		}
		events = append(events, TrackingEvent{
			Status:      fedexStatus(ev.DerivedStatus),
			Description: ev.EventDescription,
			Location:    ev.ScanLocation.City,
			Timestamp:   ts,
		})
	}
	return events, nil
}

func fedexStatus(derived string) TrackingStatus {
	switch derived {
	case "Label created":
		return StatusLabelCreated
	case "Picked up":
		return StatusPickedUp
	case "In transit":
		return StatusInTransit
	case "Out for delivery":
		return StatusOutForDelivery
	case "Delivered":
		return StatusDelivered
	case "Delivery exception":
		return StatusException
	default:
		return StatusInTransit
	}
}
