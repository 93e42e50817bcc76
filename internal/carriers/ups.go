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

var upsTrackingPattern = regexp.MustCompile(`^1Z[A-HJ-NP-Z0-9]{16}$`)

type upsCarrier struct {
	baseURL string
	apiKey  string
	client  *http.Client
	clk     clock.Clock
	logg    *logger.Logger
}

// NewUPS builds the UPS tracking client.
func NewUPS(cfg config.CarriersConfig, clk clock.Clock, logg *logger.Logger) Carrier {
	if clk == nil {
		clk = clock.System()
	}
	return &upsCarrier{
		baseURL: cfg.UPSBaseURL,
		apiKey:  cfg.UPSAPIKey,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		clk:     clk,
		logg:    logg,
	}
}

func (u *upsCarrier) Name() enums.Carrier {
	return enums.CarrierUPS
}

func (u *upsCarrier) GetTrackingURL(trackingNumber string) string {
	return "https://www.ups.com/track?tracknum=" + url.QueryEscape(trackingNumber)
}

func (u *upsCarrier) ValidateTrackingNumber(trackingNumber string) bool {
	return upsTrackingPattern.MatchString(trackingNumber)
}

func (u *upsCarrier) GetTrackingInfo(ctx context.Context, trackingNumber string) (*TrackingInfo, error) {
	if !u.ValidateTrackingNumber(trackingNumber) {
		return nil, fmt.Errorf("invalid ups tracking number %q", trackingNumber)
	}

	endpoint := fmt.Sprintf("%s/%s", u.baseURL, url.PathEscape(trackingNumber))
	raw, err := fetch(ctx, u.client, endpoint, map[string]string{"Authorization": "Bearer " + u.apiKey})
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

type upsResponse struct {
	TrackResponse struct {
		Shipment []struct {
			Package []struct {
				Activity []struct {
					Date     string `json:"date"`
					Time     string `json:"time"`
					Status   struct {
						Type        string `json:"type"`
						Description string `json:"description"`
					} `json:"status"`
					Location struct {
						Address struct {
							City string `json:"city"`
						} `json:"address"`
					} `json:"location"`
				} `json:"activity"`
			} `json:"package"`
		} `json:"shipment"`
	} `json:"trackResponse"`
}

func (u *upsCarrier) ParseTrackingEvents(raw []byte) ([]TrackingEvent, error) {
	var payload upsResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse ups response: %w", err)
	}
	shipments := payload.TrackResponse.Shipment
	if len(shipments) == 0 || len(shipments[0].Package) == 0 {
		return nil, fmt.Errorf("ups response has no packages")
	}

	activities := shipments[0].Package[0].Activity
	events := make([]TrackingEvent, 0, len(activities))
	for _, ev := range activities {
		// UPS splits the stamp into yyyyMMdd and HHmmss fields.
		ts, err := time.Parse("20060102150405", ev.Date+ev.Time)
		if err != nil {
			continue
		}
		events = append(events, TrackingEvent{
			Status:      upsStatus(ev.Status.Type),
			Description: ev.Status.Description,
			Location:    ev.Location.Address.City,
			Timestamp:   ts,
		})
	}
	return events, nil
}

func upsStatus(code string) TrackingStatus {
	switch code {
	case "M":
		return StatusLabelCreated
	case "P":
		return StatusPickedUp
	case "I":
		return StatusInTransit
	case "O":
		return StatusOutForDelivery
	case "D":
		return StatusDelivered
	case "X":
		return StatusException
	default:
		return StatusInTransit
	}
}
