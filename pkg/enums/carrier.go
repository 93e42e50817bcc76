package enums

import "fmt"

// Carrier identifies a supported shipping carrier.
type Carrier string

const (
	CarrierDHL   Carrier = "dhl"
	CarrierFedEx Carrier = "fedex"
	CarrierUPS   Carrier = "ups"
	CarrierUSPS  Carrier = "usps"
	CarrierLocal Carrier = "local"
)

var validCarriers = []Carrier{
	CarrierDHL,
	CarrierFedEx,
	CarrierUPS,
	CarrierUSPS,
	CarrierLocal,
}

// String implements fmt.Stringer.
func (c Carrier) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Carrier.
func (c Carrier) IsValid() bool {
	for _, candidate := range validCarriers {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCarrier converts raw input into a Carrier.
func ParseCarrier(value string) (Carrier, error) {
	for _, candidate := range validCarriers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid carrier %q", value)
}

// TrackingStatus is the normalized state of a tracking event across carriers.
type TrackingStatus string

const (
	TrackingStatusLabelCreated   TrackingStatus = "label_created"
	TrackingStatusPickedUp       TrackingStatus = "picked_up"
	TrackingStatusInTransit      TrackingStatus = "in_transit"
	TrackingStatusOutForDelivery TrackingStatus = "out_for_delivery"
	TrackingStatusDelivered      TrackingStatus = "delivered"
	TrackingStatusException      TrackingStatus = "exception"
)

var validTrackingStatuses = []TrackingStatus{
	TrackingStatusLabelCreated,
	TrackingStatusPickedUp,
	TrackingStatusInTransit,
	TrackingStatusOutForDelivery,
	TrackingStatusDelivered,
	TrackingStatusException,
}

// IsValid reports whether the value is a known TrackingStatus.
func (s TrackingStatus) IsValid() bool {
	for _, candidate := range validTrackingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}
