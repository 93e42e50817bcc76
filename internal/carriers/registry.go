package carriers

import (
	"github.com/mercaline/marketplace-backend/pkg/clock"
	"github.com/mercaline/marketplace-backend/pkg/config"
	"github.com/mercaline/marketplace-backend/pkg/enums"
	"github.com/mercaline/marketplace-backend/pkg/errors"
	"github.com/mercaline/marketplace-backend/pkg/logger"
)

// Registry selects the tracking implementation for a carrier.
type Registry struct {
	carriers map[enums.Carrier]Carrier
}

// NewRegistry wires every supported carrier from the shared configuration.
func NewRegistry(cfg config.CarriersConfig, clk clock.Clock, logg *logger.Logger) *Registry {
	return &Registry{
		carriers: map[enums.Carrier]Carrier{
			enums.CarrierDHL:   NewDHL(cfg, clk, logg),
			enums.CarrierFedEx: NewFedEx(cfg, clk, logg),
			enums.CarrierUPS:   NewUPS(cfg, clk, logg),
			enums.CarrierUSPS:  NewUSPS(cfg, clk, logg),
			enums.CarrierLocal: NewLocal(clk),
		},
	}
}

// For returns the implementation registered for the carrier.
func (r *Registry) For(carrier enums.Carrier) (Carrier, error) {
	impl, ok := r.carriers[carrier]
	if !ok {
		return nil, errors.New(errors.CodeValidation, "unsupported carrier").
			WithDetails(map[string]any{"carrier": string(carrier)})
	}
	return impl, nil
}
