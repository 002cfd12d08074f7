package providers

import (
	"fmt"

	"github.com/rosilesmarcos01/bbms-sub000/internal/config"
	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
	"github.com/rosilesmarcos01/bbms-sub000/internal/providers/biometric"
	"github.com/rosilesmarcos01/bbms-sub000/internal/providers/stub"
)

// BuildGateway creates the provider gateway for the configured provider type.
func BuildGateway(cfg config.ProviderConfig) (core.ProviderGateway, error) {
	switch cfg.Type {
	case stub.Type:
		return stub.NewFromConfig(cfg)
	case biometric.Type:
		prov, err := biometric.NewFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("building biometric provider '%s': %w", cfg.Name, err)
		}
		return prov, nil
	default:
		return nil, fmt.Errorf("unknown provider type '%s' for provider '%s'", cfg.Type, cfg.Name)
	}
}
