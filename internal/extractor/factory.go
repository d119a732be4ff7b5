package extractor

import (
	"fmt"

	"propveris/internal/config"
	"propveris/internal/port"
)

// ProviderFactory is a function that creates a FieldExtractor from an
// extractor config.
type ProviderFactory func(cfg *config.ExtractorConfig) (port.FieldExtractor, error)

// registry of extractor provider factories, populated explicitly via
// RegisterProvider at startup.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers an extractor provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewExtractor creates a FieldExtractor from the configured provider
// using the registered factory.
func NewExtractor(cfg *config.ExtractorConfig) (port.FieldExtractor, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown extractor provider: %s", cfg.Provider)
	}
	return factory(cfg)
}
