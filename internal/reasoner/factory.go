package reasoner

import (
	"fmt"

	"propveris/internal/config"
	"propveris/internal/port"
)

// ProviderFactory is a function that creates a ReasoningBackend from a
// provider config.
type ProviderFactory func(cfg *config.ReasonerProviderConfig) (port.ReasoningBackend, error)

// registry of reasoning backend factories, populated explicitly via
// RegisterProvider at startup.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a reasoning backend factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewBackend creates a ReasoningBackend from a provider config using
// the registered factory.
func NewBackend(cfg *config.ReasonerProviderConfig) (port.ReasoningBackend, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown reasoner provider: %s", cfg.Provider)
	}
	return factory(cfg)
}
