package cli

import (
	"sync"

	"simulacra/internal/component"
	"simulacra/simerr"
)

// Factory builds a component from a model specification's quoted
// constructor arguments.
type Factory func(args []string) (component.Component, error)

var (
	registryMu sync.Mutex
	registry   = map[string]Factory{}
)

// RegisterComponent makes modulePath resolvable from a model specification
// file's `module.path.ClassName('arg')` declarations. Domain example
// packages call this from an init() function.
func RegisterComponent(modulePath string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[modulePath] = factory
}

func lookupComponent(modulePath string, args []string) (component.Component, error) {
	registryMu.Lock()
	factory, ok := registry[modulePath]
	registryMu.Unlock()
	if !ok {
		return nil, simerr.NewPluginConfigurationError("no component registered for module path", modulePath)
	}
	return factory(args)
}
