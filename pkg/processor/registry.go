package processor

import (
	"bytes"
	"fmt"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yonas-y/dabstract/pkg/config"
)

// Factory builds a processor from config parameters.
type Factory func(params map[string]any) (Processor, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func init() {
	Register("standard_scaler", decodeInto[StandardScaler])
	Register("minmax_scaler", decodeInto[MinMaxScaler])
	Register("robust_scaler", decodeInto[RobustScaler])
	Register("clipper", decodeInto[Clipper])
	Register("imputer", decodeInto[Imputer])
	Register("log1p", decodeInto[Log1p])
	Register("polynomial", decodeInto[Polynomial])
	Register("column_select", decodeInto[ColumnSelect])
	Register("framer", decodeInto[Framer])
	Register("aggregate", decodeInto[Aggregate])
	Register("wav_reader", decodeInto[WavReader])
}

// Register makes a processor available under name, replacing any earlier
// registration.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Registered returns the registered names, sorted.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// New builds the processor registered under name.
func New(name string, params map[string]any) (Processor, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProcessor, name)
	}
	p, err := f(params)
	if err != nil {
		return nil, fmt.Errorf("processor %q: %w", name, err)
	}
	return p, nil
}

// ChainFromConfig builds a chain from its config.
func ChainFromConfig(cfg config.Chain) (*Chain, error) {
	c := NewChain()
	for i, step := range cfg.Steps {
		p, err := New(step.Name, step.Params)
		if err != nil {
			return nil, fmt.Errorf("chain step %d: %w", i, err)
		}
		c.Add(p)
	}
	return c, nil
}

// validator is implemented by processors with required parameters.
type validator interface {
	validate() error
}

// decodeInto decodes params into a new T through its yaml tags. Unknown
// parameters are rejected.
func decodeInto[T any, PT interface {
	*T
	Processor
}](params map[string]any) (Processor, error) {
	p := PT(new(T))
	if len(params) > 0 {
		raw, err := yaml.Marshal(params)
		if err != nil {
			return nil, err
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(p); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
		}
	}
	if v, ok := Processor(p).(validator); ok {
		if err := v.validate(); err != nil {
			return nil, err
		}
	}
	return p, nil
}
