package policy

import (
	"fmt"

	"github.com/justapithecus/panelrt/config"
	"github.com/justapithecus/panelrt/rtlog"
)

// New builds the EffectPolicy cfg.Name identifies. An empty Name
// defaults to "strict", matching config.Default()'s PolicyConfig.
func New(cfg config.PolicyConfig, logger *rtlog.Logger) (EffectPolicy, error) {
	switch cfg.Name {
	case "", "strict":
		return NewStrictPolicy(), nil
	case "buffered":
		return NewBufferedPolicy(cfg.BufferOverflow, logger), nil
	case "streaming":
		return NewStreamingPolicy(nil, logger), nil
	case "noop":
		return NewNoopPolicy(), nil
	default:
		return nil, fmt.Errorf("policy: unknown policy %q", cfg.Name)
	}
}
