package agents

import (
	"fmt"

	"github.com/jinzhu/copier"
)

// MergeConfig layers runtime over base. Configurable keys from runtime
// replace the ones in base, runtime metadata replaces base metadata as a
// whole. Neither input is modified and the result shares no maps with them.
func MergeConfig(base RunConfig, runtime *RunConfig) (RunConfig, error) {
	merged := RunConfig{Configurable: map[string]any{}}
	if base.Configurable != nil {
		if err := copier.CopyWithOption(&merged.Configurable, base.Configurable, copier.Option{DeepCopy: true}); err != nil {
			return RunConfig{}, fmt.Errorf("failed to copy base configurable: %w", err)
		}
	}
	if base.Metadata != nil {
		if err := copier.CopyWithOption(&merged.Metadata, base.Metadata, copier.Option{DeepCopy: true}); err != nil {
			return RunConfig{}, fmt.Errorf("failed to copy base metadata: %w", err)
		}
	}

	if runtime == nil {
		return merged, nil
	}

	if runtime.Configurable != nil {
		overrides := map[string]any{}
		if err := copier.CopyWithOption(&overrides, runtime.Configurable, copier.Option{DeepCopy: true}); err != nil {
			return RunConfig{}, fmt.Errorf("failed to copy runtime configurable: %w", err)
		}
		for key, value := range overrides {
			merged.Configurable[key] = value
		}
	}
	if runtime.Metadata != nil {
		merged.Metadata = nil
		if err := copier.CopyWithOption(&merged.Metadata, runtime.Metadata, copier.Option{DeepCopy: true}); err != nil {
			return RunConfig{}, fmt.Errorf("failed to copy runtime metadata: %w", err)
		}
	}

	return merged, nil
}
