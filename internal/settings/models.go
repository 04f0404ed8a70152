package settings

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cast"
)

const (
	KeySearchDebounceMS = "search_debounce_ms"
	KeyOverviewLimit    = "overview_limit"
	KeyExportCron       = "export_cron"
)

var ErrUnknownKey = errors.New("unknown setting")

type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Validate checks value against what key accepts.
func Validate(key, value string) error {
	switch key {
	case KeySearchDebounceMS, KeyOverviewLimit:
		n, err := cast.ToIntE(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive integer", key)
		}
	case KeyExportCron:
		if _, err := cron.ParseStandard(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}
