package sales

import (
	"fmt"
	"time"
)

// TimingConfig is the process-wide window configuration. It is mutated only
// by admin operations and passed explicitly into every window check.
type TimingConfig struct {
	MaxSaleDuration       time.Duration `json:"max_sale_duration"`
	MinSaleDuration       time.Duration `json:"min_sale_duration"`
	MinTimeDifference     time.Duration `json:"min_time_difference"`
	ExtensionDuration     time.Duration `json:"extension_duration"`
	MinSaleUpdateDuration time.Duration `json:"min_sale_update_duration"`
}

func DefaultTimingConfig() TimingConfig {
	return TimingConfig{
		MaxSaleDuration:       30 * 24 * time.Hour,
		MinSaleDuration:       time.Hour,
		MinTimeDifference:     24 * time.Hour,
		ExtensionDuration:     10 * time.Minute,
		MinSaleUpdateDuration: 0,
	}
}

func (c TimingConfig) Validate() error {
	if c.MaxSaleDuration <= 0 || c.MinSaleDuration <= 0 {
		return fmt.Errorf("%w: sale durations must be positive", ErrInvalidConfig)
	}
	if c.MinSaleDuration > c.MaxSaleDuration {
		return fmt.Errorf("%w: min sale duration %s above max %s", ErrInvalidConfig, c.MinSaleDuration, c.MaxSaleDuration)
	}
	if c.MinTimeDifference < 0 || c.ExtensionDuration < 0 || c.MinSaleUpdateDuration < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidConfig)
	}
	return nil
}

// ValidateWindow checks a listing window against cfg at time now.
func (c TimingConfig) ValidateWindow(now, start, end time.Time) error {
	if start.Before(now.Add(c.MinTimeDifference)) {
		return fmt.Errorf("%w: start %s must be at least %s after %s",
			ErrInvalidWindow, start.Format(time.RFC3339), c.MinTimeDifference, now.Format(time.RFC3339))
	}
	if !start.Before(end) {
		return fmt.Errorf("%w: start must precede end", ErrInvalidWindow)
	}
	d := end.Sub(start)
	if d < c.MinSaleDuration || d > c.MaxSaleDuration {
		return fmt.Errorf("%w: duration %s outside [%s, %s]", ErrInvalidWindow, d, c.MinSaleDuration, c.MaxSaleDuration)
	}
	return nil
}

// UpdatableAt fails with ErrSaleAlreadyStarted once now reaches
// StartTime - MinSaleUpdateDuration.
func (c TimingConfig) UpdatableAt(s *Sale, now time.Time) error {
	if !now.Before(s.StartTime.Add(-c.MinSaleUpdateDuration)) {
		return fmt.Errorf("%w: sale %d starts at %s", ErrSaleAlreadyStarted, s.ID, s.StartTime.Format(time.RFC3339))
	}
	return nil
}
