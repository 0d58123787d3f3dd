package usecase

import (
	"time"

	"github.com/shandysiswandi/gopasscode/internal/passcode/entity"
	"github.com/shandysiswandi/gopasscode/internal/pkg/config"
	"go.uber.org/atomic"
)

// Defaults applied when a setting is missing or not positive.
const (
	DefaultTTL               = 5 * time.Minute
	DefaultMaxAttempts       = 3
	DefaultThrottleRemaining = 240 * time.Second
)

// Settings is the immutable snapshot the state machine runs with.
type Settings struct {
	TTL         time.Duration
	MaxAttempts int
	// ThrottleRemaining blocks a new request while the live code has more
	// lifetime left than this.
	ThrottleRemaining time.Duration
	DeliveryMode      entity.DeliveryMode
}

// SettingsFromConfig reads the modules.passcode.* keys.
func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		TTL:               cfg.GetMinute("modules.passcode.ttl_minutes"),
		MaxAttempts:       cfg.GetInt("modules.passcode.max_attempts"),
		ThrottleRemaining: cfg.GetSecond("modules.passcode.throttle_remaining_seconds"),
		DeliveryMode:      entity.ParseDeliveryMode(cfg.GetString("modules.passcode.delivery_mode")),
	}.withDefaults()
}

func (s Settings) withDefaults() Settings {
	if s.TTL <= 0 {
		s.TTL = DefaultTTL
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = DefaultMaxAttempts
	}
	if s.ThrottleRemaining <= 0 {
		s.ThrottleRemaining = DefaultThrottleRemaining
	}
	if s.DeliveryMode == "" {
		s.DeliveryMode = entity.DeliveryModeSync
	}
	return s
}

// SettingsHolder shares one swappable Settings snapshot between the usecase
// and the notifiers that render the TTL.
type SettingsHolder struct {
	p *atomic.Pointer[Settings]
}

func NewSettingsHolder(set Settings) *SettingsHolder {
	set = set.withDefaults()
	return &SettingsHolder{p: atomic.NewPointer(&set)}
}

func (h *SettingsHolder) Load() Settings {
	return *h.p.Load()
}

// Store applies defaults, swaps the snapshot and returns what was stored.
func (h *SettingsHolder) Store(set Settings) Settings {
	set = set.withDefaults()
	h.p.Store(&set)
	return set
}

func (h *SettingsHolder) TTL() time.Duration {
	return h.p.Load().TTL
}
