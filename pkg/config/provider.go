package config

import (
	"context"
	"strconv"
	"time"

	"fmsgo/pkg/store"
)

// Provider gives access to settings that can be changed at runtime. Values persisted in the
// state store win over the static configuration.
type Provider interface {
	TargetAltitude(ctx context.Context) float64
	TargetSpeed(ctx context.Context) float64
	StepInterval(ctx context.Context) time.Duration

	SetTargetAltitude(ctx context.Context, ft float64) error
	SetTargetSpeed(ctx context.Context, kt float64) error

	// Raw access (for components that need deep access)
	AppConfig() *Config
}

// UnifiedProvider implements Provider by bridging static Config and persistent Store.
type UnifiedProvider struct {
	base  *Config
	store store.StateStore
}

// NewProvider creates a new UnifiedProvider. st may be nil.
func NewProvider(base *Config, st store.StateStore) *UnifiedProvider {
	return &UnifiedProvider{
		base:  base,
		store: st,
	}
}

func (p *UnifiedProvider) AppConfig() *Config { return p.base }

func (p *UnifiedProvider) TargetAltitude(ctx context.Context) float64 {
	return p.getFloat64(ctx, KeyTargetAltitude, p.base.Autopilot.TargetAltitude)
}

func (p *UnifiedProvider) TargetSpeed(ctx context.Context) float64 {
	return p.getFloat64(ctx, KeyTargetSpeed, p.base.Autopilot.TargetSpeed)
}

func (p *UnifiedProvider) StepInterval(ctx context.Context) time.Duration {
	return p.getDuration(ctx, KeyStepInterval, time.Duration(p.base.Sim.StepInterval))
}

func (p *UnifiedProvider) SetTargetAltitude(ctx context.Context, ft float64) error {
	return p.setFloat64(ctx, KeyTargetAltitude, ft)
}

func (p *UnifiedProvider) SetTargetSpeed(ctx context.Context, kt float64) error {
	return p.setFloat64(ctx, KeyTargetSpeed, kt)
}

// --- Helpers ---

func (p *UnifiedProvider) getFloat64(ctx context.Context, key string, fallback float64) float64 {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				return f
			}
		}
	}
	return fallback
}

func (p *UnifiedProvider) setFloat64(ctx context.Context, key string, v float64) error {
	if p.store == nil {
		return nil
	}
	return p.store.SetState(ctx, key, strconv.FormatFloat(v, 'f', -1, 64))
}

func (p *UnifiedProvider) getDuration(ctx context.Context, key string, fallback time.Duration) time.Duration {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if dur, err := ParseDuration(val); err == nil {
				return dur
			}
		}
	}
	return fallback
}
