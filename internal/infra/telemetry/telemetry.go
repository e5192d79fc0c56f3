package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/opscore/entitlement-service/internal/infra/config"
)

// Provider represents a telemetry provider handle. Request-level metrics are
// owned by the HTTP middleware; this provider carries the domain counters.
type Provider struct {
	grantCounter  prometheus.Counter
	toggleCounter prometheus.Counter
}

// Attach registers the domain collectors and returns a provider handle.
func Attach(_ context.Context, cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}

	buildInfo := promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "entitlements",
		Name:      "service_info",
		Help:      "Static service identity labels.",
	}, []string{"service", "env"})
	buildInfo.WithLabelValues(serviceName, cfg.App.Env).Set(1)

	grantCounter := promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "entitlements",
		Name:      "grant_updates_total",
		Help:      "Total number of module grant list replacements.",
	})

	toggleCounter := promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "entitlements",
		Name:      "grant_toggles_total",
		Help:      "Total number of single identifier toggles applied.",
	})

	return &Provider{
		grantCounter:  grantCounter,
		toggleCounter: toggleCounter,
	}, nil
}

// GrantCounter exposes the grant replacement metric.
func (p *Provider) GrantCounter() prometheus.Counter {
	if p == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{})
	}
	return p.grantCounter
}

// ToggleCounter exposes the toggle metric.
func (p *Provider) ToggleCounter() prometheus.Counter {
	if p == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{})
	}
	return p.toggleCounter
}
