// Package metrics provides a Prometheus observer for cinject containers.
//
// Example usage:
//
//	reg := prometheus.NewRegistry()
//	obs, err := metrics.NewObserver(reg)
//	if err != nil {
//	    return err
//	}
//
//	c := cinject.New(cinject.WithObserver(obs))
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/junioryono/cinject"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cinject"

// Observer records container resolutions as Prometheus metrics, labelled by
// key kind.
type Observer struct {
	resolutions   *prometheus.CounterVec
	errors        *prometheus.CounterVec
	constructions *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

var _ cinject.Observer = (*Observer)(nil)

// NewObserver creates an Observer and registers its collectors on reg.
// Collectors that are already registered are reused, so several container
// trees may share one registry.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &Observer{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Successful top-level resolutions.",
		}, []string{"kind"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolution_errors_total",
			Help:      "Failed top-level resolutions.",
		}, []string{"kind"}),
		constructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "constructions_total",
			Help:      "Types built on the fly and cached on a root container.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_duration_seconds",
			Help:      "Duration of successful top-level resolutions.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
		}, []string{"kind"}),
	}

	var err error
	if o.resolutions, err = register(reg, o.resolutions); err != nil {
		return nil, err
	}
	if o.errors, err = register(reg, o.errors); err != nil {
		return nil, err
	}
	if o.constructions, err = register(reg, o.constructions); err != nil {
		return nil, err
	}
	if o.duration, err = register(reg, o.duration); err != nil {
		return nil, err
	}

	return o, nil
}

// register registers c on reg, returning the existing collector when an
// identical one is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("failed to register metric: %w", err)
	}

	return c, nil
}

// OnResolved implements cinject.Observer.
func (o *Observer) OnResolved(key cinject.Key, d time.Duration) {
	kind := key.Kind().String()
	o.resolutions.WithLabelValues(kind).Inc()
	o.duration.WithLabelValues(kind).Observe(d.Seconds())
}

// OnError implements cinject.Observer.
func (o *Observer) OnError(key cinject.Key, _ error) {
	o.errors.WithLabelValues(key.Kind().String()).Inc()
}

// OnConstructed implements cinject.Observer.
func (o *Observer) OnConstructed(key cinject.Key) {
	o.constructions.WithLabelValues(key.Kind().String()).Inc()
}
