package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AngelCh415/fakestat/internal/preset"
	"github.com/AngelCh415/fakestat/internal/store"
)

// Collectors holds the service's Prometheus metrics on a private registry.
type Collectors struct {
	reg        *prometheus.Registry
	mutations  *prometheus.CounterVec
	records    prometheus.Gauge
	presetRuns *prometheus.CounterVec
}

func New() *Collectors {
	c := &Collectors{
		reg: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fakestat",
			Name:      "store_mutations_total",
			Help:      "Successful store mutations by operation.",
		}, []string{"op"}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fakestat",
			Name:      "store_records",
			Help:      "Records currently held in the store.",
		}),
		presetRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fakestat",
			Name:      "preset_runs_total",
			Help:      "Preset generator runs by outcome.",
		}, []string{"outcome"}),
	}
	c.reg.MustRegister(c.mutations, c.records, c.presetRuns)
	return c
}

// ObserveStore is a store subscriber.
func (c *Collectors) ObserveStore(e store.Event) {
	c.mutations.WithLabelValues(e.Op).Inc()
	c.records.Set(float64(len(e.Records)))
}

// ObservePreset is a generator run hook.
func (c *Collectors) ObservePreset(_ preset.Summary, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "invalid"
	}
	c.presetRuns.WithLabelValues(outcome).Inc()
}

// SetRecords seeds the gauge, e.g. after the sample data is loaded.
func (c *Collectors) SetRecords(n int) { c.records.Set(float64(n)) }

func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

func (c *Collectors) Registry() *prometheus.Registry { return c.reg }
