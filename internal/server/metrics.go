package server

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the funnel's Prometheus collectors. Each server owns
// its own registry so multiple instances never fight over registration.
type Metrics struct {
	registry *prometheus.Registry

	LeadsAccepted      *prometheus.CounterVec
	ExpressLeads       prometheus.Counter
	VariantViews       *prometheus.CounterVec
	VariantConversions *prometheus.CounterVec
	FormSteps          *prometheus.CounterVec
	FormAbandoned      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		LeadsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quotefunnel_leads_accepted_total",
			Help: "Accepted lead submissions by outcome.",
		}, []string{"outcome"}),
		ExpressLeads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quotefunnel_express_leads_total",
			Help: "Accepted express lead submissions.",
		}),
		VariantViews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quotefunnel_variant_views_total",
			Help: "Variant view events by variant id.",
		}, []string{"variant"}),
		VariantConversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quotefunnel_variant_conversions_total",
			Help: "Variant conversion events by variant id.",
		}, []string{"variant"}),
		FormSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quotefunnel_form_steps_total",
			Help: "Completed form steps by step index.",
		}, []string{"step"}),
		FormAbandoned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quotefunnel_form_abandoned_total",
			Help: "Form abandonments by step index.",
		}, []string{"step"}),
	}

	reg.MustRegister(m.LeadsAccepted, m.ExpressLeads, m.VariantViews,
		m.VariantConversions, m.FormSteps, m.FormAbandoned)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func stepLabel(step int) string {
	return strconv.Itoa(step)
}

func variantLabel(id int64) string {
	return strconv.FormatInt(id, 10)
}
