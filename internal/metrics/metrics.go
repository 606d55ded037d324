// Package metrics groups the Prometheus instruments used by the bot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every counter the bot records. A nil *Metrics is valid and
// records nothing, so components can treat instrumentation as optional.
type Metrics struct {
	Commands      *prometheus.CounterVec
	AccessDenied  *prometheus.CounterVec
	UnknownRoles  prometheus.Counter
	PromptRetries prometheus.Counter
	PromptCancels prometheus.Counter
	FetchFailures *prometheus.CounterVec
}

// New registers the bot's instruments with the given registerer.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Dispatched commands by name.",
		}, []string{"command"}),
		AccessDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_denied_total",
			Help:      "Silently denied invocations by required tier.",
		}, []string{"required"}),
		UnknownRoles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_roles_total",
			Help:      "Access checks that hit a role tag outside the hierarchy.",
		}),
		PromptRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prompt_retries_total",
			Help:      "Prompt-flow inputs that failed validation and re-prompted.",
		}),
		PromptCancels: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prompt_cancels_total",
			Help:      "Prompt flows ended by the cancellation keyword.",
		}),
		FetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Media fetch failures by reason.",
		}, []string{"reason"}),
	}
}

// IncCommand counts a dispatched command.
func (m *Metrics) IncCommand(command string) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(command).Inc()
}

// IncAccessDenied counts a silent denial against the required tier.
func (m *Metrics) IncAccessDenied(required string) {
	if m == nil {
		return
	}
	m.AccessDenied.WithLabelValues(required).Inc()
}

// IncUnknownRole counts an access check aborted by an unknown role tag.
func (m *Metrics) IncUnknownRole() {
	if m == nil {
		return
	}
	m.UnknownRoles.Inc()
}

// IncPromptRetry counts a validation failure that re-registered its step.
func (m *Metrics) IncPromptRetry() {
	if m == nil {
		return
	}
	m.PromptRetries.Inc()
}

// IncPromptCancel counts a flow ended by the cancellation keyword.
func (m *Metrics) IncPromptCancel() {
	if m == nil {
		return
	}
	m.PromptCancels.Inc()
}

// IncFetchFailure counts a media fetch failure by reason.
func (m *Metrics) IncFetchFailure(reason string) {
	if m == nil {
		return
	}
	m.FetchFailures.WithLabelValues(reason).Inc()
}

// Handler exposes the default registry for the diagnostics server.
func Handler() http.Handler {
	return promhttp.Handler()
}
