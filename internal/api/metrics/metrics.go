// Package metrics defines and registers all custom Prometheus metrics
// for the auth service. It is the single source of truth for metric
// names, labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "auth"

// LoginsTotal counts password login attempts.
// Label:
//   - result: "success", "invalid_credentials", or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of password login attempts, by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts account registrations.
// Label:
//   - result: "success", "conflict", or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// TokensIssuedTotal counts signed tokens handed to clients.
// Label:
//   - kind: "access" or "refresh"
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of tokens issued, by kind.",
	},
	[]string{"kind"},
)

// RevocationsTotal counts revocation decisions at logout and rotation.
// Label:
//   - result: "revoked" or "write_failed"
var RevocationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "revocations_total",
		Help:      "Total number of token revocations, by result.",
	},
	[]string{"result"},
)

// FederatedLoginsTotal counts Google logins by submitted credential kind.
// Label:
//   - kind: "profile", "access_token", "id_token", or "callback"
var FederatedLoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "federated_logins_total",
		Help:      "Total number of federated login attempts, by credential kind.",
	},
	[]string{"kind"},
)

// EmailsEnqueuedTotal counts emails handed to the background dispatcher.
// Labels:
//   - template: "password_reset" or "verify_email"
//   - result: "enqueued" or "dropped"
var EmailsEnqueuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "emails_enqueued_total",
		Help:      "Total number of emails enqueued for delivery, by template and result.",
	},
	[]string{"template", "result"},
)

// EmailQueueDepth tracks the number of emails waiting in each dispatcher
// worker channel.
// Label:
//   - worker_id: numeric worker index
var EmailQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "email_queue_depth",
		Help:      "Current number of emails pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
