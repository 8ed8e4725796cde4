// Package metrics defines and registers all custom Prometheus metrics for the
// authentication service. It is the single source of truth for metric names,
// labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "authsvc"

// LoginsTotal counts primary authentication attempts.
// Label:
//   - outcome: "success", "unknown_principal", "not_enabled", "bad_credentials", "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, labelled by outcome.",
	},
	[]string{"outcome"},
)

// OtpValidationsTotal counts OTP step-up validation attempts.
// Label:
//   - result: "confirmed" or "rejected"
var OtpValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "otp_validations_total",
		Help:      "Total number of OTP validation attempts, labelled by result.",
	},
	[]string{"result"},
)

// MailDispatchTotal counts asynchronous mail dispatch outcomes.
// Labels:
//   - kind: "otp" or "verification"
//   - result: "sent" or "failed"
var MailDispatchTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_dispatch_total",
		Help:      "Total number of dispatched emails, labelled by kind and result.",
	},
	[]string{"kind", "result"},
)

// MailQueueDepth tracks the number of jobs waiting in each dispatcher worker
// channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var MailQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mail_queue_depth",
		Help:      "Current number of jobs pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// GateRejectionsTotal counts requests rejected by the request gate.
// Label:
//   - reason: the machine-readable rejection reason (e.g. "ExpiredTokenError",
//     "otp_required")
var GateRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gate_rejections_total",
		Help:      "Total number of requests rejected by the auth gate, labelled by reason.",
	},
	[]string{"reason"},
)
