// Package metrics exposes a small set of Prometheus collectors for a
// p9l.Client: requests sent, bytes moved, server errors, and
// round-trip latency. A nil *Set is valid and every method on it is a
// no-op, so instrumentation is opt-in.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// A Set is a registered group of collectors for one Client. The zero
// value is not usable; construct one with NewSet.
type Set struct {
	requestsTotal *prometheus.CounterVec
	bytesRead     prometheus.Counter
	bytesWritten  prometheus.Counter
	serverErrors  *prometheus.CounterVec
	roundTripSecs *prometheus.HistogramVec
}

// NewSet creates a Set and registers its collectors with reg. Passing
// a *prometheus.Registry dedicated to this client (rather than the
// default global registry) is recommended when multiple Clients run
// in one process.
func NewSet(reg prometheus.Registerer, namespace string) *Set {
	s := &Set{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "9P requests sent, by message type.",
		}, []string{"op"}),
		bytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_read_total",
			Help:      "Bytes received from the server across all replies.",
		}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Bytes sent to the server across all requests.",
		}),
		serverErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "server_errors_total",
			Help:      "Rlerror replies received, by errno.",
		}, []string{"ecode"}),
		roundTripSecs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_trip_seconds",
			Help:      "Time from WriteAll to a decoded reply, by message type.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(s.requestsTotal, s.bytesRead, s.bytesWritten, s.serverErrors, s.roundTripSecs)
	return s
}

func (s *Set) ObserveRequest(op string, reqBytes int) {
	if s == nil {
		return
	}
	s.requestsTotal.WithLabelValues(op).Inc()
	s.bytesWritten.Add(float64(reqBytes))
}

func (s *Set) ObserveReply(op string, replyBytes int, d time.Duration) {
	if s == nil {
		return
	}
	s.bytesRead.Add(float64(replyBytes))
	s.roundTripSecs.WithLabelValues(op).Observe(d.Seconds())
}

func (s *Set) ObserveServerError(ecode uint32) {
	if s == nil {
		return
	}
	s.serverErrors.WithLabelValues(strconv.FormatUint(uint64(ecode), 10)).Inc()
}
