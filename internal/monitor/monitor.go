/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package monitor exposes a Prometheus metrics surface on a separate,
// optional diagnostics port. It never shares a socket with the origin
// server's own raw reactor-driven listeners.
package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor holds the gauges/counters populated from the event-loop
// goroutine; no extra synchronization is needed since Prometheus client
// metrics are already safe for concurrent Set/Inc from one writer plus
// concurrent scrape reads.
type Monitor struct {
	ActiveConnections prometheus.Gauge
	ListenerCount     prometheus.Gauge
	RequestsByClass   *prometheus.CounterVec

	mux *http.ServeMux
}

// New registers the metric set against a fresh registry.
func New() *Monitor {
	reg := prometheus.NewRegistry()

	m := &Monitor{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "webserv_active_connections",
			Help: "Number of currently open client connections.",
		}),
		ListenerCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "webserv_listener_count",
			Help: "Number of bound listening sockets.",
		}),
		RequestsByClass: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webserv_requests_total",
			Help: "Requests dispatched, partitioned by response status class.",
		}, []string{"class"}),
	}

	reg.MustRegister(m.ActiveConnections, m.ListenerCount, m.RequestsByClass)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	m.mux = mux

	return m
}

// ObserveStatus increments the counter for the status code's class
// (2xx/3xx/4xx/5xx).
func (m *Monitor) ObserveStatus(code int) {
	class := "other"
	switch {
	case code >= 200 && code < 300:
		class = "2xx"
	case code >= 300 && code < 400:
		class = "3xx"
	case code >= 400 && code < 500:
		class = "4xx"
	case code >= 500:
		class = "5xx"
	}
	m.RequestsByClass.WithLabelValues(class).Inc()
}

// ListenAndServe blocks serving the /metrics endpoint on addr.
func (m *Monitor) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, m.mux)
}
