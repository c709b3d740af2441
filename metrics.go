// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fishbowl

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "fishbowl"

const (
	frameDirectionIn  = "in"
	frameDirectionOut = "out"
)

// Request results as recorded in the requests_total metric
const (
	ResultSuccess  = "success"
	ResultFailed   = "failed"
	ResultError    = "error"
	unknownRequest = "unknown"
)

type metrics struct {
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	frameBytes *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	requests, err := register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Requests sent to the Fishbowl server by request tag and result",
		},
		[]string{"request", "result"},
	))
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "request_duration_seconds",
			Help:      "Round trip time of requests to the Fishbowl server",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"request"},
	))
	if err != nil {
		return nil, err
	}
	frameBytes, err := register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frame_bytes_total",
			Help:      "Frame payload bytes exchanged with the Fishbowl server",
		},
		[]string{"direction"},
	))
	if err != nil {
		return nil, err
	}
	return &metrics{
		requests:   requests,
		duration:   duration,
		frameBytes: frameBytes,
	}, nil
}

// register registers the collector, returning the existing one if an identical
// collector was registered before
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return c, nil
}

func requestLabel(tag string) string {
	if tag == "" {
		return unknownRequest
	}
	return tag
}

func (m *metrics) observeRoundTrip(tag string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(requestLabel(tag)).Observe(elapsed.Seconds())
}

func (m *metrics) observeResult(tag string, result string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(requestLabel(tag), result).Inc()
}

func (m *metrics) observeFrame(direction string, size int) {
	if m == nil {
		return
	}
	m.frameBytes.WithLabelValues(direction).Add(float64(size))
}
