// Copyright (C) 2025 chainofproduct
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CryptoOperations tracks AEAD/signing/KDF primitive invocations.
	CryptoOperations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crypto",
			Name:      "operations_total",
			Help:      "Total number of cryptographic primitive operations",
		},
		[]string{"operation", "algorithm"}, // sign/verify/seal/open/derive, ed25519/x25519/aes-gcm/hkdf-sha256
	)

	// CryptoErrors tracks crypto primitive failures.
	CryptoErrors = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crypto",
			Name:      "errors_total",
			Help:      "Total number of cryptographic primitive errors",
		},
		[]string{"operation"},
	)

	// CryptoOperationDuration tracks crypto primitive durations.
	CryptoOperationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "crypto",
			Name:      "operation_duration_seconds",
			Help:      "Cryptographic primitive operation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 15), // 10µs to 163ms
		},
		[]string{"operation", "algorithm"},
	)

	// PipelineOperations tracks protect/check/unprotect/buyer-sign/share calls.
	PipelineOperations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "operations_total",
			Help:      "Total number of pipeline operations",
		},
		[]string{"operation", "outcome"}, // protect/check/unprotect/buyer_sign/share/audit, ok/error
	)

	// PipelineOperationDuration tracks pipeline operation durations.
	PipelineOperationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "operation_duration_seconds",
			Help:      "Pipeline operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)
