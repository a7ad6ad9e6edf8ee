// Copyright 2024 Google LLC
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

package common

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// The default time buckets for latency metrics, in microseconds.
var defaultLatencyDistribution = metric.WithExplicitBucketBoundaries(
	1, 2, 3, 4, 5, 6, 8, 10, 13, 16, 20, 25, 30, 40, 50, 65, 80, 100, 130, 160,
	200, 250, 300, 400, 500, 650, 800, 1000, 2000, 5000, 10000, 20000, 50000, 100000)

var fsOpsMeter = otel.Meter("fs_op")

// attributeSets caches the attribute.Set built from a given []MetricAttr,
// keyed by its canonical string form, so repeated calls for the same
// operation don't reallocate on every op.
var attributeSets sync.Map

func measurementOption(attrs []MetricAttr) metric.MeasurementOption {
	var key strings.Builder
	kv := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		key.WriteString(a.Key)
		key.WriteByte('=')
		key.WriteString(a.Value)
		key.WriteByte(';')
		kv = append(kv, attribute.String(a.Key, a.Value))
	}

	if v, ok := attributeSets.Load(key.String()); ok {
		return v.(metric.MeasurementOption)
	}
	opt := metric.WithAttributeSet(attribute.NewSet(kv...))
	v, _ := attributeSets.LoadOrStore(key.String(), opt)
	return v.(metric.MeasurementOption)
}

// otelMetrics is the filesystem operation metrics, recorded against the
// package-level fsOpsMeter. No SDK MeterProvider or exporter is registered
// here, so absent an embedder wiring one up, these instruments bind to
// OTel's default no-op provider and the recordings are discarded.
type otelMetrics struct {
	fsOpsCount      metric.Int64Counter
	fsOpsErrorCount metric.Int64Counter
	fsOpsLatency    metric.Float64Histogram
}

func (o *otelMetrics) OpsCount(ctx context.Context, inc int64, attrs []MetricAttr) {
	o.fsOpsCount.Add(ctx, inc, measurementOption(attrs))
}

func (o *otelMetrics) OpsLatency(ctx context.Context, latency time.Duration, attrs []MetricAttr) {
	o.fsOpsLatency.Record(ctx, float64(latency.Microseconds()), measurementOption(attrs))
}

func (o *otelMetrics) OpsErrorCount(ctx context.Context, inc int64, attrs []MetricAttr) {
	o.fsOpsErrorCount.Add(ctx, inc, measurementOption(attrs))
}

// NewOTelMetrics builds the process-wide ops metric instruments.
func NewOTelMetrics() (MetricHandle, error) {
	fsOpsCount, err1 := fsOpsMeter.Int64Counter(
		"fs/ops_count",
		metric.WithDescription("The cumulative number of ops processed by the file system."))
	fsOpsLatency, err2 := fsOpsMeter.Float64Histogram(
		"fs/ops_latency",
		metric.WithDescription("The cumulative distribution of file system operation latencies"),
		metric.WithUnit("us"),
		defaultLatencyDistribution)
	fsOpsErrorCount, err3 := fsOpsMeter.Int64Counter(
		"fs/ops_error_count",
		metric.WithDescription("The cumulative number of errors generated by file system operations"))

	if err := errors.Join(err1, err2, err3); err != nil {
		return nil, err
	}

	return &otelMetrics{
		fsOpsCount:      fsOpsCount,
		fsOpsErrorCount: fsOpsErrorCount,
		fsOpsLatency:    fsOpsLatency,
	}, nil
}
