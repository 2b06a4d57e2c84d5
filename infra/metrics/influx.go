package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/kestrelhq/kestrel/core/logger"
	coremetrics "github.com/kestrelhq/kestrel/core/metrics"
)

// InfluxSink writes dispatch cycles to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string, log logger.Logger) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	if log == nil {
		log = logger.Nop{}
	}
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      log,
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns the nop
// sink if the health check fails, so a missing database never takes the
// assistant down.
func NewInfluxSinkWithFallback(url, token, org, bucket string, log logger.Logger) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket, log)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordCycle writes one point per dispatch cycle.
func (s *InfluxSink) RecordCycle(ev coremetrics.CycleEvent) error {
	p := influxdb2.NewPoint("dispatch_cycle",
		map[string]string{
			"input":   ev.Input,
			"outcome": string(ev.Outcome),
		},
		map[string]any{
			"handlers":       ev.Handlers,
			"handler_errors": ev.HandlerErrors,
			"duration_ms":    float64(ev.Duration) / float64(time.Millisecond),
		},
		ev.Time)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// Close shuts down the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
