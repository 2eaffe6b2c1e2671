package telemetry

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/VeduStorm/NovaCore/nova/check"
	"github.com/VeduStorm/NovaCore/nova/common/config"
	"github.com/VeduStorm/NovaCore/nova/common/logx"
)

const Measurement = "license_check"

var log = logx.New(logx.WithPrefix("telemetry"))

// Influx writes one point per check outcome.
type Influx struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
	now    func() time.Time
}

func NewInflux(cfg config.TelemetryCfg) (*Influx, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, errors.New("telemetry: base_url, org and bucket are required")
	}
	opts := influxdb2.DefaultOptions().SetHTTPRequestTimeout(5)
	if cfg.InsecureSkipVerify {
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec // opt-in via config
	}
	client := influxdb2.NewClientWithOptions(cfg.BaseURL, cfg.Token, opts)
	log.Debugf("influx telemetry -> %s org=%s bucket=%s", cfg.BaseURL, cfg.Org, cfg.Bucket)
	return &Influx{
		client: client,
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		now:    time.Now,
	}, nil
}

// Point maps a result onto the license_check measurement.
func Point(r *check.Result, now time.Time) *write.Point {
	tags := map[string]string{
		"mode": r.Mode.String(),
		"ok":   boolTag(r.OK()),
	}
	fields := map[string]any{
		"mismatches": int64(len(r.Mismatches)),
		"failed":     r.Error != "",
	}
	if r.License != nil {
		tags["product"] = r.License.Product
		if !r.License.ExpiresAt.IsZero() {
			fields["expires_in_sec"] = int64(r.License.ExpiresAt.Sub(now).Seconds())
		}
	}
	ts := r.CheckedAt
	if ts.IsZero() {
		ts = now
	}
	return influxdb2.NewPoint(Measurement, tags, fields, ts)
}

func (i *Influx) Record(ctx context.Context, r *check.Result) error {
	return i.writer.WritePoint(ctx, Point(r, i.now()))
}

func (i *Influx) Close() {
	if i != nil && i.client != nil {
		i.client.Close()
	}
}

func boolTag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
