package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mchalloran/backend-pos/internal/obs"
)

// Exporter pushes finished day reports to an external sink (accounting
// system, back office) over HTTP.
type Exporter struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

// NewExporter builds an Exporter with an instrumented HTTP client. An empty
// URL disables export.
func NewExporter(url string, timeout time.Duration) *Exporter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Exporter{
		URL: url,
		Client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		Timeout: timeout,
	}
}

// Deliver posts the report as JSON and treats any non-2xx reply as failure.
func (e *Exporter) Deliver(ctx context.Context, r DayReport) error {
	if e == nil || e.URL == "" {
		return nil
	}
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.Client.Do(req)
	if err != nil {
		e.countDelivery("error")
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e.countDelivery("rejected")
		return fmt.Errorf("export endpoint returned %d", resp.StatusCode)
	}
	e.countDelivery("ok")
	return nil
}

func (e *Exporter) countDelivery(result string) {
	if obs.ExportDeliveriesTotal != nil {
		obs.ExportDeliveriesTotal.WithLabelValues(result).Inc()
	}
}
