package metadata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/obsidianstack/usagestats/agent/internal/config"
	"github.com/obsidianstack/usagestats/pkg/types"
)

// ReportSource identifies this reporter implementation in the payload.
const ReportSource = "obsidianstack-agent"

const buildInfoSuffix = "_build_info"

// HostSource builds metadata from the agent config, the runtime and,
// optionally, the host's metrics endpoint.
type HostSource struct {
	cfg       config.AgentConfig
	version   string
	sessionID string
	start     time.Time
	client    *http.Client
}

// NewHostSource returns a HostSource for a session that started at start.
// The session id is fixed here so retried fetches agree on it.
func NewHostSource(cfg config.AgentConfig, version string, start time.Time) *HostSource {
	return &HostSource{
		cfg:       cfg,
		version:   version,
		sessionID: uuid.NewString(),
		start:     start,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Fetch implements Source.
func (h *HostSource) Fetch(ctx context.Context) (types.Metadata, error) {
	md := types.Metadata{
		SchemaVersion:           types.SchemaVersion,
		Source:                  ReportSource,
		SessionID:               h.sessionID,
		ClusterName:             h.cfg.ClusterName,
		Version:                 h.version,
		GoVersion:               runtime.Version(),
		OS:                      runtime.GOOS,
		Arch:                    runtime.GOARCH,
		SessionStartTimestampMs: h.start.UnixMilli(),
	}

	tags := make(map[string]string, len(h.cfg.ExtraTags))
	for k, v := range h.cfg.ExtraTags {
		tags[k] = v
	}

	if h.cfg.HostMetricsURL != "" {
		// Optional: a failed scrape leaves the build_* tags out.
		build, err := Scrape(ctx, h.client, h.cfg.HostMetricsURL)
		if err != nil {
			slog.Warn("metadata: build info unavailable, continuing without it",
				"url", h.cfg.HostMetricsURL, "err", err)
		}
		for k, v := range build {
			tags[k] = v
		}
	}

	if len(tags) > 0 {
		md.ExtraUsageTags = tags
	}
	return md, nil
}

// Scrape fetches a Prometheus text exposition from url and returns the labels
// of the first *_build_info family (by name) as "build_<label>" tags, plus
// "build_component" set to the family's prefix. A page without build info
// yields an empty map.
func Scrape(ctx context.Context, client *http.Client, url string) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("metadata: build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadata: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata: unexpected status %d", resp.StatusCode)
	}

	mfs, err := parseMetrics(resp.Body)
	if err != nil {
		return nil, err
	}
	return buildInfoTags(mfs), nil
}

// parseMetrics decodes a Prometheus text exposition from r into metric families.
// A partial result with a non-fatal parse warning is still returned successfully.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("metadata: parse prometheus text: %w", err)
	}
	return mfs, nil
}

func buildInfoTags(mfs map[string]*dto.MetricFamily) map[string]string {
	names := make([]string, 0, len(mfs))
	for name := range mfs {
		if strings.HasSuffix(name, buildInfoSuffix) {
			names = append(names, name)
		}
	}
	tags := make(map[string]string)
	if len(names) == 0 {
		return tags
	}
	sort.Strings(names)

	mf := mfs[names[0]]
	tags["build_component"] = strings.TrimSuffix(names[0], buildInfoSuffix)
	if len(mf.GetMetric()) == 0 {
		return tags
	}
	for _, lp := range mf.GetMetric()[0].GetLabel() {
		tags["build_"+lp.GetName()] = lp.GetValue()
	}
	return tags
}
