package persist

import (
	"bytes"
	"fmt"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/obsidianstack/usagestats/pkg/types"
)

const (
	metricReportsTotal = "usage_stats_reports_total"
	metricSequence     = "usage_stats_sequence_number"
	metricLastSuccess  = "usage_stats_last_report_success"
)

// metricFamilies renders the counters carried by rec. Totals include the
// outcome of rec's own cycle, so they match what the next report will carry.
func metricFamilies(rec types.WriteRecord) []*dto.MetricFamily {
	r := rec.UsageStats
	success, failed := float64(r.TotalSuccess), float64(r.TotalFailed)
	var last float64
	if rec.Success {
		success++
		last = 1
	} else {
		failed++
	}

	return []*dto.MetricFamily{
		{
			Name: proto.String(metricReportsTotal),
			Help: proto.String("Usage reports attempted, by delivery result."),
			Type: dto.MetricType_COUNTER.Enum(),
			Metric: []*dto.Metric{
				counter(success, "result", "success"),
				counter(failed, "result", "failure"),
			},
		},
		{
			Name:   proto.String(metricSequence),
			Help:   proto.String("Number of report cycles completed in this session."),
			Type:   dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{gauge(float64(r.SeqNumber + 1))},
		},
		{
			Name:   proto.String(metricLastSuccess),
			Help:   proto.String("1 if the most recent report was delivered, else 0."),
			Type:   dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{gauge(last)},
		},
	}
}

func counter(v float64, labelName, labelValue string) *dto.Metric {
	return &dto.Metric{
		Label:   []*dto.LabelPair{{Name: proto.String(labelName), Value: proto.String(labelValue)}},
		Counter: &dto.Counter{Value: proto.Float64(v)},
	}
}

func gauge(v float64) *dto.Metric {
	return &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(v)}}
}

func writeTextfile(path string, rec types.WriteRecord) error {
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range metricFamilies(rec) {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return atomicWriteFile(path, buf.Bytes(), filePerm)
}
