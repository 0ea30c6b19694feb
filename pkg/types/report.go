package types

// SchemaVersion is stamped on every report.
const SchemaVersion = "0.1"

// Metadata is static identifying information about the host process.
// It is collected once at startup and never changes afterwards.
type Metadata struct {
	SchemaVersion           string            `json:"schema_version"`
	Source                  string            `json:"source"`
	SessionID               string            `json:"session_id"`
	ClusterName             string            `json:"cluster_name,omitempty"`
	Version                 string            `json:"version"`
	GoVersion               string            `json:"go_version"`
	OS                      string            `json:"os"`
	Arch                    string            `json:"arch"`
	SessionStartTimestampMs int64             `json:"session_start_timestamp_ms"`
	ExtraUsageTags          map[string]string `json:"extra_usage_tags,omitempty"`
}

// Counters are the running report totals. After N completed cycles
// Success+Failure == Seq == N.
type Counters struct {
	Success int64
	Failure int64
	Seq     int64
}

// Report is one point-in-time usage report. It is built fresh each cycle
// and must not be modified after construction.
type Report struct {
	Metadata
	CollectTimestampMs int64 `json:"collect_timestamp_ms"`
	TotalSuccess       int64 `json:"total_success"`
	TotalFailed        int64 `json:"total_failed"`
	SeqNumber          int64 `json:"seq_number"`
}

// WriteRecord is the content of the local usage artifact: the report plus
// the outcome of the attempt to deliver it.
type WriteRecord struct {
	UsageStats Report `json:"usage_stats"`
	Success    bool   `json:"success"`
	// Error is set iff transmission failed.
	Error string `json:"error,omitempty"`
}
