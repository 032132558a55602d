package ipc

// ProtocolVersion is the current wire protocol major version (spec
// §4.7: "Server refuses mismatched majors").
const ProtocolVersion = 1

// RequestVariant tags which field of Request is populated.
type RequestVariant string

const (
	VariantHello      RequestVariant = "hello"
	VariantSearch     RequestVariant = "search"
	VariantStatus     RequestVariant = "status"
	VariantConfigGet  RequestVariant = "config_get"
	VariantConfigSet  RequestVariant = "config_set"
)

// Request is the tagged-variant envelope for every client-initiated
// message (spec §4.7/§6): `Hello { protocol_version }`, `Search { id,
// query, limit, offset, mode, deadline_ms }`, `Status`, `ConfigGet`,
// `ConfigSet { key, value }`.
type Request struct {
	Variant RequestVariant `json:"variant"`
	ID      string         `json:"id,omitempty"`

	// Hello
	ProtocolVersion int `json:"protocol_version,omitempty"`

	// Search
	Query      string `json:"query,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
	Mode       string `json:"mode,omitempty"`
	DeadlineMs int    `json:"deadline_ms,omitempty"`

	// ConfigSet
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
}

// SearchHit is one row of a Search response (spec §4.8 result shape).
type SearchHit struct {
	DocKey   uint64  `json:"doc_key"`
	Score    float64 `json:"score"`
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Size     int64   `json:"size"`
	Modified int64   `json:"modified"`
	Ext      string  `json:"ext"`
	Snippet  string  `json:"snippet,omitempty"`
}

// VolumeHealth reports one watched volume's tailer health (spec §6.1
// supplement): healthy, degraded (recoverable errors observed),
// rebuilding (replaying a full rescan after a journal gap/wrap), or
// unhealthy (the tailer has stopped).
type VolumeHealth struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	LastError string `json:"last_error,omitempty"`
}

// QuarantineEntry names one batch quarantined after exhausting retries
// (spec §6.1 supplement), identified by its representative file path and
// the reason recorded at quarantine time.
type QuarantineEntry struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// StatusInfo reports service health (spec §6.1 supplemented fields).
type StatusInfo struct {
	Version           string            `json:"version"`
	UptimeSeconds     int64             `json:"uptime_seconds"`
	Volumes           []VolumeHealth    `json:"volumes"`
	MetadataDocsTotal int64             `json:"metadata_docs_total"`
	ContentDocsTotal  int64             `json:"content_docs_total"`
	SchedulerIdle     string            `json:"scheduler_idle_state"`
	QueueDepth        int               `json:"content_queue_depth"`
	Quarantined       []QuarantineEntry `json:"quarantined,omitempty"`
}

// Response mirrors a Request by ID with either a result or an error
// (spec §6).
type Response struct {
	ID      string `json:"id,omitempty"`
	ErrKind string `json:"err_kind,omitempty"`
	ErrMsg  string `json:"err_msg,omitempty"`

	// Hello
	ProtocolVersion int `json:"protocol_version,omitempty"`

	// Search
	Hits     []SearchHit `json:"hits,omitempty"`
	Total    int64       `json:"total"`
	TimedOut bool        `json:"timed_out,omitempty"`

	// Status
	Status *StatusInfo `json:"status,omitempty"`

	// ConfigGet/ConfigSet
	ConfigValue string `json:"config_value,omitempty"`
}

// IsError reports whether the response carries an error.
func (r *Response) IsError() bool { return r.ErrKind != "" }
