// Package export adapts the teacher's lode-backed ingestion sink into
// an optional, config-gated persistence layer for this runtime's own
// domain rows: one record per handler invocation and one per distinct
// compiled fingerprint, instead of the teacher's EventRecord/
// ArtifactCommitRecord/ArtifactChunkRecord ingestion rows.
//
// Grounded on lode/records.go (the record-shape-as-map convention) and
// lode/client.go / lode/dataset.go (dataset construction, Hive layout,
// JSONL codec, FS-vs-S3 store factory split).
package export

import "time"

// Record kind discriminators, mirroring lode/records.go's
// RecordKind* convention for this repo's own two record shapes.
const (
	RecordKindExecution = "execution"
	RecordKindArtifact  = "artifact"
)

// ExecutionRecord is one row per execute_handler/resume_handler call.
type ExecutionRecord struct {
	RecordKind    string  `json:"record_kind"`
	PanelID       string  `json:"panel_id"`
	HandlerName   string  `json:"handler_name"`
	Outcome       string  `json:"outcome"` // "success", "suspended", "error"
	ErrorCode     string  `json:"error_code,omitempty"`
	DurationUs    int64   `json:"duration_us"`
	CacheHit      bool    `json:"cache_hit"`
	HostCalls     int     `json:"host_calls"`
	MutationCount int     `json:"mutation_count"`
	EventCount    int     `json:"event_count"`
	Ts            string  `json:"ts"`

	// Partition keys (Hive layout: dataset/day/panel_id/record_kind).
	Day string `json:"day"`
}

// ArtifactRecord is one row per distinct compiled handler fingerprint.
type ArtifactRecord struct {
	RecordKind      string `json:"record_kind"`
	Fingerprint     string `json:"fingerprint"`
	SizeBytes       int    `json:"size_bytes"`
	HasSourceMap    bool   `json:"has_source_map"`
	CompilationCount int64  `json:"compilation_count"`
	Ts              string `json:"ts"`

	Day string `json:"day"`
}

// DeriveDay computes the partition day from t, mirroring
// lode.DeriveDay's YYYY-MM-DD UTC convention exactly.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func toExecutionRecordMap(r ExecutionRecord) map[string]any {
	m := map[string]any{
		"record_kind":    RecordKindExecution,
		"panel_id":       r.PanelID,
		"handler_name":   r.HandlerName,
		"outcome":        r.Outcome,
		"duration_us":    r.DurationUs,
		"cache_hit":      r.CacheHit,
		"host_calls":     r.HostCalls,
		"mutation_count": r.MutationCount,
		"event_count":    r.EventCount,
		"ts":             r.Ts,
		"day":            r.Day,
	}
	if r.ErrorCode != "" {
		m["error_code"] = r.ErrorCode
	}
	return m
}

func toArtifactRecordMap(r ArtifactRecord) map[string]any {
	return map[string]any{
		"record_kind":       RecordKindArtifact,
		"fingerprint":       r.Fingerprint,
		"size_bytes":        r.SizeBytes,
		"has_source_map":    r.HasSourceMap,
		"compilation_count": r.CompilationCount,
		"ts":                r.Ts,
		"day":               r.Day,
	}
}
