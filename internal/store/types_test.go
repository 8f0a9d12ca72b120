package store

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestRunRecord_JSONFieldNames(t *testing.T) {
	record := createTestRecord("run-json")
	record.Timestamp = time.Date(2025, 10, 23, 10, 30, 0, 0, time.UTC)

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("Failed to marshal record: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Failed to unmarshal record: %v", err)
	}
	for _, key := range []string{"id", "bestPoint", "bestValue", "evaluations", "iterations", "converged", "stopReason", "timestamp", "config"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("Missing JSON field %q", key)
		}
	}

	config, ok := raw["config"].(map[string]any)
	if !ok {
		t.Fatalf("config is not an object: %T", raw["config"])
	}
	if config["algorithm"] != "crs" || config["function"] != "sphere" {
		t.Errorf("Unexpected config payload: %v", config)
	}
	if _, ok := config["lower"]; ok {
		t.Error("Empty bounds should be omitted")
	}
}

func TestRunRecord_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *RunRecord)
		field  string
	}{
		{name: "valid", mutate: func(r *RunRecord) {}},
		{name: "empty id", mutate: func(r *RunRecord) { r.ID = "" }, field: "ID"},
		{name: "no point", mutate: func(r *RunRecord) { r.BestPoint = nil }, field: "BestPoint"},
		{name: "negative evaluations", mutate: func(r *RunRecord) { r.Evaluations = -1 }, field: "Evaluations"},
		{name: "negative iterations", mutate: func(r *RunRecord) { r.Iterations = -3 }, field: "Iterations"},
		{name: "zero timestamp", mutate: func(r *RunRecord) { r.Timestamp = time.Time{} }, field: "Timestamp"},
		{name: "no algorithm", mutate: func(r *RunRecord) { r.Config.Algorithm = "" }, field: "Config.Algorithm"},
		{name: "zero dimension", mutate: func(r *RunRecord) { r.Config.Dimension = 0 }, field: "Config.Dimension"},
		{name: "dimension mismatch", mutate: func(r *RunRecord) { r.Config.Dimension = 5 }, field: "BestPoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := createTestRecord("run-validate")
			tt.mutate(record)

			err := record.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Expected valid record, got %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %s, want %s", verr.Field, tt.field)
			}
		})
	}
}

func TestRunRecord_ToInfo(t *testing.T) {
	record := createTestRecord("run-info")
	info := record.ToInfo()

	if info.ID != record.ID || info.BestValue != record.BestValue || info.Evaluations != record.Evaluations {
		t.Errorf("Core fields not copied: %+v", info)
	}
	if info.Algorithm != "crs" || info.Function != "sphere" || info.Dimension != 3 {
		t.Errorf("Config fields not copied: %+v", info)
	}
	if info.StopReason != "converged" || !info.Timestamp.Equal(record.Timestamp) {
		t.Errorf("Termination fields not copied: %+v", info)
	}
}

func TestNewRunRecord(t *testing.T) {
	before := time.Now()
	record := createTestRecord("run-new")
	after := time.Now()

	if record.Timestamp.Before(before) || record.Timestamp.After(after) {
		t.Errorf("Timestamp %v not within [%v, %v]", record.Timestamp, before, after)
	}
	if err := record.Validate(); err != nil {
		t.Errorf("Fresh record should validate: %v", err)
	}
}

func TestSortNewestFirst_TiesByID(t *testing.T) {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	infos := []RunInfo{
		{ID: "b", Timestamp: ts},
		{ID: "old", Timestamp: ts.Add(-time.Hour)},
		{ID: "a", Timestamp: ts},
	}
	SortNewestFirst(infos)

	want := []string{"a", "b", "old"}
	for i := range want {
		if infos[i].ID != want[i] {
			t.Errorf("infos[%d] = %s, want %s", i, infos[i].ID, want[i])
		}
	}
}
