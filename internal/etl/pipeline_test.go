package etl

import (
	"testing"

	"go.uber.org/zap"
)

func newTestPipeline(config *Config) *Pipeline {
	p := NewPipeline(nil, nil, config, zap.NewNop())
	p.resetStats()
	return p
}

func TestDetectFileFormat(t *testing.T) {
	cases := []struct {
		filename string
		want     FileFormat
	}{
		{"names.csv", FormatCSV},
		{"names.CSV", FormatCSV},
		{"names.parquet", FormatParquet},
		{"names.json", FormatJSON},
		{"names.jsonl", FormatJSON},
		{"names.ndjson", FormatJSON},
		{"names.txt", FormatCSV},
		{"names", FormatCSV},
	}

	for _, tc := range cases {
		if got := DetectFileFormat(tc.filename); got != tc.want {
			t.Errorf("DetectFileFormat(%q) = %q, want %q", tc.filename, got, tc.want)
		}
	}
}

func TestValidateRecord(t *testing.T) {
	p := newTestPipeline(DefaultConfig())

	cases := []struct {
		name   string
		record NameRecord
		want   bool
	}{
		{"Valid", NameRecord{Name: "jens", MaleCount: 9000, FemaleCount: 2}, true},
		{"EmptyName", NameRecord{Name: "  ", MaleCount: 10}, false},
		{"NegativeCount", NameRecord{Name: "mette", MaleCount: -1, FemaleCount: 10}, false},
		{"NoObservations", NameRecord{Name: "mette"}, false},
		{"FemaleOnly", NameRecord{Name: "mette", FemaleCount: 8000}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.validateRecord(&tc.record); got != tc.want {
				t.Errorf("validateRecord = %v, want %v", got, tc.want)
			}
		})
	}

	t.Run("TooLongName", func(t *testing.T) {
		long := make([]byte, maxNameLength+1)
		for i := range long {
			long[i] = 'a'
		}
		if p.validateRecord(&NameRecord{Name: string(long), MaleCount: 1}) {
			t.Error("overlong name should be rejected")
		}
	})

	t.Run("ValidationDisabled", func(t *testing.T) {
		config := DefaultConfig()
		config.ValidateData = false
		p := newTestPipeline(config)
		if !p.validateRecord(&NameRecord{}) {
			t.Error("disabled validation should accept anything")
		}
	})
}

func TestAcceptRecordDeduplicates(t *testing.T) {
	p := newTestPipeline(DefaultConfig())
	result := &ProcessingResult{}

	first := &NameRecord{Name: "Jens", MaleCount: 100}
	if !p.acceptRecord(first, result) {
		t.Fatal("first occurrence should be accepted")
	}

	// Same name in a different case counts as a duplicate.
	second := &NameRecord{Name: "jens", MaleCount: 50}
	if p.acceptRecord(second, result) {
		t.Error("duplicate name should be rejected")
	}
	if result.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", result.Duplicates)
	}

	stats := p.GetStats()
	if stats.RecordsRead != 2 {
		t.Errorf("records read = %d, want 2", stats.RecordsRead)
	}
	if stats.RecordsValid != 1 {
		t.Errorf("records valid = %d, want 1", stats.RecordsValid)
	}
}

func TestAcceptRecordKeepsDuplicatesWhenDisabled(t *testing.T) {
	config := DefaultConfig()
	config.SkipDuplicates = false
	p := newTestPipeline(config)
	result := &ProcessingResult{}

	record := &NameRecord{Name: "jens", MaleCount: 100}
	if !p.acceptRecord(record, result) || !p.acceptRecord(record, result) {
		t.Error("both occurrences should be accepted with dedup disabled")
	}
	if result.Duplicates != 0 {
		t.Errorf("duplicates = %d, want 0", result.Duplicates)
	}
}
