package config

import (
	"encoding/json"
	"testing"
)

func validPipeline() Pipeline {
	return Pipeline{
		Job: "test",
		Sources: Sources{
			Customers:    "data/customers.json",
			Transactions: "data/transactions.json",
			Reviews:      []string{"data/reviews_jan.json"},
		},
		Storage: Storage{Kind: "sqlite", DB: DBConfig{DSN: "file:test.db"}},
	}
}

func countSeverity(issues []Issue, sev IssueSeverity) int {
	n := 0
	for _, i := range issues {
		if i.Severity == sev {
			n++
		}
	}
	return n
}

func TestValidatePipelineClean(t *testing.T) {
	issues := ValidatePipeline(validPipeline())
	if n := countSeverity(issues, SeverityError); n != 0 {
		t.Fatalf("clean pipeline produced %d errors: %v", n, issues)
	}
}

func TestValidatePipelineFindings(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Pipeline)
		path     string
		severity IssueSeverity
	}{
		{"empty job", func(p *Pipeline) { p.Job = " " }, "job", SeverityError},
		{"missing customers", func(p *Pipeline) { p.Sources.Customers = "" }, "sources.customers", SeverityError},
		{"missing transactions", func(p *Pipeline) { p.Sources.Transactions = "" }, "sources.transactions", SeverityError},
		{"no reviews", func(p *Pipeline) { p.Sources.Reviews = nil }, "sources.reviews", SeverityWarning},
		{"blank review path", func(p *Pipeline) { p.Sources.Reviews = []string{""} }, "sources.reviews[0]", SeverityError},
		{"bad dedup policy", func(p *Pipeline) { p.Validation = Options{"dedup_policy": "newest"} }, "validation.dedup_policy", SeverityError},
		{"status override warns", func(p *Pipeline) { p.Validation = Options{"status_enum": []any{"x"}} }, "validation.status_enum", SeverityWarning},
		{"empty status override", func(p *Pipeline) { p.Validation = Options{"status_enum": []any{}} }, "validation.status_enum", SeverityError},
		{"empty storage kind", func(p *Pipeline) { p.Storage.Kind = "" }, "storage.kind", SeverityError},
		{"unknown storage kind", func(p *Pipeline) { p.Storage.Kind = "oracle" }, "storage.kind", SeverityWarning},
		{"empty dsn", func(p *Pipeline) { p.Storage.DB.DSN = "" }, "storage.db.dsn", SeverityError},
		{"negative batch size", func(p *Pipeline) { p.Runtime.BatchSize = -1 }, "runtime.batch_size", SeverityError},
		{"negative retries", func(p *Pipeline) { p.Runtime.MaxRetries = -1 }, "runtime.max_retries", SeverityError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPipeline()
			tt.mutate(&p)
			for _, iss := range ValidatePipeline(p) {
				if iss.Path == tt.path && iss.Severity == tt.severity {
					return
				}
			}
			t.Fatalf("no %s issue at %s in %v", tt.severity, tt.path, ValidatePipeline(p))
		})
	}
}

func TestPipelineDecode(t *testing.T) {
	raw := `{
		"job": "ecommerce",
		"sources": {
			"customers": "c.json",
			"transactions": "t.json",
			"reviews": ["r1.json", "r2.json"]
		},
		"validation": {"dedup_policy": "keep-last", "date_layouts": ["Jan 2, 2006"]},
		"storage": {"kind": "postgres", "db": {"dsn": "postgresql://x", "auto_create_schema": true}},
		"runtime": {"batch_size": 100}
	}`
	var p Pipeline
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatal(err)
	}
	if p.Validation.String("dedup_policy", "") != "keep-last" {
		t.Errorf("dedup_policy = %q", p.Validation.String("dedup_policy", ""))
	}
	if got := p.Validation.StringSlice("date_layouts"); len(got) != 1 || got[0] != "Jan 2, 2006" {
		t.Errorf("date_layouts = %v", got)
	}
	if !p.Storage.DB.AutoCreateSchema {
		t.Error("auto_create_schema not decoded")
	}
	if len(p.Sources.Reviews) != 2 {
		t.Errorf("reviews = %v", p.Sources.Reviews)
	}
}

func TestOptionsNilSafe(t *testing.T) {
	var p Pipeline
	if err := json.Unmarshal([]byte(`{"job": "x", "validation": null}`), &p); err != nil {
		t.Fatal(err)
	}
	if p.Validation == nil {
		t.Fatal("null validation should decode to empty Options")
	}
	if got := p.Validation.String("missing", "def"); got != "def" {
		t.Errorf("default = %q", got)
	}
	if got := p.Validation.Int("missing", 7); got != 7 {
		t.Errorf("default int = %d", got)
	}
}
