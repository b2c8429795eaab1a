package services

import (
	"strings"
	"testing"
)

func testInterpContext() *InterpContext {
	return &InterpContext{
		RunID:        "2f1c9a7e",
		RunTimestamp: "20260825120000",
		Matrix:       map[string]string{"make_target": "installcheck-good", "pg_options": "-c optimizer=off"},
		JobOutputs: map[string]map[string]string{
			"build": {
				"rpm_file":     "/artifacts/apache-cloudberry-db-2.0.0-1.el9.x86_64.rpm",
				"cbdb_version": "2.0.0",
			},
		},
	}
}

func TestInterpContext_Expand(t *testing.T) {
	ctx := testInterpContext()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "run id",
			input: "run-${run.id}",
			want:  "run-2f1c9a7e",
		},
		{
			name:  "run timestamp",
			input: "logs-${run.timestamp}",
			want:  "logs-20260825120000",
		},
		{
			name:  "matrix parameter",
			input: "${matrix.make_target}",
			want:  "installcheck-good",
		},
		{
			name:  "job output",
			input: "${jobs.build.outputs.rpm_file}",
			want:  "/artifacts/apache-cloudberry-db-2.0.0-1.el9.x86_64.rpm",
		},
		{
			name:  "mixed references in one string",
			input: "v${jobs.build.outputs.cbdb_version} @ ${run.timestamp}",
			want:  "v2.0.0 @ 20260825120000",
		},
		{
			name:  "no references",
			input: "plain string",
			want:  "plain string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ctx.Expand(tt.input)
			if err != nil {
				t.Fatalf("Expand(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestInterpContext_Expand_Errors(t *testing.T) {
	ctx := testInterpContext()

	tests := []struct {
		name    string
		input   string
		wantSub string
	}{
		{
			name:    "unknown matrix key",
			input:   "${matrix.nope}",
			wantSub: "unknown matrix parameter",
		},
		{
			name:    "unknown job",
			input:   "${jobs.deploy.outputs.url}",
			wantSub: "no outputs recorded",
		},
		{
			name:    "unknown output key",
			input:   "${jobs.build.outputs.nope}",
			wantSub: "has no output",
		},
		{
			name:    "unknown reference form",
			input:   "${secrets.token}",
			wantSub: "unknown reference",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ctx.Expand(tt.input)
			if err == nil {
				t.Fatalf("Expand(%q) expected error", tt.input)
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("Expand(%q) error = %v, want containing %q", tt.input, err, tt.wantSub)
			}
		})
	}
}

func TestInterpContext_ExpandMap(t *testing.T) {
	ctx := testInterpContext()

	env, err := ctx.ExpandMap(map[string]string{
		"CBDB_VERSION": "${jobs.build.outputs.cbdb_version}",
		"MAKE_TARGET":  "${matrix.make_target}",
		"SRC_DIR":      "/home/gpadmin/src",
	})
	if err != nil {
		t.Fatalf("ExpandMap() error = %v", err)
	}

	if env["CBDB_VERSION"] != "2.0.0" {
		t.Errorf("CBDB_VERSION = %q, want 2.0.0", env["CBDB_VERSION"])
	}
	if env["MAKE_TARGET"] != "installcheck-good" {
		t.Errorf("MAKE_TARGET = %q", env["MAKE_TARGET"])
	}
	if env["SRC_DIR"] != "/home/gpadmin/src" {
		t.Errorf("SRC_DIR = %q, want passthrough", env["SRC_DIR"])
	}

	if _, err := ctx.ExpandMap(map[string]string{"X": "${jobs.none.outputs.y}"}); err == nil {
		t.Error("ExpandMap() expected error for unresolvable value")
	}
}
