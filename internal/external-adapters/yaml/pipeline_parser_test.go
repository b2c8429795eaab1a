package yaml

import (
	"strings"
	"testing"
	"time"
)

const samplePipeline = `
name: cloudberry-ci
trigger:
  branches: [main]
  manual_dispatch: true
env:
  SRC_DIR: /home/gpadmin/cloudberry
scripts:
  repo_url: https://example.com/cloudberry-devops-release.git
  ref: main
  dir: scripts
jobs:
  - name: check-skip
  - name: build
    needs: [check-skip]
    image: cbdb-build-el9
    runs_as: gpadmin
    timeout_minutes: 120
    steps:
      - name: configure
        script_file: build/configure-cloudberry.sh
      - name: build
        script_file: build/build-cloudberry.sh
      - name: unit-test
        script_file: build/unit-test-cloudberry.sh
      - name: package
        script_file: build/package-cloudberry.sh
    uploads:
      - name: rpm-build
        paths: ["${jobs.build.outputs.rpm_file}"]
        retention_days: 1
      - name: build-logs
        paths: [/tmp/build-logs]
        retention_days: 7
  - name: rpm-install-test
    needs: [build]
    image: cbdb-test-el9
    downloads:
      - name: rpm-build
        dest: pkg
    steps:
      - name: install
        script: rpm -i pkg/*.rpm
    verify_binaries:
      - /usr/local/cloudberry-db/bin/postgres
      - /usr/local/cloudberry-db/bin/psql
  - name: test
    needs: [build]
    image: cbdb-test-el9
    matrix:
      - name: ic-good-opt-off
        params:
          make_target: installcheck-good
          pg_options: "-c optimizer=off"
      - name: ic-expandshrink
        params:
          make_target: installcheck-expandshrink
          pg_options: ""
    steps:
      - name: run tests
        script_file: test/test-cloudberry.sh
        env:
          MAKE_TARGET: "${matrix.make_target}"
          PGOPTIONS: "${matrix.pg_options}"
      - name: parse results
        script_file: test/parse-test-results.sh
        soft_exit_codes: [1]
  - name: report
    needs: [build, test]
    always: true
    steps:
      - name: summarize
        script: echo done
`

func TestPipelineParser_Parse(t *testing.T) {
	parser := NewPipelineParser()

	p, err := parser.Parse([]byte(samplePipeline))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if p.Name != "cloudberry-ci" {
		t.Errorf("Parse() name = %q", p.Name)
	}
	if !p.Trigger.ManualDispatch || len(p.Trigger.Branches) != 1 {
		t.Errorf("Parse() trigger = %+v", p.Trigger)
	}
	if p.Scripts.RepoURL == "" || p.Scripts.Dir != "scripts" {
		t.Errorf("Parse() scripts = %+v", p.Scripts)
	}
	if len(p.Jobs) != 5 {
		t.Fatalf("Parse() jobs = %d, want 5", len(p.Jobs))
	}

	build, ok := p.JobByName("build")
	if !ok {
		t.Fatal("Parse() missing build job")
	}
	if build.Timeout != 120*time.Minute {
		t.Errorf("build timeout = %v, want 120m", build.Timeout)
	}
	if build.RunsAs != "gpadmin" {
		t.Errorf("build runs_as = %q", build.RunsAs)
	}
	if len(build.Steps) != 4 {
		t.Errorf("build steps = %d, want 4", len(build.Steps))
	}
	if len(build.Uploads) != 2 || build.Uploads[1].RetentionDays != 7 {
		t.Errorf("build uploads = %+v", build.Uploads)
	}

	install, _ := p.JobByName("rpm-install-test")
	if len(install.VerifyBinaries) != 2 {
		t.Errorf("install verify_binaries = %v", install.VerifyBinaries)
	}
	if len(install.Downloads) != 1 || install.Downloads[0].Dest != "pkg" {
		t.Errorf("install downloads = %+v", install.Downloads)
	}

	test, _ := p.JobByName("test")
	if !test.IsMatrix() || len(test.Matrix) != 2 {
		t.Fatalf("test matrix = %+v", test.Matrix)
	}
	if test.Matrix[0].Params["make_target"] != "installcheck-good" {
		t.Errorf("test matrix params = %+v", test.Matrix[0].Params)
	}
	parse := test.Steps[1]
	if len(parse.SoftExitCodes) != 1 || parse.SoftExitCodes[0] != 1 {
		t.Errorf("parse step soft_exit_codes = %v, want [1]", parse.SoftExitCodes)
	}

	report, _ := p.JobByName("report")
	if !report.Always {
		t.Error("report job should be always")
	}
}

func TestPipelineParser_Parse_Invalid(t *testing.T) {
	parser := NewPipelineParser()

	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "not yaml",
			yaml: "{{{",
		},
		{
			name: "missing name",
			yaml: "jobs:\n  - name: build\n",
		},
		{
			name: "no jobs",
			yaml: "name: empty\n",
		},
		{
			name: "unnamed job",
			yaml: "name: p\njobs:\n  - image: x\n",
		},
		{
			name: "step with script and script_file",
			yaml: "name: p\njobs:\n  - name: build\n    steps:\n      - name: s\n        script: echo hi\n        script_file: a.sh\n",
		},
		{
			name: "unnamed upload",
			yaml: "name: p\njobs:\n  - name: build\n    uploads:\n      - paths: [/tmp/x]\n",
		},
		{
			name: "unnamed download",
			yaml: "name: p\njobs:\n  - name: build\n    downloads:\n      - dest: pkg\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parser.Parse([]byte(tt.yaml)); err == nil {
				t.Error("Parse() expected error, got nil")
			}
		})
	}
}

func FuzzPipelineParser_Parse(f *testing.F) {
	f.Add(samplePipeline)
	f.Add("name: p\njobs:\n  - name: a\n")
	f.Add("")

	parser := NewPipelineParser()
	f.Fuzz(func(t *testing.T, data string) {
		// Must never panic, whatever the input
		p, err := parser.Parse([]byte(data))
		if err == nil && p.Name == "" {
			t.Error("Parse() accepted pipeline without name")
		}
		_ = strings.TrimSpace(data)
	})
}
