package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// executeCmd runs the root command with args and returns captured stdout
// and any error. Logs go to a discarded buffer.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

// writeConfig writes content to a config file in a temp dir and returns its path.
func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestRunValidate_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
title: Riverside
timezone: Europe/Berlin
retention_days: 14
sweep_interval: 10m
server:
  port: 8080
courses:
  - id: kids
    name: Kids
    time: 16:00-17:00
  - id: adults
    name: Adults
`)

	output, err := executeCmd(t, "validate", "-c", configPath)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}

	expectedPhrases := []string{
		"Config is valid!",
		"Title:          Riverside",
		"Port:           8080",
		"Timezone:       Europe/Berlin",
		"Storage:        memory",
		"Retention:      14 days",
		"Sweep interval: 10m0s",
		"Courses:        2",
		"- Kids (kids) 16:00-17:00",
		"- Adults (adults)",
	}

	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("output missing %q\nGot: %s", phrase, output)
		}
	}
}

func TestRunValidate_DefaultCourses(t *testing.T) {
	configPath := writeConfig(t, "config.toml", `title = "Riverside"`)

	output, err := executeCmd(t, "validate", "-c", configPath)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}
	if !strings.Contains(output, "Courses:        3") {
		t.Errorf("output should list the default courses\nGot: %s", output)
	}
}

func TestRunValidate_InvalidConfig(t *testing.T) {
	configPath := writeConfig(t, "invalid.yaml", `
courses:
  - id: kids
`)

	_, err := executeCmd(t, "validate", "-c", configPath)
	if err == nil {
		t.Fatal("validate command expected error for invalid config, got nil")
	}

	if !strings.Contains(err.Error(), "name is required") {
		t.Errorf("error should mention 'name is required', got: %v", err)
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	_, err := executeCmd(t, "validate", "-c", "/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("validate command expected error for missing file, got nil")
	}

	if !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("error should mention 'failed to read', got: %v", err)
	}
}

func TestRunValidate_NoConfigFlag(t *testing.T) {
	_, err := executeCmd(t, "validate")
	if err == nil || !strings.Contains(err.Error(), "--config is required") {
		t.Errorf("error = %v, want --config is required", err)
	}
}

func TestVersion(t *testing.T) {
	output, err := executeCmd(t, "version")
	if err != nil {
		t.Fatalf("version command error = %v", err)
	}
	if !strings.HasPrefix(output, "daystatus dev") {
		t.Errorf("output = %q, want version line", output)
	}
}
