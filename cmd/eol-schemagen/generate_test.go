package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/imports"

	"github.com/eol-bench/eol-go/pkg/codec"
)

const relaySchema = `
name: relay-board
version: "1.2"
messages:
  - id: 0x300
    name: RelayStatus
    length: 1
    signals:
      - {name: K1State, start_bit: 0, length: 1}
  - id: 0x200
    name: RelayCommand
    length: 4
    selector: CmdType
    signals:
      - {name: CmdType, start_bit: 0, length: 8, choices: {2: RELAY_CMD, 1: VOLTAGE_CMD}}
      - {name: Voltage_mV, start_bit: 8, length: 16, mux: 1}
      - {name: RelayK1, start_bit: 8, length: 1, mux: 2}
`

func parseSchema(t *testing.T, src string) *codec.Schema {
	t.Helper()
	s, err := codec.ParseSchema([]byte(src))
	if err != nil {
		t.Fatalf("ParseSchema failed: %v", err)
	}
	return s
}

func mustContain(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Errorf("output missing %q\n--- output ---\n%s", want, output)
	}
}

func TestGoName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"RelayCommand", "RelayCommand"},
		{"Voltage_mV", "VoltageMV"},
		{"RELAY_CMD", "RelayCmd"},
		{"K1State", "K1State"},
		{"relay k1", "RelayK1"},
		{"2ND_STAGE", "N2NDStage"},
		{"--", "X"},
	}
	for _, tt := range tests {
		if got := goName(tt.in); got != tt.want {
			t.Errorf("goName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateConstants(t *testing.T) {
	schema := parseSchema(t, relaySchema)
	code, err := Generate(schema, "relay", "relay.schema.yaml")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	out, err := imports.Process("schema_gen.go", []byte(code), nil)
	if err != nil {
		t.Fatalf("generated code does not parse: %v\n%s", err, code)
	}
	output := string(out)

	mustContain(t, output, "// Code generated by eol-schemagen from relay.schema.yaml. DO NOT EDIT.")
	mustContain(t, output, "package relay")
	mustContain(t, output, `SchemaVersion     = "1.2"`)
	mustContain(t, output, `SchemaFingerprint = "`+schema.Fingerprint()+`"`)
	mustContain(t, output, "RelayCommandID     uint32 = 0x200")
	mustContain(t, output, `RelayCommandVoltageMV = "Voltage_mV"`)
	mustContain(t, output, `RelayStatusK1State = "K1State"`)
	mustContain(t, output, "RelayCommandCmdTypeVoltageCmd = 1")
	mustContain(t, output, "RelayCommandCmdTypeRelayCmd   = 2")

	// Messages are emitted in identifier order.
	if strings.Index(output, "RelayCommandID") > strings.Index(output, "RelayStatusID") {
		t.Error("RelayCommand (0x200) should precede RelayStatus (0x300)")
	}
}

func TestGenerateRejectsCollisions(t *testing.T) {
	schema := parseSchema(t, `
name: clash
messages:
  - id: 0x10
    name: Status
    length: 1
    signals:
      - {name: K1_State, start_bit: 0, length: 1}
      - {name: K1State, start_bit: 1, length: 1}
`)
	_, err := Generate(schema, "clash", "clash.yaml")
	if err == nil || !strings.Contains(err.Error(), "collides") {
		t.Fatalf("Generate() error = %v, want collision", err)
	}
}

func TestRunWritesFormattedFile(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "relay.schema.yaml")
	if err := os.WriteFile(schemaPath, []byte(relaySchema), 0o644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(dir, "gen", "schema_gen.go")

	if err := run(schemaPath, "relay", output); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	mustContain(t, string(data), "RelayStatusID")
}

func TestRunKeepsBrokenOutput(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "relay.schema.yaml")
	if err := os.WriteFile(schemaPath, []byte(relaySchema), 0o644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(dir, "schema_gen.go")

	if err := run(schemaPath, "not a package", output); err == nil {
		t.Fatal("expected error for invalid package name")
	}
	if _, err := os.Stat(output + ".broken"); err != nil {
		t.Errorf("expected .broken file: %v", err)
	}
}
