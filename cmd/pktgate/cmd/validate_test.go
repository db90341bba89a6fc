package cmd

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/plexsphere/pktgate/internal/rulefile"
	"github.com/plexsphere/pktgate/internal/rules"
)

func TestValidateCommand(t *testing.T) {
	rulesFile := writeFile(t, "rules.csv", sampleRulesCSV)
	cfg := writeConfig(t, rulesFile)

	output, err := execute(t, "validate", "--config", cfg)
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}

	sum := sha256.Sum256([]byte(sampleRulesCSV))
	for _, want := range []string{
		hex.EncodeToString(sum[:]),
		"rules:   5",
		"overlap: strict",
		"inbound/tcp",
		"outbound/udp",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("validate output should contain %q, got:\n%s", want, output)
		}
	}
}

func TestValidateCommand_OverlapPolicy(t *testing.T) {
	rulesFile := writeFile(t, "rules.csv", "inbound,tcp,80-90,10.0.0.1\ninbound,tcp,85-95,10.0.0.2\n")
	cfg := writeConfig(t, rulesFile)

	_, err := execute(t, "validate", "--config", cfg)
	if !errors.Is(err, rules.ErrOverlappingPortRanges) {
		t.Fatalf("validate (strict) error = %v, want %v", err, rules.ErrOverlappingPortRanges)
	}

	output, err := execute(t, "validate", "--config", cfg, "--overlap", "probe")
	if err != nil {
		t.Fatalf("validate --overlap probe error = %v", err)
	}
	if !strings.Contains(output, "overlap: probe") {
		t.Errorf("validate output should report probe policy, got:\n%s", output)
	}
}

func TestValidateCommand_BadRule(t *testing.T) {
	rulesFile := writeFile(t, "rules.csv", "inbound,tcp,80,10.0.0.1\nsideways,tcp,80,10.0.0.1\n")

	_, err := execute(t, "validate", "--config", writeConfig(t, rulesFile))
	var ruleErr *rules.RuleError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("validate error = %v, want *rules.RuleError", err)
	}
	if ruleErr.Line != 2 {
		t.Errorf("RuleError.Line = %d, want 2", ruleErr.Line)
	}
	if !errors.Is(err, rules.ErrUnknownDirectionProtocol) {
		t.Errorf("validate error = %v, want %v", err, rules.ErrUnknownDirectionProtocol)
	}
}

func TestValidateCommand_ChecksumMismatch(t *testing.T) {
	rulesFile := writeFile(t, "rules.csv", sampleRulesCSV)
	cfg := writeFile(t, "config.yaml", "rules:\n  path: "+rulesFile+"\n  sha256: "+strings.Repeat("0", 64)+"\n")

	_, err := execute(t, "validate", "--config", cfg)
	if !errors.Is(err, rulefile.ErrChecksumMismatch) {
		t.Errorf("validate error = %v, want %v", err, rulefile.ErrChecksumMismatch)
	}
}

func TestValidateCommand_RulesFlag(t *testing.T) {
	yamlRules := writeFile(t, "rules.yaml", `rules:
  - direction: inbound
    protocol: udp
    port: "53"
    address: 10.0.0.1-10.0.0.9
`)
	cfg := writeConfig(t, "/nonexistent/rules.csv")

	output, err := execute(t, "validate", "--config", cfg, "--rules", yamlRules)
	if err != nil {
		t.Fatalf("validate --rules error = %v", err)
	}
	if !strings.Contains(output, "rules:   1") {
		t.Errorf("validate output should count 1 rule, got:\n%s", output)
	}
}

func TestValidateCommand_MissingRulesFile(t *testing.T) {
	cfg := writeConfig(t, "/nonexistent/rules.csv")

	_, err := execute(t, "validate", "--config", cfg)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("validate error = %v, want %v", err, os.ErrNotExist)
	}
}
