package rulefile

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/plexsphere/pktgate/internal/rules"
)

var (
	// ErrInvalidRecord is returned for a record that does not have exactly
	// four fields.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrChecksumMismatch is returned when the rules file digest differs from
	// the configured SHA256.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// Result is a loaded rules file.
type Result struct {
	// Path is the file that was read.
	Path string
	// SHA256 is the hex-encoded digest of the file contents.
	SHA256 string
	// Rules are the decoded records in file order.
	Rules []rules.RawRule
}

// Load reads the rules file named by cfg, verifies its digest when cfg.SHA256
// is set, and decodes it.
func Load(cfg Config) (*Result, error) {
	data, err := os.ReadFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("rulefile: read %s: %w", cfg.Path, err)
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	if cfg.SHA256 != "" && cfg.SHA256 != digest {
		return nil, fmt.Errorf("rulefile: %s: %w: expected %s, got %s", cfg.Path, ErrChecksumMismatch, cfg.SHA256, digest)
	}

	format := cfg.Format
	if format == "" {
		format = FormatFromPath(cfg.Path)
	}
	recs, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return nil, fmt.Errorf("rulefile: %s: %w", cfg.Path, err)
	}

	return &Result{
		Path:   cfg.Path,
		SHA256: digest,
		Rules:  recs,
	}, nil
}

// FormatFromPath derives the rule format from a file extension.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatCSV
	}
}

// Decode reads rule records in the given format from r.
func Decode(r io.Reader, format string) ([]rules.RawRule, error) {
	switch format {
	case FormatCSV:
		return decodeCSV(r)
	case FormatYAML:
		return decodeYAML(r)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// decodeCSV reads "direction,protocol,port,address" lines. Blank lines and
// lines starting with '#' are skipped; fields are trimmed.
func decodeCSV(r io.Reader) ([]rules.RawRule, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []rules.RawRule
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(fields) != 4 {
			return nil, fmt.Errorf("decode csv: line %d: %w: got %d fields, want 4", line, ErrInvalidRecord, len(fields))
		}
		out = append(out, rules.RawRule{
			Line:         line,
			Direction:    strings.TrimSpace(fields[0]),
			Protocol:     strings.TrimSpace(fields[1]),
			PortRange:    strings.TrimSpace(fields[2]),
			AddressRange: strings.TrimSpace(fields[3]),
		})
	}
	return out, nil
}

// yamlRule is one entry of a YAML rules file.
type yamlRule struct {
	Direction string `yaml:"direction"`
	Protocol  string `yaml:"protocol"`
	Port      string `yaml:"port"`
	Address   string `yaml:"address"`
}

type yamlFile struct {
	Rules []yaml.Node `yaml:"rules"`
}

// decodeYAML reads a document of the form
//
//	rules:
//	  - {direction: inbound, protocol: tcp, port: "80", address: 192.168.1.2}
//
// Each record carries the line of its YAML node.
func decodeYAML(r io.Reader) ([]rules.RawRule, error) {
	var doc yamlFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	out := make([]rules.RawRule, 0, len(doc.Rules))
	for _, node := range doc.Rules {
		var yr yamlRule
		if err := node.Decode(&yr); err != nil {
			return nil, fmt.Errorf("decode yaml: line %d: %w: %v", node.Line, ErrInvalidRecord, err)
		}
		if yr.Direction == "" || yr.Protocol == "" || yr.Port == "" || yr.Address == "" {
			return nil, fmt.Errorf("decode yaml: line %d: %w: direction, protocol, port and address are required", node.Line, ErrInvalidRecord)
		}
		out = append(out, rules.RawRule{
			Line:         node.Line,
			Direction:    yr.Direction,
			Protocol:     yr.Protocol,
			PortRange:    yr.Port,
			AddressRange: yr.Address,
		})
	}
	return out, nil
}
