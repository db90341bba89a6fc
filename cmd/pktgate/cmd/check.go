package cmd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/plexsphere/pktgate/internal/rules"
)

var (
	checkBatch   string
	checkWorkers int
)

var checkCmd = &cobra.Command{
	Use:   "check [DIRECTION PROTOCOL PORT ADDRESS]",
	Short: "Classify a packet against the rules",
	Long: "Classify a single packet given on the command line, or every packet in a\n" +
		"CSV batch file (direction,protocol,port,address per line). Prints accept or deny.",
	Args: func(cmd *cobra.Command, args []string) error {
		if checkBatch != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(4)(cmd, args)
	},
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkBatch, "batch", "", "CSV file of queries to classify")
	checkCmd.Flags().IntVar(&checkWorkers, "workers", runtime.GOMAXPROCS(0), "maximum concurrent batch workers")
	rootCmd.AddCommand(checkCmd)
}

// query is one packet to classify.
type query struct {
	line      int
	direction string
	protocol  string
	port      uint16
	address   string
}

func (q query) String() string {
	return fmt.Sprintf("%s,%s,%d,%s", q.direction, q.protocol, q.port, q.address)
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return fmt.Errorf("pktgate check: %w", err)
	}

	if checkBatch == "" {
		q, err := parseQuery(args)
		if err != nil {
			return fmt.Errorf("pktgate check: %w", err)
		}
		ok, err := s.classifier.Accept(q.direction, q.protocol, q.port, q.address)
		if err != nil {
			return fmt.Errorf("pktgate check: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), verdict(ok))
		return nil
	}

	f, err := os.Open(checkBatch)
	if err != nil {
		return fmt.Errorf("pktgate check: %w", err)
	}
	defer f.Close()

	queries, err := readQueries(f)
	if err != nil {
		return fmt.Errorf("pktgate check: %s: %w", checkBatch, err)
	}
	results, err := classifyAll(s.classifier, queries, checkWorkers)
	if err != nil {
		return fmt.Errorf("pktgate check: %s: %w", checkBatch, err)
	}

	out := cmd.OutOrStdout()
	for i, q := range queries {
		fmt.Fprintf(out, "%s,%s\n", q, verdict(results[i]))
	}
	s.logger.Debug("batch classified", "component", "check", "queries", len(queries))
	return nil
}

func parseQuery(fields []string) (query, error) {
	if len(fields) != 4 {
		return query{}, fmt.Errorf("query: got %d fields, want 4", len(fields))
	}
	port, err := strconv.ParseUint(fields[2], 10, 16)
	if err != nil {
		return query{}, fmt.Errorf("query: invalid port %q: %w", fields[2], err)
	}
	return query{
		direction: fields[0],
		protocol:  fields[1],
		port:      uint16(port),
		address:   fields[3],
	}, nil
}

// readQueries decodes a CSV batch file. Blank lines and lines starting with
// '#' are skipped.
func readQueries(r io.Reader) ([]query, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []query
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		q, err := parseQuery(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		q.line = line
		out = append(out, q)
	}
}

// classifyAll evaluates queries concurrently with at most workers goroutines.
// Results are returned in query order. The first malformed query aborts the
// batch.
func classifyAll(c *rules.Classifier, queries []query, workers int) ([]bool, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]bool, len(queries))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, q := range queries {
		g.Go(func() error {
			ok, err := c.Accept(q.direction, q.protocol, q.port, q.address)
			if err != nil {
				return fmt.Errorf("line %d: %w", q.line, err)
			}
			results[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
