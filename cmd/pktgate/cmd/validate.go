package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the rules file",
	Long: "Load the rules file, verify its digest, build and freeze the classifier,\n" +
		"and print bucket and address range counts per table.",
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return fmt.Errorf("pktgate validate: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "file:    %s\n", s.file.Path)
	fmt.Fprintf(out, "sha256:  %s\n", s.file.SHA256)
	fmt.Fprintf(out, "rules:   %d\n", len(s.file.Rules))
	fmt.Fprintf(out, "overlap: %s\n\n", s.classifier.OverlapPolicy())

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tBUCKETS\tRANGES")
	for _, st := range s.classifier.Stats() {
		fmt.Fprintf(w, "%s\t%d\t%d\n", st.Key, st.Buckets, st.Intervals)
	}
	return w.Flush()
}
