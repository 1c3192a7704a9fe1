package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hannes/pellucid-sanitizer/pii"
	"github.com/hannes/pellucid-sanitizer/pii/detectors"
	"github.com/hannes/pellucid-sanitizer/sanitizer"
	"github.com/hannes/pellucid-sanitizer/validator"
)

var (
	sanitizeLevel    string
	sanitizePreserve bool
	sanitizeLines    bool
	detectLevel      string
)

var sanitizeCmd = &cobra.Command{
	Use:   "sanitize [text]",
	Short: "Sanitize text from the arguments or stdin and print the result as JSON",
	Example: `  pellucid sanitize "Contact john.doe@company.com"
  cat notes.txt | pellucid sanitize --level maximum
  pellucid sanitize --lines < records.txt`,
	RunE: runSanitize,
}

var detectCmd = &cobra.Command{
	Use:   "detect [text]",
	Short: "List the PII spans the local detector finds, without substituting",
	RunE:  runDetect,
}

func init() {
	sanitizeCmd.Flags().StringVar(&sanitizeLevel, "level", "", "privacy level: standard, enhanced or maximum (default from config)")
	sanitizeCmd.Flags().BoolVar(&sanitizePreserve, "preserve-context", true, "replace with synthetic values instead of [TYPE] placeholders")
	sanitizeCmd.Flags().BoolVar(&sanitizeLines, "lines", false, "treat each input line as a separate text and sanitize them as one batch")
	detectCmd.Flags().StringVar(&detectLevel, "level", "", "privacy level: standard, enhanced or maximum (default from config)")
	rootCmd.AddCommand(sanitizeCmd)
	rootCmd.AddCommand(detectCmd)
}

// readInput joins the arguments, or reads stdin when there are none
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func splitLines(text string) []string {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 10<<20)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func commandOptions(cmd *cobra.Command, level string) (sanitizer.Options, error) {
	opts, err := defaultOptions(cfg)
	if err != nil {
		return opts, err
	}
	if level != "" {
		if opts.Level, err = detectors.ParsePrivacyLevel(level); err != nil {
			return opts, err
		}
	}
	if f := cmd.Flags().Lookup("preserve-context"); f != nil && f.Changed {
		opts.PreserveContext = sanitizePreserve
	}
	return opts, nil
}

type sanitizeOutput struct {
	pii.SanitizationResult
	Degraded bool     `json:"degraded"`
	Safe     bool     `json:"safe"`
	Reasons  []string `json:"reasons,omitempty"`
}

func newSanitizeOutput(result pii.SanitizationResult, degraded bool) sanitizeOutput {
	out := sanitizeOutput{SanitizationResult: result, Degraded: degraded, Safe: true}
	var verr *validator.Error
	if err := validator.Check(result); errors.As(err, &verr) {
		out.Safe = false
		out.Reasons = verr.Reasons
	}
	return out
}

type batchOutput struct {
	Results             []interface{} `json:"results"`
	AveragePrivacyScore float64       `json:"average_privacy_score"`
	Degraded            bool          `json:"degraded"`
}

func runSanitize(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	opts, err := commandOptions(cmd, sanitizeLevel)
	if err != nil {
		return err
	}
	comps, err := buildComponents(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if !sanitizeLines {
		out, err := comps.service.Sanitize(ctx, text, opts)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), newSanitizeOutput(out.SanitizationResult, out.Degraded))
	}

	batch, err := comps.service.SanitizeBatch(ctx, splitLines(text), opts)
	if err != nil {
		return err
	}
	resp := batchOutput{
		Results:             make([]interface{}, len(batch.Items)),
		AveragePrivacyScore: batch.AveragePrivacyScore,
		Degraded:            batch.Degraded,
	}
	for i, item := range batch.Items {
		if item.Err != nil {
			resp.Results[i] = map[string]string{"error": item.Err.Error()}
			continue
		}
		resp.Results[i] = newSanitizeOutput(item.Result, item.Degraded)
	}
	return writeJSON(cmd.OutOrStdout(), resp)
}

type detectOutput struct {
	PrivacyLevel string                  `json:"privacy_level"`
	Entities     []detectors.EntityMatch `json:"entities"`
}

func runDetect(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	opts, err := commandOptions(cmd, detectLevel)
	if err != nil {
		return err
	}
	catalog, err := buildCatalog(cfg)
	if err != nil {
		return err
	}
	matches := detectors.NewRegexDetector(catalog).Detect(text, opts.Level)
	return writeJSON(cmd.OutOrStdout(), detectOutput{PrivacyLevel: opts.Level.String(), Entities: matches})
}
