package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/obestwalter/datatest/internal/allow"
	"github.com/obestwalter/datatest/internal/compare"
	"github.com/obestwalter/datatest/internal/diff"
	"github.com/obestwalter/datatest/internal/source"
	"github.com/obestwalter/datatest/internal/validate"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	Subject   string
	Reference string
	Checks    string
}

// Report is the result of one validate run.
type Report struct {
	RunID     string        `json:"run_id"`
	Suite     string        `json:"suite"`
	Subject   string        `json:"subject"`
	Reference string        `json:"reference,omitempty"`
	Passed    int           `json:"passed"`
	Failed    int           `json:"failed"`
	Checks    []CheckResult `json:"checks"`
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Passed  bool   `json:"passed"`
	Failure string `json:"failure,omitempty"`
}

// NewValidateCommand creates the validate command: runs a check suite
// against a subject CSV, optionally pulling required data from a
// reference CSV.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run a check suite against subject data",
		Long: `Runs every check in a suite file against subject data loaded from CSV.
Checks without literal required data pull their requirements from the
reference CSV. Exit code 0 means all checks passed, 1 means at least
one check failed, 2 means the run itself could not be performed.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}
			return runValidate(cmd.Context(), opts, formatter)
		},
	}

	cmd.Flags().StringVar(&opts.Subject, "subject", "", "subject data CSV file (required)")
	cmd.Flags().StringVar(&opts.Checks, "checks", "", "check suite YAML file (required)")
	cmd.Flags().StringVar(&opts.Reference, "reference", "", "reference data CSV file")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("checks")

	return cmd
}

func runValidate(ctx context.Context, opts *ValidateOptions, formatter *OutputFormatter) error {
	suite, err := LoadSuite(opts.Checks)
	if err != nil {
		formatter.Error(loadErrCode(err, ErrCodeBadSuite), err.Error(), nil)
		return WrapExitError(ExitCommandError, "load check suite", err)
	}

	subject, err := source.FromCSV(opts.Subject)
	if err != nil {
		formatter.Error(loadErrCode(err, ErrCodeBadSource), err.Error(), nil)
		return WrapExitError(ExitCommandError, "load subject data", err)
	}
	defer subject.Close()

	var reference *source.Source
	if opts.Reference != "" {
		reference, err = source.FromCSV(opts.Reference)
		if err != nil {
			formatter.Error(loadErrCode(err, ErrCodeBadSource), err.Error(), nil)
			return WrapExitError(ExitCommandError, "load reference data", err)
		}
		defer reference.Close()
	}

	report := Report{
		RunID:     uuid.NewString(),
		Suite:     suite.Name,
		Subject:   opts.Subject,
		Reference: opts.Reference,
	}

	for _, check := range suite.Checks {
		formatter.VerboseLog("running check %q (%s)", check.Name, check.Type)
		result, err := runCheck(ctx, check, subject, reference, formatter)
		if err != nil {
			code := ErrCodeBadCheck
			var cfg *allow.ConfigError
			if errors.As(err, &cfg) {
				code = ErrCodeBadAllow
			}
			formatter.Error(code, fmt.Sprintf("check %q: %v", check.Name, err), nil)
			return WrapExitError(ExitCommandError, fmt.Sprintf("check %q", check.Name), err)
		}
		if result.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Checks = append(report.Checks, result)
	}

	if err := writeReport(formatter, report); err != nil {
		return WrapExitError(ExitCommandError, "write report", err)
	}
	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d checks failed", report.Failed, len(report.Checks)))
	}
	return nil
}

// runCheck executes one check. A returned error means the check itself
// is misconfigured or a query failed; validation failures land in the
// result instead.
func runCheck(ctx context.Context, check Check, subject, reference *source.Source, formatter *OutputFormatter) (CheckResult, error) {
	result := CheckResult{Name: check.Name, Type: check.Type}

	verr, err := evaluate(ctx, check, subject, reference)
	if err != nil {
		return result, err
	}

	if verr != nil {
		stack, descriptions, err := check.buildScopes()
		if err != nil {
			return result, err
		}
		for _, desc := range descriptions {
			formatter.VerboseLog("  applying allowance: %s", desc)
		}
		verr = stack.Unwind(verr)
	}

	if verr == nil {
		result.Passed = true
		return result, nil
	}
	result.Failure = verr.Error()
	return result, nil
}

// evaluate queries the subject and compares it against the check's
// requirement. The first return value is the validation failure, if
// any; the second is a configuration or query error.
func evaluate(ctx context.Context, check Check, subject, reference *source.Source) (error, error) {
	filters := source.Filters(check.Filters)

	switch check.Type {
	case "columns", "order":
		names, err := subject.Columns(ctx)
		if err != nil {
			return nil, fmt.Errorf("query subject columns: %w", err)
		}
		actual := textValues(names)

		required, err := requiredValues(ctx, check, reference, func(ref *source.Source) ([]diff.Value, error) {
			refNames, err := ref.Columns(ctx)
			if err != nil {
				return nil, err
			}
			return textValues(refNames), nil
		})
		if err != nil {
			return nil, err
		}

		if check.Type == "order" {
			return validate.Validate(actual, compare.Sequence(required), check.Message), nil
		}
		return validate.Validate(actual, compare.NewSet(required...), check.Message), nil

	case "set":
		if len(check.Columns) == 0 {
			return nil, fmt.Errorf("set check needs columns")
		}
		actual, err := subject.Distinct(ctx, check.Columns, filters)
		if err != nil {
			return nil, fmt.Errorf("query subject: %w", err)
		}

		required, err := requiredValues(ctx, check, reference, func(ref *source.Source) ([]diff.Value, error) {
			return ref.Distinct(ctx, check.Columns, filters)
		})
		if err != nil {
			return nil, err
		}
		return validate.Validate(actual, compare.NewSet(required...), check.Message), nil

	case "sum", "count":
		if check.Column == "" || len(check.Keys) == 0 {
			return nil, fmt.Errorf("%s check needs a column and group keys", check.Type)
		}
		aggregate := func(src *source.Source) (compare.Mapping, error) {
			if check.Type == "sum" {
				return src.Sum(ctx, check.Column, check.Keys, filters)
			}
			return src.Count(ctx, check.Column, check.Keys, filters)
		}

		actual, err := aggregate(subject)
		if err != nil {
			return nil, fmt.Errorf("query subject: %w", err)
		}

		var required compare.Mapping
		if check.Required != nil {
			required, err = mappingFromAny(check.Required)
			if err != nil {
				return nil, err
			}
		} else if reference != nil {
			required, err = aggregate(reference)
			if err != nil {
				return nil, fmt.Errorf("query reference: %w", err)
			}
		} else {
			return nil, fmt.Errorf("check needs required data or a reference source")
		}
		return validate.ValidateGroups(actual, required, check.Message, check.Keys...), nil

	case "regex", "notregex":
		if len(check.Columns) == 0 {
			return nil, fmt.Errorf("%s check needs columns", check.Type)
		}
		if check.Pattern == "" {
			return nil, fmt.Errorf("%s check needs a pattern", check.Type)
		}
		var required compare.Regex
		var err error
		if check.Type == "notregex" {
			required, err = compare.NewNotRegex(check.Pattern)
		} else {
			required, err = compare.NewRegex(check.Pattern)
		}
		if err != nil {
			return nil, err
		}
		actual, err := subject.Distinct(ctx, check.Columns, filters)
		if err != nil {
			return nil, fmt.Errorf("query subject: %w", err)
		}
		return validate.Validate(actual, required, check.Message), nil

	case "cue":
		if len(check.Columns) == 0 {
			return nil, fmt.Errorf("cue check needs columns")
		}
		if check.Schema == "" {
			return nil, fmt.Errorf("cue check needs a schema")
		}
		required, err := compare.NewSchema(check.Schema)
		if err != nil {
			return nil, err
		}
		actual, err := subject.Distinct(ctx, check.Columns, filters)
		if err != nil {
			return nil, fmt.Errorf("query subject: %w", err)
		}
		return validate.Validate(actual, required, check.Message), nil

	default:
		return nil, fmt.Errorf("unknown check type %q", check.Type)
	}
}

// requiredValues resolves a check's required element list: literal
// data when present, otherwise a reference query.
func requiredValues(ctx context.Context, check Check, reference *source.Source, fromRef func(*source.Source) ([]diff.Value, error)) ([]diff.Value, error) {
	if check.Required != nil {
		return valuesFromAny(check.Required)
	}
	if reference != nil {
		values, err := fromRef(reference)
		if err != nil {
			return nil, fmt.Errorf("query reference: %w", err)
		}
		return values, nil
	}
	return nil, fmt.Errorf("check needs required data or a reference source")
}

// loadErrCode distinguishes a missing input file from a malformed one.
func loadErrCode(err error, fallback string) string {
	if errors.Is(err, fs.ErrNotExist) {
		return ErrCodeNotFound
	}
	return fallback
}

func textValues(names []string) []diff.Value {
	values := make([]diff.Value, len(names))
	for i, name := range names {
		values[i] = diff.Text(name)
	}
	return values
}

// writeReport renders the run report in the configured format.
func writeReport(formatter *OutputFormatter, report Report) error {
	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "suite %q run %s\n", report.Suite, report.RunID)
	for _, check := range report.Checks {
		if check.Passed {
			fmt.Fprintf(&b, "PASS %s\n", check.Name)
			continue
		}
		fmt.Fprintf(&b, "FAIL %s\n", check.Name)
		for _, line := range strings.Split(check.Failure, "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}
	fmt.Fprintf(&b, "%d passed, %d failed", report.Passed, report.Failed)
	return formatter.Success(b.String())
}
