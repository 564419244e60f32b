package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/raymyers/ralphcpp/pkg/calc"
	"github.com/raymyers/ralphcpp/pkg/cpp"
	"github.com/raymyers/ralphcpp/pkg/preproc"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// Preprocessor options
var (
	includePaths  []string
	systemPaths   []string
	defineFlags   []string
	undefineFlags []string
	preprocessOnly bool // -E flag
	useExternalPP bool // Use external preprocessor
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ralphcpp [file]",
		Short: "ralphcpp is a standalone C-preprocessor-compatible macro processor",
		Long: `ralphcpp preprocesses C source: #include, #define, conditional
compilation, #line, #error and #pragma once, driven by a streaming
token pump rather than a whole-file pass.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			return doPreprocess(args[0], out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().StringArrayVarP(&includePaths, "include", "I", nil, "Add directory to include search path")
	rootCmd.Flags().StringArrayVar(&systemPaths, "isystem", nil, "Add directory to system include search path")
	rootCmd.Flags().StringArrayVarP(&defineFlags, "define", "D", nil, "Define macro (NAME or NAME=VALUE)")
	rootCmd.Flags().StringArrayVarP(&undefineFlags, "undefine", "U", nil, "Undefine macro")
	rootCmd.Flags().BoolVarP(&preprocessOnly, "preprocess", "E", false, "Emit # <line> \"<file>\" markers (traditional cpp style)")
	rootCmd.Flags().BoolVar(&useExternalPP, "external-cpp", false, "Use the system C preprocessor (cc -E) instead of the internal one")

	rootCmd.AddCommand(newCalcCmd(out, errOut))

	return rootCmd
}

// buildPreprocessorOptions creates preproc.Options from CLI flags.
func buildPreprocessorOptions() *preproc.Options {
	opts := &preproc.Options{
		IncludePaths: includePaths,
		SystemPaths:  systemPaths,
		Defines:      make(map[string]string),
		Undefines:    undefineFlags,
		UseExternal:  useExternalPP,
		LineMarkers:  preprocessOnly,
	}

	for _, d := range defineFlags {
		if idx := strings.Index(d, "="); idx >= 0 {
			opts.Defines[d[:idx]] = d[idx+1:]
		} else {
			opts.Defines[d] = ""
		}
	}

	return opts
}

func doPreprocess(filename string, out, errOut io.Writer) error {
	content, err := preproc.Preprocess(filename, buildPreprocessorOptions())
	if err != nil {
		fmt.Fprintf(errOut, "ralphcpp: preprocessing error: %v\n", err)
		return err
	}
	fmt.Fprint(out, content)
	return nil
}

// newCalcCmd builds the "calc" subcommand: a line-oriented read-eval-print
// loop over the expression calculator, sharing one preprocessing context
// (and therefore one macro table) across every line typed.
func newCalcCmd(out, errOut io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Interactive expression calculator (type an expression, 'q' or 'quit' to exit)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalcRepl(cmd.InOrStdin(), out, errOut)
		},
	}
	return cmd
}

func runCalcRepl(in io.Reader, out, errOut io.Writer) error {
	ctx, err := cpp.NewContext(cpp.Options{})
	if err != nil {
		return fmt.Errorf("initializing calculator: %w", err)
	}
	defer ctx.Close()

	env := calc.Environment{}
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "q" || line == "quit" {
			return nil
		}

		result, err := calc.Evaluate(ctx, line, env)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, result)
	}
}
