package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uptrms/bddkit/internal/generator"
)

func newGenerateCmd(o *options) *cobra.Command {
	var (
		code, output string
		httpSteps    bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate bddkit_test.go from annotated step functions",
		Long: `Searches the --code directories for functions annotated with
// @step and for functions returning *bdd.Config, *bdd.Hooks or
*fixture.Fixture, then writes bddkit_test.go into the output directory.
With --http-steps the generated test also registers the built-in HTTP steps.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := o.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			target, err := generator.Generate(cmd.Context(), generator.Options{
				Dirs:      generator.SplitDirs(code),
				OutputDir: output,
				HTTPSteps: httpSteps,
				Logger:    logger,
			}, o.parser)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "directories to search for step functions, separated by comma")
	cmd.Flags().StringVarP(&output, "output", "o", "", "directory to write bddkit_test.go into (default: working directory)")
	cmd.Flags().BoolVar(&httpSteps, "http-steps", false, "also register the built-in HTTP step library")
	return cmd
}
