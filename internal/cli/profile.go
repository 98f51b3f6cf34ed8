package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/signflow/internal/profile"
)

// NewProfileCommand creates the profile command.
func NewProfileCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile [file.cue]",
		Short: "Validate and print a geometry profile",
		Long: `Validate a CUE geometry profile and print the resolved surface,
row height and field geometries. Without a file, prints the built-in
defaults.

Examples:
  signflow profile
  signflow profile ./a4.cue --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runProfile(opts *RootOptions, args []string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	p := profile.Default()
	if len(args) == 1 {
		var err error
		p, err = profile.LoadFile(args[0])
		if err != nil {
			var pe *profile.Error
			if errors.As(err, &pe) {
				_ = out.Error(CodeProfile, pe.Message, map[string]string{"field": pe.Field, "pos": pe.Pos.String()})
			}
			return WrapExitError(ExitFailure, "invalid profile", err)
		}
	}

	if opts.Format == "json" {
		return out.Success(p)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "surface     %dx%d\n", p.Surface.Width, p.Surface.Height)
	fmt.Fprintf(w, "row height  %g\n", p.RowHeight())
	for _, name := range p.Types() {
		g := p.Fields[name]
		fmt.Fprintf(w, "%-11s %dx%d anchor (%d, %d)\n", name, g.Width, g.Height, g.AnchorX, g.AnchorY)
	}
	return nil
}
