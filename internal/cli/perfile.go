package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openmandriva/createmd/internal/models"
	"github.com/openmandriva/createmd/internal/repodata"
)

// NewPerFileCmd creates the createmd-perfile command
func NewPerFileCmd() *cobra.Command {
	var opts models.Options

	cmd := &cobra.Command{
		Use:   "createmd-perfile [flags] path...",
		Short: "RPM repository metadata creator",
		Long: `Createmd-perfile keeps one metadata shard per package under
repodata/perfile/ and only re-inspects packages that were added or
modified since the last run. The shards are merged and finalized
into the same repodata layout createmd produces.`,
		Args: cobra.MinimumNArgs(1),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			if opts.Verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Paths = args
			if opts.Origin == "" {
				return &models.MdError{Type: models.ErrInvalidConfig,
					Err: fmt.Errorf("origin must not be empty")}
			}
			for _, path := range opts.Paths {
				if err := repodata.PerFile(path, opts.Origin, opts.Cleanup); err != nil {
					logrus.Errorf("Couldn't generate metadata for %s, ignoring: %v", path, err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.Cleanup, "cleanup", "c", false, "Clean up (remove stale metadata files) only")
	cmd.Flags().StringVarP(&opts.Origin, "origin", "o", "openmandriva", "Origin identifier to be used (only while generating from scratch)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "V", false, "Enable verbose logging")

	return cmd
}
