package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openmandriva/createmd/internal/models"
	"github.com/openmandriva/createmd/internal/repodata"
)

// NewRootCmd creates the createmd command
func NewRootCmd() *cobra.Command {
	var opts models.Options

	rootCmd := &cobra.Command{
		Use:   "createmd [flags] path...",
		Short: "RPM repository metadata creator",
		Long: `Createmd scans directories of RPM packages and generates the
repodata metadata set consumed by RPM based package managers:
primary, filelists, other, appstream and appstream-icons, indexed
by repomd.xml.

With --update, the existing metadata is patched against the current
directory contents instead of being regenerated from scratch.`,
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
			return runGeneration(&opts)
		},
	}

	rootCmd.Flags().BoolVarP(&opts.Update, "update", "u", false, "Update metadata instead of regenerating it")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "V", false, "Enable verbose logging")

	return rootCmd
}

// runGeneration processes every directory independently; a failure in
// one does not stop the others and does not change the exit code.
func runGeneration(opts *models.Options) error {
	for _, path := range opts.Paths {
		var err error
		if opts.Update {
			err = repodata.Update(path)
		} else {
			err = repodata.Create(path)
		}
		if err != nil {
			logrus.Errorf("Couldn't generate metadata for %s, ignoring: %v", path, err)
		}
	}
	return nil
}
