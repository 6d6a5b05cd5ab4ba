package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/openmandriva/createmd/internal/cli"
)

func main() {
	// Setup logging format
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	perfileCmd := cli.NewPerFileCmd()
	if err := perfileCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
