//go:build !linux

package utils

import "os"

func adviseSequential(*os.File) {}
