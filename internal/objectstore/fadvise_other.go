//go:build !linux

package objectstore

import "os"

func adviseSequential(*os.File) {}
