//go:build !windows

package oci

import (
	"github.com/ebitengine/purego"
)

// loadOCILibrary loads the client library on Unix-like systems
func loadOCILibrary(libPath string) (uintptr, error) {
	return purego.Dlopen(libPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}
