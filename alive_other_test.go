//go:build !unix

package sidecar

func processAlive(_ int) bool {
	return false
}
