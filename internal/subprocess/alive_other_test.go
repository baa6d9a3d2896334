//go:build !unix

package subprocess

func processAlive(_ int) bool {
	return false
}
