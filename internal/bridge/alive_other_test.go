//go:build !unix

package bridge

func processAlive(_ int) bool {
	return false
}
