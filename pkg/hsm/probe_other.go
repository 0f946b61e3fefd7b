//go:build !unix

package hsm

// statNative is unavailable on platforms without st_blocks; Probe falls
// back to the stat(1) utility.
func statNative(path string) (ProbeResult, error) {
	return ProbeResult{}, errNativeUnsupported
}
