package hsm

import (
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/marmos91/hsmwatch/pkg/outcome"
)

// errNativeUnsupported signals that the native stat mechanism cannot report
// block counts on this platform and the external fallback should be tried.
var errNativeUnsupported = errors.New("native stat does not report block counts")

// statLinePattern matches the Size/Blocks fields in stat(1) human-readable
// output, e.g. "  Size: 1048576   Blocks: 2048   IO Block: 4096".
var statLinePattern = regexp.MustCompile(`Size: (\d+).*Blocks: (\d+)`)

// Probe extracts (size, allocated blocks) for path.
//
// The primary strategy is a native stat syscall. When the platform cannot
// report block counts natively, Probe falls back to invoking the stat(1)
// command-line utility and parsing its output; the first line containing
// both a Size and a Blocks field wins.
//
// Failures are returned as a *ProbeError inside the outcome so that callers
// can distinguish broken check infrastructure from an offline
// classification.
func Probe(path string) outcome.Outcome[ProbeResult] {
	res, err := statNative(path)
	if err == nil {
		return outcome.Success(res)
	}
	if !errors.Is(err, errNativeUnsupported) {
		return outcome.Failure[ProbeResult](&ProbeError{Path: path, Err: err})
	}

	res, err = statCommand(path)
	if err != nil {
		return outcome.Failure[ProbeResult](&ProbeError{Path: path, Err: err})
	}
	return outcome.Success(res)
}

// statCommand shells out to stat(1) and parses its human-readable output.
func statCommand(path string) (ProbeResult, error) {
	out, err := exec.Command("stat", path).CombinedOutput()
	if err != nil {
		return ProbeResult{}, fmt.Errorf("stat command failed: %w", err)
	}
	return parseStatOutput(string(out))
}

// parseStatOutput scans stat(1) output for the first line carrying both
// Size and Blocks fields.
func parseStatOutput(out string) (ProbeResult, error) {
	for _, line := range strings.Split(out, "\n") {
		m := statLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		size, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			continue
		}
		blocks, err := strconv.ParseUint(m[2], 10, 64)
		if err != nil {
			continue
		}

		return ProbeResult{Size: size, Blocks: blocks}, nil
	}

	return ProbeResult{}, errors.New("no parseable Size/Blocks line in stat output")
}
