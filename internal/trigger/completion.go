package trigger

import (
	"fmt"
	"strings"
)

// BuildResult is the final state reported by the executor.
type BuildResult string

const (
	BuildSuccess  BuildResult = "SUCCESS"
	BuildUnstable BuildResult = "UNSTABLE"
	BuildFailure  BuildResult = "FAILURE"
	BuildNotBuilt BuildResult = "NOT_BUILT"
	BuildAborted  BuildResult = "ABORTED"
)

// ParseBuildResult accepts the result names case-insensitively.
func ParseBuildResult(s string) (BuildResult, error) {
	r := BuildResult(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case BuildSuccess, BuildUnstable, BuildFailure, BuildNotBuilt, BuildAborted:
		return r, nil
	}
	return "", fmt.Errorf("unknown build result %q", s)
}

// Description is the human label used in merge request notes.
func (r BuildResult) Description() string {
	switch r {
	case BuildSuccess:
		return "Success"
	case BuildUnstable:
		return "Unstable"
	case BuildFailure:
		return "Failed"
	case BuildNotBuilt:
		return "Not built"
	case BuildAborted:
		return "Aborted"
	default:
		return string(r)
	}
}

// MergeRequestNote renders the status comment posted when a merge request build finishes.
func MergeRequestNote(serverName string, result BuildResult, buildURL string) string {
	glyph := ":anguished:"
	if result == BuildSuccess {
		glyph = ":white_check_mark:"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s Build %s", glyph, serverName, result.Description())
	fmt.Fprintf(&b, "\n\nResults available at: [%s](%s)", serverName, buildURL)
	return b.String()
}
