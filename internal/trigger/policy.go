package trigger

import (
	"slices"
	"strings"
)

// Settings is the persisted shape of a trigger policy.
type Settings struct {
	TriggerOnPush                 bool     `json:"trigger_on_push"`
	TriggerOnMergeRequest         bool     `json:"trigger_on_merge_request"`
	TriggerOpenMergeRequestOnPush bool     `json:"trigger_open_merge_request_on_push"`
	SetBuildDescription           bool     `json:"set_build_description"`
	AddNoteOnMergeRequest         bool     `json:"add_note_on_merge_request"`
	AllowAllBranches              bool     `json:"allow_all_branches"`
	AllowedBranches               []string `json:"allowed_branches"`
	FilterRequests                bool     `json:"filter_requests"`
	CommitMessageFilterStrings    string   `json:"commit_message_filter_strings"`
}

// DefaultSettings mirrors what a freshly configured trigger starts with.
func DefaultSettings() Settings {
	return Settings{
		TriggerOnPush:                 true,
		TriggerOnMergeRequest:         true,
		TriggerOpenMergeRequestOnPush: true,
		SetBuildDescription:           true,
		AddNoteOnMergeRequest:         true,
	}
}

// Policy is the evaluated form of Settings. Build one with NewPolicy and
// replace it wholesale on reconfiguration.
type Policy struct {
	Settings

	allowed map[string]struct{}
	filters []string
}

func NewPolicy(s Settings) Policy {
	s.AllowedBranches = slices.Clone(s.AllowedBranches)

	allowed := make(map[string]struct{}, len(s.AllowedBranches))
	for _, b := range s.AllowedBranches {
		allowed[b] = struct{}{}
	}

	return Policy{
		Settings: s,
		allowed:  allowed,
		filters:  splitFilters(s.CommitMessageFilterStrings),
	}
}

// Filters returns the commit message exclusion tokens in configured order.
func (p Policy) Filters() []string {
	return slices.Clone(p.filters)
}

// splitFilters splits the filter blob on tab, CR and LF. Empty tokens are
// dropped: an empty token would match every commit message.
func splitFilters(blob string) []string {
	fields := strings.FieldsFunc(blob, func(r rune) bool {
		return r == '\t' || r == '\r' || r == '\n'
	})
	return fields
}
