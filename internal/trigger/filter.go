package trigger

import (
	"fmt"
	"strings"

	"basegraph.app/trigger/internal/domain"
)

// filteredBranch is the only branch commit message exclusion applies to.
const filteredBranch = "master"

// IsBranchAllowed reports whether branch passes the allow-list. An empty
// allow-list admits every branch. Matching is exact and case-sensitive.
func (p Policy) IsBranchAllowed(branch string) bool {
	if p.AllowAllBranches || len(p.allowed) == 0 {
		return true
	}
	_, ok := p.allowed[branch]
	return ok
}

// ContainsExcludedMessage reports whether a push to master carries a commit
// whose message contains one of the exclusion filters.
func (p Policy) ContainsExcludedMessage(push *domain.PushEvent) bool {
	_, excluded := p.excludingFilter(push)
	return excluded
}

// excludingFilter returns the first filter that excludes push.
func (p Policy) excludingFilter(push *domain.PushEvent) (string, bool) {
	if !p.FilterRequests || p.CommitMessageFilterStrings == "" {
		return "", false
	}
	if !strings.EqualFold(push.Branch(), filteredBranch) {
		return "", false
	}

	for _, commit := range push.Commits {
		for _, filter := range p.filters {
			if strings.Contains(commit.Message, filter) {
				return filter, true
			}
		}
	}
	return "", false
}

// PushEligible applies the push trigger toggle, the branch allow-list and
// the commit message exclusion, in that order.
func (p Policy) PushEligible(push *domain.PushEvent) (bool, string) {
	if !p.TriggerOnPush {
		return false, "push trigger disabled"
	}
	if !p.IsBranchAllowed(push.Branch()) {
		return false, "branch not allowed"
	}
	if filter, excluded := p.excludingFilter(push); excluded {
		return false, fmt.Sprintf("commit message contains %q", filter)
	}
	return true, ""
}

// MergeRequestEligible only checks the merge request toggle. Branch and
// commit message filters apply to pushes alone.
func (p Policy) MergeRequestEligible(*domain.MergeRequestEvent) (bool, string) {
	if !p.TriggerOnMergeRequest {
		return false, "merge request trigger disabled"
	}
	return true, ""
}

// Eligible dispatches to the rule of the event's kind.
func (p Policy) Eligible(event domain.Event) (bool, string) {
	switch e := event.(type) {
	case *domain.PushEvent:
		return p.PushEligible(e)
	case *domain.MergeRequestEvent:
		return p.MergeRequestEligible(e)
	default:
		return false, "unsupported event"
	}
}
