// Package resolve collapses a conflict into a single outcome using a named strategy.
//
// Resolution is a pure function of the conflict, the strategy and the rule
// set: nothing here reads files (other than LoadRules) or touches history.
package resolve

import (
	"strings"
	"time"

	"github.com/steveyegge/docmerge/internal/merge"
	"github.com/steveyegge/docmerge/internal/types"
)

type options struct {
	now        func() time.Time
	localTime  *time.Time
	remoteTime *time.Time
	style      merge.Style
}

// Option configures a single resolution.
type Option func(*options)

// WithClock sets the clock used for Resolution.ResolvedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithTimestamps supplies side modification times for the newest strategy.
// They take precedence over times recorded on the conflict.
func WithTimestamps(local, remote time.Time) Option {
	return func(o *options) {
		if !local.IsZero() {
			o.localTime = &local
		}
		if !remote.IsZero() {
			o.remoteTime = &remote
		}
	}
}

// WithStyle selects the marker layout for the manual strategy.
func WithStyle(style merge.Style) Option {
	return func(o *options) {
		if style.IsValid() {
			o.style = style
		}
	}
}

// ResolveConflict applies strategy to c. rules is only consulted by the
// rules strategy and may be nil otherwise.
func ResolveConflict(c types.Conflict, strategy types.Strategy, rules *RuleSet, opts ...Option) (types.Resolution, error) {
	o := options{now: time.Now, style: merge.StyleMerge}
	for _, opt := range opts {
		opt(&o)
	}

	res := types.Resolution{
		ConflictID: c.ID,
		Strategy:   strategy,
	}

	switch strategy {
	case types.StrategyLocal:
		res.Side = types.SideLocal
	case types.StrategyRemote:
		res.Side = types.SideRemote
	case types.StrategyNewest:
		side, err := newestSide(c, o)
		if err != nil {
			return types.Resolution{}, err
		}
		res.Side = side
	case types.StrategyRulesBased:
		side, err := rules.Match(c)
		if err != nil {
			return types.Resolution{}, err
		}
		res.Side = side
	case types.StrategyManual:
		res.ResolvedLines = merge.MarkerBlock(c, o.style)
	default:
		return types.Resolution{}, &types.UnsupportedStrategyError{Name: string(strategy)}
	}

	switch res.Side {
	case types.SideLocal:
		res.ResolvedLines = copyLines(c.Local)
	case types.SideRemote:
		res.ResolvedLines = copyLines(c.Remote)
	}
	res.ResolvedAt = o.now()
	return res, nil
}

// newestSide picks the side with the later modification time. Equal times
// resolve to remote.
func newestSide(c types.Conflict, o options) (types.Side, error) {
	local, remote := o.localTime, o.remoteTime
	if local == nil {
		local = c.LocalModified
	}
	if remote == nil {
		remote = c.RemoteModified
	}
	if local == nil {
		return "", &types.MissingTimestampError{ConflictID: c.ID, Side: types.SideLocal}
	}
	if remote == nil {
		return "", &types.MissingTimestampError{ConflictID: c.ID, Side: types.SideRemote}
	}
	if local.After(*remote) {
		return types.SideLocal, nil
	}
	return types.SideRemote, nil
}

// ParseStrategy maps a user-supplied name to a Strategy.
// Accepts the canonical names plus "ours", "theirs" and "rules-based".
func ParseStrategy(name string) (types.Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "newest", "latest":
		return types.StrategyNewest, nil
	case "local", "ours":
		return types.StrategyLocal, nil
	case "remote", "theirs":
		return types.StrategyRemote, nil
	case "rules", "rules-based", "rules_based", "rulesbased":
		return types.StrategyRulesBased, nil
	case "manual":
		return types.StrategyManual, nil
	}
	return "", &types.UnsupportedStrategyError{Name: name}
}

func copyLines(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
