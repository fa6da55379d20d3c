// Package versions reduces a release feed to the highest version of each minor release.
package versions

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"github.com/rh-ecosystem-edge/versionsync/pkg/logging"
	"github.com/rh-ecosystem-edge/versionsync/pkg/syncerr"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// VersionMap maps a minor key ("4.15") to the highest version seen for it.
type VersionMap map[string]*semver.Version

// Strings returns the map with versions in their original notation.
func (m VersionMap) Strings() map[string]string {
	out := make(map[string]string, len(m))
	for minor, v := range m {
		out[minor] = v.Original()
	}
	return out
}

// Minors returns the keys in ascending version order.
func (m VersionMap) Minors() []string {
	keys := make([]string, 0, len(m))
	for minor := range m {
		keys = append(keys, minor)
	}
	return SortMinors(keys)
}

// MinorKey returns the "{major}.{minor}" grouping key of v.
func MinorKey(v *semver.Version) string {
	return fmt.Sprintf("%d.%d", v.Major(), v.Minor())
}

// IgnoreRule excludes minor keys matching a configured pattern in full.
type IgnoreRule struct {
	pattern string
	re      *regexp.Regexp
}

// NewIgnoreRule compiles pattern. The match is anchored at both ends, so "4\.1"
// excludes "4.1" but not "4.12".
func NewIgnoreRule(pattern string) (*IgnoreRule, error) {
	// Compiled alone first so an unbalanced pattern cannot escape the anchoring group.
	if _, err := regexp.Compile(pattern); err != nil {
		return nil, fmt.Errorf("%w: invalid ignore pattern %q: %v", syncerr.ErrConfig, pattern, err)
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ignore pattern %q: %v", syncerr.ErrConfig, pattern, err)
	}
	return &IgnoreRule{pattern: pattern, re: re}, nil
}

// Matches reports whether minor is excluded.
func (r *IgnoreRule) Matches(minor string) bool {
	return r.re.MatchString(minor)
}

func (r *IgnoreRule) String() string {
	return r.pattern
}

// Resolver turns raw release identifiers into a VersionMap.
type Resolver struct {
	ignore *IgnoreRule
	logger *otelzap.Logger
}

// NewResolver creates a Resolver excluding minors that match ignorePattern.
func NewResolver(ignorePattern string, logger *otelzap.Logger) (*Resolver, error) {
	rule, err := NewIgnoreRule(ignorePattern)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Resolver{ignore: rule, logger: logger}, nil
}

// Resolve keeps the highest version of every minor release not excluded by the
// ignore rule. One unparsable entry fails the whole call. The result is built
// from scratch on each call.
func (r *Resolver) Resolve(raw []string) (VersionMap, error) {
	result := make(VersionMap)
	for _, s := range raw {
		v, err := semver.StrictNewVersion(s)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid version %q: %v", syncerr.ErrParse, s, err)
		}

		minor := MinorKey(v)
		if r.ignore.Matches(minor) {
			r.logger.Debug("Version ignored", zap.String("version", s), zap.String("pattern", r.ignore.String()))
			continue
		}

		if best, ok := result[minor]; ok && !v.GreaterThan(best) {
			continue
		}
		result[minor] = v
	}
	return result, nil
}

// Resolve is the one-shot form of NewResolver followed by Resolver.Resolve.
func Resolve(raw []string, ignorePattern string, logger *otelzap.Logger) (VersionMap, error) {
	r, err := NewResolver(ignorePattern, logger)
	if err != nil {
		return nil, err
	}
	return r.Resolve(raw)
}
