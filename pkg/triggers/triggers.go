// Package triggers turns detected changes into CI test commands.
package triggers

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/moby/sys/atomicwriter"
	"github.com/rh-ecosystem-edge/versionsync/pkg/logging"
	"github.com/rh-ecosystem-edge/versionsync/pkg/versions"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// MasterVersion is the GPU operator version built from the main branch.
const MasterVersion = "master"

const commandTemplate = "/test %s-stable-nvidia-gpu-operator-e2e-%s"

// Changes describes what a run updated.
type Changes struct {
	DigestChanged bool
	// OCP lists the minors whose version changed.
	OCP []string
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return !c.DigestChanged && len(c.OCP) == 0
}

// Test is one OpenShift minor / GPU operator version combination.
type Test struct {
	OCP string
	GPU string
}

// Command renders the CI command for t.
func (t Test) Command() string {
	return fmt.Sprintf(commandTemplate, t.OCP, Suffix(t.GPU))
}

// Suffix maps a GPU operator version to its job suffix: "24.9" becomes "24-9-x".
func Suffix(gpu string) string {
	if gpu == MasterVersion {
		return gpu
	}
	return strings.ReplaceAll(gpu, ".", "-") + "-x"
}

// Matrix returns the tests to run for changes. A new bundle digest is tested
// against the newest and oldest tracked OpenShift minor; a new OpenShift
// version is tested against every GPU operator version.
func Matrix(ctx context.Context, changes Changes, ocpReleases, gpuReleases []string, logger *otelzap.Logger) ([]Test, error) {
	var tests []Test

	if changes.DigestChanged && len(ocpReleases) > 0 {
		latest, err := versions.Latest(ocpReleases, 1)
		if err != nil {
			return nil, err
		}
		earliest, err := versions.Earliest(ocpReleases, 1)
		if err != nil {
			return nil, err
		}
		for _, ocp := range append(latest, earliest...) {
			tests = append(tests, Test{OCP: ocp, GPU: MasterVersion})
		}
	}

	for _, ocp := range changes.OCP {
		if !slices.Contains(ocpReleases, ocp) {
			logging.C(ctx, logger).Warn("Changed OpenShift version is not a tracked release",
				zap.String("ocp", ocp),
				zap.Strings("releases", ocpReleases))
		}
		for _, gpu := range gpuReleases {
			tests = append(tests, Test{OCP: ocp, GPU: gpu})
		}
	}

	return tests, nil
}

// Commands renders tests as sorted, deduplicated commands.
func Commands(tests []Test) []string {
	commands := make([]string, 0, len(tests))
	for _, t := range tests {
		commands = append(commands, t.Command())
	}
	slices.Sort(commands)
	return slices.Compact(commands)
}

// Save writes one command per line to path, replacing any previous content.
func Save(path string, commands []string) error {
	var b strings.Builder
	for _, c := range commands {
		b.WriteString(c)
		b.WriteString("\n")
	}
	if err := atomicwriter.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing test commands to %s: %w", path, err)
	}
	return nil
}
