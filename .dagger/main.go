// CI functions for versionsync.
//
// The unit suite needs no network. The integration suite talks to the live
// release controller and ghcr.io, so it is opt-in through VERSIONSYNC_INTEGRATION.
package main

import (
	"dagger/versionsync/internal/dagger"
)

const goImage = "golang:1.24"

type Versionsync struct{}

func goContainer(sourceDir *dagger.Directory) *dagger.Container {
	return dag.Container().
		From(goImage).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("versionsync-gomod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("versionsync-gobuild")).
		WithMountedDirectory("/src", sourceDir).
		WithWorkdir("/src")
}

// UnitTests runs every test tagged unit.
func (m *Versionsync) UnitTests(sourceDir *dagger.Directory) *dagger.Container {
	return goContainer(sourceDir).
		WithExec([]string{"go", "test", "-tags", "unit", "./pkg/...", "-v"})
}

// IntegrationTests runs the adapter tests in internal/adapters/ against the live endpoints.
// authToken is optional; without it the registry issues an anonymous token.
func (m *Versionsync) IntegrationTests(
	sourceDir *dagger.Directory,
	// +optional
	authToken *dagger.Secret,
) *dagger.Container {
	c := goContainer(sourceDir).WithEnvVariable("VERSIONSYNC_INTEGRATION", "1")
	if authToken != nil {
		c = c.WithSecretVariable("AUTH_TOKEN", authToken)
	}
	return c.WithExec([]string{"go", "test", "-tags", "integration", "./internal/adapters/...", "-v"})
}

// Lint runs golangci-lint on the main module.
func (m *Versionsync) Lint(sourceDir *dagger.Directory) *dagger.Container {
	c := dag.Container().
		From("golangci/golangci-lint:v1.62.0").
		WithMountedCache("/root/.cache/golangci-lint", dag.CacheVolume("golangci-lint"))

	return c.WithMountedDirectory("/src", sourceDir).
		WithWorkdir("/src").
		WithExec([]string{"golangci-lint", "run", "--build-tags", "unit", "--timeout", "10m", "./..."})
}
