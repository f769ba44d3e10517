package dev

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRunnerSuccess(t *testing.T) {
	b := NewBuildRunner("sh", "-c", "exit 0")
	assert.NoError(t, b.Run(context.Background()))
}

func TestBuildRunnerFailureCarriesStderr(t *testing.T) {
	b := NewBuildRunner("sh", "-c", "echo 'syntax error in page.jsx' >&2; exit 1")

	err := b.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error in page.jsx")
}

func TestBuildRunnerStderrClearsAfterRead(t *testing.T) {
	b := NewBuildRunner("sh", "-c", "echo oops >&2; exit 1")
	_ = b.Run(context.Background())

	assert.Contains(t, b.Stderr(), "oops")
	assert.Empty(t, b.Stderr())
}

func TestBuildRunnerRebuildChainsFollowupOnSuccess(t *testing.T) {
	b := NewBuildRunner("sh", "-c", "exit 0")

	followed := false
	rebuild := b.Rebuild(func(ctx context.Context) error {
		followed = true
		return nil
	})

	require.NoError(t, rebuild(context.Background()))
	assert.True(t, followed)
}

func TestBuildRunnerRebuildSkipsFollowupOnFailure(t *testing.T) {
	b := NewBuildRunner("sh", "-c", "exit 3")

	rebuild := b.Rebuild(func(ctx context.Context) error {
		return errors.New("followup must not run")
	})

	err := rebuild(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "followup must not run")
}
