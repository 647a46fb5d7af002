package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storeManifest = `
jobs:
  - job: copr_build
    trigger: pull_request
    targets: [fedora-rawhide-x86_64]
`

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "forgeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestStoreLoadsOnCreation(t *testing.T) {
	path := writeManifest(t, t.TempDir(), storeManifest)

	s, err := NewStore(path, nil)
	require.NoError(t, err)
	require.NotNil(t, s.Active())
	assert.Len(t, s.Active().Jobs, 1)
	assert.Equal(t, path, s.Path())
}

func TestStoreCreationFailsOnBadManifest(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "jobs: [")
	_, err := NewStore(path, nil)
	assert.Error(t, err)
}

func TestStoreReloadSwapsManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, storeManifest)

	s, err := NewStore(path, nil)
	require.NoError(t, err)

	writeManifest(t, dir, storeManifest+`
  - job: koji_build
    trigger: commit
    dist_git_branches: [fedora-all]
`)
	require.NoError(t, s.Reload())
	assert.Len(t, s.Active().Jobs, 2)
}

func TestStoreWatchReloadsOnWriteBurst(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, storeManifest)

	s, err := NewStore(path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Watch(ctx)
	}()

	// Editor-style burst: several writes in quick succession must converge on
	// the last on-disk content.
	grown := storeManifest + `
  - job: koji_build
    trigger: commit
    dist_git_branches: [fedora-all]
`
	for i := 0; i < 3; i++ {
		writeManifest(t, dir, grown)
		time.Sleep(20 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return len(s.Active().Jobs) == 2
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestStoreFailedReloadKeepsLastGood(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, storeManifest)

	s, err := NewStore(path, nil)
	require.NoError(t, err)
	before := s.Active()

	writeManifest(t, dir, "jobs: [")
	require.Error(t, s.Reload())
	assert.Same(t, before, s.Active(), "bad reload must not replace the active manifest")
}
