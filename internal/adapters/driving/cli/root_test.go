package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	modelfile "github.com/docvault-labs/docvault-core/internal/adapters/driven/model/file"
)

func TestExecute_ShutdownRunsWhenCommandFails(t *testing.T) {
	store, err := modelfile.NewModelStore(t.TempDir())
	require.NoError(t, err)
	modelStore = store
	defer func() { modelStore = nil }()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err = Execute()

	assert.Error(t, err)
	// Cobra skips post-run hooks on a failed command; the deferred
	// shutdown must still have closed and cleared the store.
	assert.Nil(t, modelStore)
}

func TestShutdown_SecondCallIsNoOp(t *testing.T) {
	store, err := modelfile.NewModelStore(t.TempDir())
	require.NoError(t, err)
	modelStore = store

	shutdown()
	assert.Nil(t, modelStore)

	// Closing an already-closed watcher would panic; a second call
	// must not reach it.
	shutdown()
}
