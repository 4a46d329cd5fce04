package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryInitializeAndTeardown(t *testing.T) {
	reg := NewRegistry()
	local := NewLocalContext()
	session := NewFakeSession()
	slurm := NewSlurmContext("", session)
	reg.Add("local", local)
	reg.Add("cluster", slurm)

	require.NoError(t, reg.InitializeAll(context.Background()))

	got, ok := reg.Get("cluster")
	require.True(t, ok)
	assert.Equal(t, "slurm", got.Name())
	assert.Equal(t, "local", got.DataScheme())

	require.NoError(t, reg.TeardownAll(context.Background()))
}

func TestRegistryGetMissing(t *testing.T) {
	reg := NewRegistry()
	_, ok := reg.Get("nope")
	assert.False(t, ok)
}

func TestDrmaaContextSubmitAndStatus(t *testing.T) {
	session := NewFakeSession()
	session.TerminalState = StateDone
	ctx := NewGridengineContext("", session)
	require.NoError(t, ctx.Initialize(context.Background()))

	id, err := ctx.Submit(JobTemplate{RemoteCommand: "echo", Args: []string{"hi"}})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	state, err := ctx.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StateDone, state)

	require.NoError(t, ctx.DeleteTemplate(id))
	require.NoError(t, ctx.Teardown(context.Background()))
}

func TestDrmaaContextSubmitBeforeInitializeErrors(t *testing.T) {
	ctx := NewSlurmContext("", NewFakeSession())
	_, err := ctx.Submit(JobTemplate{RemoteCommand: "echo"})
	assert.Error(t, err)
}

func TestLocalContextIsNoop(t *testing.T) {
	c := NewLocalContext()
	assert.Equal(t, "local", c.Name())
	assert.Equal(t, "local", c.DataScheme())
	assert.NoError(t, c.Initialize(context.Background()))
	assert.NoError(t, c.Teardown(context.Background()))
}
