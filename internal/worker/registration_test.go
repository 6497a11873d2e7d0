package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistration_Register(t *testing.T) {
	w, storage, _ := newTestWorker(t, "cm-cache-v2")
	ctx := context.Background()
	_, err := storage.Open(ctx, "cm-cache-v1")
	require.NoError(t, err)

	reg := NewRegistration(w)
	assert.Equal(t, StateParsed, reg.State())
	assert.Nil(t, reg.Controller())

	require.NoError(t, reg.Register(ctx))
	assert.Equal(t, StateActivated, reg.State())
	assert.Same(t, w, reg.Controller())

	names, err := storage.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cm-cache-v2"}, names)

	// registering again keeps the active worker without reinstalling
	require.NoError(t, reg.Register(ctx))
	assert.Equal(t, StateActivated, reg.State())
}

func TestRegistration_FailedInstallLeavesClientsUncontrolled(t *testing.T) {
	w, storage, network := newTestWorker(t, "cm-cache-v1")
	network.setOffline(true)

	reg := NewRegistration(w)
	err := reg.Register(context.Background())
	require.Error(t, err)

	assert.Equal(t, StateRedundant, reg.State())
	assert.Nil(t, reg.Controller())
	assert.ErrorIs(t, reg.Err(), errOffline)

	names, err := storage.Names(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestRegistration_RetryOnLoad(t *testing.T) {
	w, _, network := newTestWorker(t, "cm-cache-v1")
	network.setOffline(true)

	reg := NewRegistration(w)
	require.Error(t, reg.Register(context.Background()))

	network.setOffline(false)
	assert.True(t, reg.RetryOnLoad(context.Background()))
	reg.Wait()

	assert.Equal(t, StateActivated, reg.State())
	assert.NotNil(t, reg.Controller())
	assert.NoError(t, reg.Err())

	assert.False(t, reg.RetryOnLoad(context.Background()), "active worker is not reinstalled")
}

func TestRegistration_RetryOnLoadSkipsWhileInstalling(t *testing.T) {
	w, _, network := newTestWorker(t, "cm-cache-v1")
	gate := network.block()
	reg := NewRegistration(w)

	assert.True(t, reg.RetryOnLoad(context.Background()))
	require.Eventually(t, func() bool {
		return reg.State() == StateInstalling
	}, time.Second, 5*time.Millisecond)

	assert.False(t, reg.RetryOnLoad(context.Background()))
	assert.ErrorIs(t, reg.Register(context.Background()), ErrRegistrationInProgress)

	close(gate)
	reg.Wait()
	assert.Equal(t, StateActivated, reg.State())
}

func TestRegistration_RetryOnLoadDetachedFromRequest(t *testing.T) {
	w, _, _ := newTestWorker(t, "cm-cache-v1")
	reg := NewRegistration(w)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.True(t, reg.RetryOnLoad(ctx))
	reg.Wait()
	assert.Equal(t, StateActivated, reg.State())
}
