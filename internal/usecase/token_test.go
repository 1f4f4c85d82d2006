package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRegisterIsIdempotent(t *testing.T) {
	store := &fakeStore{}
	uc := NewTokenUsecase(store, zaptest.NewLogger(t), nil)

	added, count, err := uc.Register(context.Background(), "ExponentPushToken[x]")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, 1, count)

	added, count, err = uc.Register(context.Background(), "ExponentPushToken[x]")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"ExponentPushToken[x]"}, store.tokens)
}

func TestRegisterStoreError(t *testing.T) {
	uc := NewTokenUsecase(&fakeStore{err: errors.New("read-only file system")}, zaptest.NewLogger(t), nil)

	_, _, err := uc.Register(context.Background(), "tok")
	assert.Error(t, err)
}
