package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Zeygath/th-2024/internal/common"
	"github.com/Zeygath/th-2024/internal/platform/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestRiddleCreate(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRiddleRepo(sampleRiddles()...)
	svc := NewRiddleService(repo, newFakeStore(), fakeSigner{})

	riddle, err := svc.Create(ctx, RiddleRequest{
		Question:    "  What has roots nobody sees?  ",
		Answer:      "mountain",
		OrderNumber: 4,
		RiddleType:  strPtr("Outdoor Photo"),
	})
	require.NoError(t, err)
	assert.NotZero(t, riddle.ID)
	assert.True(t, riddle.IsActive, "riddles are active unless told otherwise")
	assert.Equal(t, "What has roots nobody sees?", riddle.Question)
	require.NotNil(t, riddle.RiddleType)
	assert.Equal(t, "outdoor-photo", *riddle.RiddleType)

	_, err = svc.Create(ctx, RiddleRequest{Question: "dup", Answer: "x", OrderNumber: 2})
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = svc.Create(ctx, RiddleRequest{Question: "no order", Answer: "x"})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestRiddleUpdate(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRiddleRepo(sampleRiddles()...)
	svc := NewRiddleService(repo, newFakeStore(), fakeSigner{})
	inactive := false

	riddle, err := svc.Update(ctx, 2, RiddleRequest{Question: "Bridge dweller", Answer: "troll", OrderNumber: 2, IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, riddle.IsActive)
	assert.Equal(t, "Bridge dweller", riddle.Question)

	_, err = svc.Update(ctx, 2, RiddleRequest{Question: "q", Answer: "a", OrderNumber: 3})
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = svc.Update(ctx, 99, RiddleRequest{Question: "q", Answer: "a", OrderNumber: 9})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRiddleDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewRiddleService(newFakeRiddleRepo(sampleRiddles()...), newFakeStore(), fakeSigner{})

	require.NoError(t, svc.Delete(ctx, 1))
	assert.ErrorIs(t, svc.Delete(ctx, 1), common.ErrNotFound)

	riddles, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, riddles, 2)
}

func TestRiddleUploadReferenceImage(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a public url", func(t *testing.T) {
		store := newFakeStore()
		svc := NewRiddleService(newFakeRiddleRepo(sampleRiddles()...), store, fakeSigner{})

		riddle, err := svc.UploadReferenceImage(ctx, 1, pngImage())
		require.NoError(t, err)
		require.NotNil(t, riddle.ReferenceImageURL)
		assert.Regexp(t, `^https://files\.test/riddle-images/1/[0-9a-f-]{36}\.png$`, *riddle.ReferenceImageURL)
		assert.Equal(t, 1, store.count())
	})

	t.Run("replacing removes the previous image", func(t *testing.T) {
		store := newFakeStore()
		svc := NewRiddleService(newFakeRiddleRepo(sampleRiddles()...), store, fakeSigner{})

		first, err := svc.UploadReferenceImage(ctx, 1, pngImage())
		require.NoError(t, err)
		second, err := svc.UploadReferenceImage(ctx, 1, pngImage())
		require.NoError(t, err)
		assert.NotEqual(t, *first.ReferenceImageURL, *second.ReferenceImageURL)

		assert.Equal(t, 1, store.count())
		oldKey := strings.TrimPrefix(*first.ReferenceImageURL, "https://files.test/")
		assert.Equal(t, []string{oldKey}, store.deleted)
	})

	t.Run("unknown riddle", func(t *testing.T) {
		store := newFakeStore()
		svc := NewRiddleService(newFakeRiddleRepo(), store, fakeSigner{})
		_, err := svc.UploadReferenceImage(ctx, 1, pngImage())
		assert.ErrorIs(t, err, common.ErrNotFound)
		assert.Equal(t, 0, store.count())
	})

	t.Run("upload failure", func(t *testing.T) {
		store := newFakeStore()
		store.putErr = errors.New("550 permission denied")
		svc := NewRiddleService(newFakeRiddleRepo(sampleRiddles()...), store, fakeSigner{})
		_, err := svc.UploadReferenceImage(ctx, 1, pngImage())
		assert.ErrorIs(t, err, common.ErrUploadFailed)
	})

	t.Run("missing image", func(t *testing.T) {
		svc := NewRiddleService(newFakeRiddleRepo(sampleRiddles()...), newFakeStore(), fakeSigner{})
		_, err := svc.UploadReferenceImage(ctx, 1, (*storage.Image)(nil))
		assert.ErrorIs(t, err, common.ErrBadRequest)
	})
}
