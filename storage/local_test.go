package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPut(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir, "/uploads/")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "dispatches/42/../photos", "Pallet.JPG", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/dispatches/42/photos/"), url)
	assert.True(t, strings.HasSuffix(url, ".jpg"), url)

	stored := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(url, "/uploads/")))
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestLocalPutRejectsUnknownTypes(t *testing.T) {
	store, err := NewLocal(t.TempDir(), "/uploads")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "x", "run.sh", strings.NewReader("#!/bin/sh"))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Put(ctx, "x", "a.png", strings.NewReader(""))
	assert.ErrorIs(t, err, context.Canceled)
}
