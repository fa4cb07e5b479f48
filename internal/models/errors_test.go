package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpstream(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Upstream("embed", nil))
	})

	t.Run("plain error is tagged", func(t *testing.T) {
		err := Upstream("embed", errors.New("connection refused"))
		assert.ErrorIs(t, err, ErrUpstream)
		assert.Contains(t, err.Error(), "connection refused")
		assert.Contains(t, err.Error(), "embed")
	})

	t.Run("schema missing keeps its kind", func(t *testing.T) {
		err := Upstream("store", fmt.Errorf("insert: %w", ErrSchemaMissing))
		assert.ErrorIs(t, err, ErrSchemaMissing)
		assert.NotErrorIs(t, err, ErrUpstream)
	})

	t.Run("already tagged is not doubled", func(t *testing.T) {
		err := Upstream("ask", Upstream("search", errors.New("timeout")))
		assert.ErrorIs(t, err, ErrUpstream)
		assert.Equal(t, "ask: search: upstream failure: timeout", err.Error())
	})
}
