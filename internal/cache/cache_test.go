package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pageaudit/internal/model"
)

func TestStore(t *testing.T) {
	s := New(time.Minute)
	key := Key("https://a.test/", "fetch", true)

	_, ok := s.Get(key)
	assert.False(t, ok)

	audit := &model.Audit{URL: "https://a.test/", Title: "A"}
	s.Set(key, audit)

	got, ok := s.Get(key)
	require.True(t, ok)
	assert.Same(t, audit, got)
	assert.Equal(t, 1, s.Len())

	_, ok = s.Get(Key("https://a.test/", "fetch", false))
	assert.False(t, ok, "enrichment is part of the key")

	s.Flush()
	assert.Equal(t, 0, s.Len())
}

func TestStoreExpiry(t *testing.T) {
	s := New(20 * time.Millisecond)
	s.Set("k", &model.Audit{})
	time.Sleep(40 * time.Millisecond)

	_, ok := s.Get("k")
	assert.False(t, ok)
}

func TestStoreDisabled(t *testing.T) {
	for _, s := range []*Store{New(0), nil} {
		s.Set("k", &model.Audit{})
		_, ok := s.Get("k")
		assert.False(t, ok)
		assert.Zero(t, s.Len())
	}
}
