package cache

import (
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"pageaudit/internal/model"
)

// Store keeps finished audits in memory for a fixed TTL. Stored audits are
// shared and must be treated as read-only.
type Store struct {
	c *gocache.Cache
}

// New creates a store whose entries expire after ttl. A non-positive ttl
// disables caching.
func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		return &Store{}
	}
	return &Store{c: gocache.New(ttl, 2*ttl)}
}

// Key identifies an audit request.
func Key(url, mode string, enrich bool) string {
	return strings.Join([]string{mode, strconv.FormatBool(enrich), url}, "|")
}

func (s *Store) Get(key string) (*model.Audit, bool) {
	if s == nil || s.c == nil {
		return nil, false
	}
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false
	}
	audit, ok := v.(*model.Audit)
	return audit, ok
}

func (s *Store) Set(key string, audit *model.Audit) {
	if s == nil || s.c == nil || audit == nil {
		return
	}
	s.c.SetDefault(key, audit)
}

func (s *Store) Len() int {
	if s == nil || s.c == nil {
		return 0
	}
	return s.c.ItemCount()
}

func (s *Store) Flush() {
	if s != nil && s.c != nil {
		s.c.Flush()
	}
}
