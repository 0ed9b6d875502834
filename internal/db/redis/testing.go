package redis

import "github.com/redis/rueidis"

// NewStoreForTest wraps a pre-built client (usually rueidis/mock) without dialing.
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}
