//go:build !integration

package redis

import (
	"context"
	"strconv"
	"time"
)

// mockClient is an in-memory RedisClient; a nil Func falls back to the map.
type mockClient struct {
	data map[string]string

	SetNXFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	IncrFunc  func(ctx context.Context, key string) (int64, error)

	expired []string
}

var _ RedisClient = (*mockClient)(nil)

func newMockClient() *mockClient { return &mockClient{data: map[string]string{}} }

func (m *mockClient) Ping(ctx context.Context) error { return nil }

func (m *mockClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.data[key] = toString(value)
	return nil
}

func (m *mockClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if m.SetNXFunc != nil {
		return m.SetNXFunc(ctx, key, value, expiration)
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = toString(value)
	return true, nil
}

func (m *mockClient) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (m *mockClient) Incr(ctx context.Context, key string) (int64, error) {
	if m.IncrFunc != nil {
		return m.IncrFunc(ctx, key)
	}
	n, _ := strconv.ParseInt(m.data[key], 10, 64)
	n++
	m.data[key] = toString(n)
	return n, nil
}

func (m *mockClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	m.expired = append(m.expired, key)
	return nil
}

func (m *mockClient) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *mockClient) DelIfEquals(ctx context.Context, key, value string) (bool, error) {
	if m.data[key] != value {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

func (m *mockClient) Close() error { return nil }

func toString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	}
	return ""
}
