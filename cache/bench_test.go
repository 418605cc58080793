package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// BenchmarkTTLCache_Get_Hit measures cache hit performance.
func BenchmarkTTLCache_Get_Hit(b *testing.B) {
	c, _ := New(NewMemoryStore(0))
	ctx := context.Background()
	c.Set(ctx, "key", map[string]string{"text": "value"}, time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Get(ctx, "key")
	}
}

// BenchmarkTTLCache_Get_Miss measures cache miss performance.
func BenchmarkTTLCache_Get_Miss(b *testing.B) {
	c, _ := New(NewMemoryStore(0))
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Get(ctx, "missing")
	}
}

// BenchmarkTTLCache_Set measures write performance.
func BenchmarkTTLCache_Set(b *testing.B) {
	c, _ := New(NewMemoryStore(0))
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Set(ctx, fmt.Sprintf("key-%d", i%1000), "value", time.Hour)
	}
}

// BenchmarkKeyBuilder_Key measures key derivation.
func BenchmarkKeyBuilder_Key(b *testing.B) {
	kb := NewKeyBuilder("v2")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = kb.Key("weather_live", Truncate("Village Rampur, Tehsil Sadar, Lucknow", 30), "hi")
	}
}
