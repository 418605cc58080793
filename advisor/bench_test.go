package advisor

import (
	"context"
	"testing"
)

func BenchmarkParseLanguage(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = ParseLanguage("hi-IN")
	}
}

func BenchmarkWeather_Cached(b *testing.B) {
	gen := &fakeGenerator{respond: replyText("CURRENT: 30°C")}
	svc, _ := newTestService(b, gen)
	ctx := context.Background()
	loc := Location{Text: "Jaipur"}
	if _, err := svc.Weather(ctx, loc, Hindi); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = svc.Weather(ctx, loc, Hindi)
	}
}
