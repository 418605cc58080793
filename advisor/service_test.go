package advisor

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kisanmitra/agriadvisor/cache"
	"github.com/kisanmitra/agriadvisor/coordinator"
)

type fakeGenerator struct {
	mu       sync.Mutex
	calls    int
	requests []*GenerateRequest
	respond  func(req *GenerateRequest) (*GenerateResponse, error)
}

func (f *fakeGenerator) Generate(_ context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	f.mu.Lock()
	f.calls++
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.respond(req)
}

func (f *fakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeGenerator) Last() *GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func replyText(text string) func(*GenerateRequest) (*GenerateResponse, error) {
	return func(*GenerateRequest) (*GenerateResponse, error) {
		return &GenerateResponse{Text: text}, nil
	}
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestService(t testing.TB, gen *fakeGenerator) (*Service, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Date(2025, 6, 1, 6, 30, 0, 0, time.UTC)}
	ttl, err := cache.New(cache.NewMemoryStore(0), cache.WithClock(clock.Now))
	if err != nil {
		t.Fatal(err)
	}
	coord, err := coordinator.New(ttl,
		coordinator.WithClock(clock.Now),
		coordinator.WithRetry(2, time.Millisecond),
	)
	if err != nil {
		t.Fatal(err)
	}
	svc, err := NewService(gen, coord)
	if err != nil {
		t.Fatal(err)
	}
	return svc, clock
}

func TestNewService_Validation(t *testing.T) {
	if _, err := NewService(nil, nil); !errors.Is(err, ErrNilGenerator) {
		t.Errorf("NewService(nil, nil) error = %v, want ErrNilGenerator", err)
	}
	if _, err := NewService(&fakeGenerator{}, nil); !errors.Is(err, ErrNilCoordinator) {
		t.Errorf("NewService(gen, nil) error = %v, want ErrNilCoordinator", err)
	}
}

func TestResolveLocation_CachesAndRemembers(t *testing.T) {
	gen := &fakeGenerator{respond: replyText(`Here you go:
{"short": "Lucknow", "full": "Chinhat, Lucknow Sadar, Lucknow, Uttar Pradesh", "district": "Lucknow", "state": "Uttar Pradesh"}`)}
	svc, clock := newTestService(t, gen)
	ctx := context.Background()

	p, err := svc.ResolveLocation(ctx, 26.846712, 80.946201)
	if err != nil {
		t.Fatalf("ResolveLocation() error = %v", err)
	}
	if p.District != "Lucknow" || p.State != "Uttar Pradesh" {
		t.Errorf("ResolveLocation() = %+v", p)
	}
	if !gen.Last().GoogleSearch {
		t.Error("location lookup should use search grounding")
	}

	// Same coordinates after rounding: served from the cache.
	if _, err := svc.ResolveLocation(ctx, 26.84668, 80.94624); err != nil {
		t.Fatalf("second ResolveLocation() error = %v", err)
	}
	if got := gen.Calls(); got != 1 {
		t.Errorf("generator calls = %d, want 1", got)
	}

	remembered, ok := svc.RememberedPlace(ctx)
	if !ok || remembered.Short != "Lucknow" || remembered.Full != p.Full {
		t.Errorf("RememberedPlace() = (%+v, %v)", remembered, ok)
	}

	clock.Advance(25 * time.Hour)
	if _, ok := svc.RememberedPlace(ctx); ok {
		t.Error("RememberedPlace() after 25h: want miss")
	}
}

func TestResolveLocation_NoJSONIsNotCached(t *testing.T) {
	gen := &fakeGenerator{respond: replyText("I could not find that place.")}
	svc, _ := newTestService(t, gen)

	for i := 0; i < 2; i++ {
		if _, err := svc.ResolveLocation(context.Background(), 10, 20); !errors.Is(err, ErrLocationNotFound) {
			t.Fatalf("ResolveLocation() error = %v, want ErrLocationNotFound", err)
		}
	}
	if got := gen.Calls(); got != 2 {
		t.Errorf("generator calls = %d, want 2", got)
	}
}

func TestResolveLocation_InvalidCoordinates(t *testing.T) {
	svc, _ := newTestService(t, &fakeGenerator{})
	if _, err := svc.ResolveLocation(context.Background(), 91, 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ResolveLocation() error = %v, want ErrInvalidInput", err)
	}
}

func TestWeather(t *testing.T) {
	gen := &fakeGenerator{respond: func(req *GenerateRequest) (*GenerateResponse, error) {
		return &GenerateResponse{
			Text:    "CURRENT: 34 °C, humid. AGRI-ADVICE: irrigate in the evening.",
			Sources: []Source{{Title: "IMD", URI: "https://mausam.imd.gov.in"}},
		}, nil
	}}
	svc, _ := newTestService(t, gen)
	ctx := context.Background()

	w, err := svc.Weather(ctx, Location{Text: "Jaipur"}, Hindi)
	if err != nil {
		t.Fatalf("Weather() error = %v", err)
	}
	if w.Temp != "34" {
		t.Errorf("Temp = %q, want %q", w.Temp, "34")
	}
	if len(w.Sources) != 1 {
		t.Errorf("Sources = %+v", w.Sources)
	}
	if !strings.Contains(gen.Last().Parts[0].Text, "in Hindi") {
		t.Errorf("prompt = %q, want Hindi advisory", gen.Last().Parts[0].Text)
	}

	if _, err := svc.Weather(ctx, Location{Text: "  jaipur "}, Hindi); err != nil {
		t.Fatal(err)
	}
	if got := gen.Calls(); got != 1 {
		t.Errorf("generator calls after equivalent query = %d, want 1", got)
	}

	if _, err := svc.Weather(ctx, Location{Text: "Jaipur"}, English); err != nil {
		t.Fatal(err)
	}
	if got := gen.Calls(); got != 2 {
		t.Errorf("generator calls after language change = %d, want 2", got)
	}
}

func TestWeather_NoTemperature(t *testing.T) {
	svc, _ := newTestService(t, &fakeGenerator{respond: replyText("Clear skies.")})
	lat, lng := 26.9124, 75.7873

	w, err := svc.Weather(context.Background(), Location{Lat: &lat, Lng: &lng}, English)
	if err != nil {
		t.Fatalf("Weather() error = %v", err)
	}
	if w.Temp != "--" {
		t.Errorf("Temp = %q, want %q", w.Temp, "--")
	}
}

func TestWeather_RequiresLocation(t *testing.T) {
	svc, _ := newTestService(t, &fakeGenerator{})
	if _, err := svc.Weather(context.Background(), Location{}, English); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Weather() error = %v, want ErrInvalidInput", err)
	}
}

func TestDroneServices(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    int
		wantErr error
	}{
		{
			name: "array in prose",
			text: "Providers:\n```json\n[{\"name\": \"Kisan Drone CHC\", \"contact\": 9876543210, \"type\": \"CHC\", \"address\": \"Kota\"}]\n```",
			want: 1,
		},
		{name: "no array", text: "none found", want: 0},
		{name: "missing name", text: `[{"contact": "123"}]`, wantErr: ErrInvalidResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, &fakeGenerator{respond: replyText(tt.text)})
			got, err := svc.DroneServices(context.Background(), "Kota, Rajasthan", Rajasthani)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("DroneServices() error = %v, want %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("len(DroneServices()) = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestDroneServices_ContactNumberBecomesString(t *testing.T) {
	svc, _ := newTestService(t, &fakeGenerator{respond: replyText(`[{"name": "A", "contact": 9876543210}]`)})
	got, err := svc.DroneServices(context.Background(), "Kota", English)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Contact != "9876543210" {
		t.Errorf("Contact = %q, want %q", got[0].Contact, "9876543210")
	}
}

func TestDiagnoseCrop(t *testing.T) {
	gen := &fakeGenerator{respond: replyText(`{
		"problemName": "Leaf rust",
		"diagnosis": "Orange pustules on wheat leaves",
		"solutionOrganic": "Neem oil spray",
		"solutionChemical": ["Propiconazole 25 EC"],
		"estimatedCostRange": 800,
		"preventionTips": "Use resistant varieties"
	}`)}
	svc, _ := newTestService(t, gen)

	d, err := svc.DiagnoseCrop(context.Background(), Blob{Data: "aGVsbG8="}, Hindi)
	if err != nil {
		t.Fatalf("DiagnoseCrop() error = %v", err)
	}
	if d.ProblemName != "Leaf rust" || len(d.PreventionTips) != 1 || d.EstimatedCostRange != "800" {
		t.Errorf("DiagnoseCrop() = %+v", d)
	}

	req := gen.Last()
	if req.Parts[0].InlineData == nil || req.Parts[0].InlineData.MIMEType != "image/jpeg" {
		t.Errorf("image part = %+v, want default image/jpeg", req.Parts[0].InlineData)
	}
	if req.ResponseMIMEType != "application/json" {
		t.Errorf("ResponseMIMEType = %q", req.ResponseMIMEType)
	}
}

func TestDiagnoseCrop_Errors(t *testing.T) {
	svc, _ := newTestService(t, &fakeGenerator{respond: replyText("")})
	ctx := context.Background()

	if _, err := svc.DiagnoseCrop(ctx, Blob{}, English); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("DiagnoseCrop(no image) error = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.DiagnoseCrop(ctx, Blob{Data: "x"}, English); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("DiagnoseCrop(empty reply) error = %v, want ErrEmptyResponse", err)
	}
}

func TestParseVoiceExpense(t *testing.T) {
	tests := []struct {
		reply    string
		amount   float64
		category ExpenseCategory
		wantErr  error
	}{
		{`{"amount": 1200, "category": "Seeds", "description": "wheat seed"}`, 1200, CategorySeeds, nil},
		{`{"amount": "₹1,500", "category": "labour", "description": "harvest"}`, 1500, CategoryLabor, nil},
		{`{"amount": 300, "category": "tractor rent"}`, 300, CategoryOther, nil},
		{`{"amount": "lots"}`, 0, "", ErrInvalidResponse},
		{`{"category": "Seeds"}`, 0, "", ErrInvalidResponse},
	}
	for _, tt := range tests {
		svc, _ := newTestService(t, &fakeGenerator{respond: replyText(tt.reply)})
		got, err := svc.ParseVoiceExpense(context.Background(), "paanch sau ka beej", Hindi)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ParseVoiceExpense(%s) error = %v, want %v", tt.reply, err, tt.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		if got.Amount != tt.amount || got.Category != tt.category {
			t.Errorf("ParseVoiceExpense(%s) = %+v, want amount %v category %s", tt.reply, got, tt.amount, tt.category)
		}
		if got.Description == "" {
			t.Errorf("ParseVoiceExpense(%s) description is empty", tt.reply)
		}
	}
}

func TestNormalizeCategory(t *testing.T) {
	tests := map[string]ExpenseCategory{
		"Seeds":       CategorySeeds,
		"seed":        CategorySeeds,
		"FERTILIZERS": CategoryFertilizers,
		"pesticide":   CategoryPesticides,
		"Labor":       CategoryLabor,
		"labour":      CategoryLabor,
		"diesel":      CategoryOther,
		"":            CategoryOther,
	}
	for in, want := range tests {
		if got := NormalizeCategory(in); got != want {
			t.Errorf("NormalizeCategory(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFarmingAdvice_NotCached(t *testing.T) {
	gen := &fakeGenerator{respond: replyText("Sow mustard in October.")}
	svc, _ := newTestService(t, gen)
	profile := &FarmerProfile{State: "Rajasthan", LandSize: "5", CropPreference: []string{"Mustard"}}

	for i := 0; i < 2; i++ {
		got, err := svc.FarmingAdvice(context.Background(), "When to sow mustard?", profile, English)
		if err != nil || got != "Sow mustard in October." {
			t.Fatalf("FarmingAdvice() = (%q, %v)", got, err)
		}
	}
	if got := gen.Calls(); got != 2 {
		t.Errorf("generator calls = %d, want 2", got)
	}
	if !strings.Contains(gen.Last().Parts[0].Text, `"state":"Rajasthan"`) {
		t.Errorf("prompt = %q, want profile JSON", gen.Last().Parts[0].Text)
	}
}

func TestSchemeAdvice_CachedPerProfile(t *testing.T) {
	gen := &fakeGenerator{respond: replyText("PM-KISAN: Rs 6000 per year.")}
	svc, _ := newTestService(t, gen)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.SchemeAdvice(ctx, FarmerProfile{State: "Maharashtra", LandSize: "2"}, Marathi); err != nil {
			t.Fatal(err)
		}
	}
	if got := gen.Calls(); got != 1 {
		t.Errorf("generator calls = %d, want 1", got)
	}
	if _, err := svc.SchemeAdvice(ctx, FarmerProfile{}, Marathi); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("SchemeAdvice(no state) error = %v, want ErrInvalidInput", err)
	}
}

func TestSchemeAdvice_LongProfileFieldsStayCacheable(t *testing.T) {
	gen := &fakeGenerator{respond: replyText("PM-KISAN: Rs 6000 per year.")}
	svc, _ := newTestService(t, gen)
	ctx := context.Background()

	tests := []struct {
		name    string
		profile FarmerProfile
	}{
		{name: "long state", profile: FarmerProfile{State: strings.Repeat("Maharashtra ", 80), LandSize: "2"}},
		{name: "long land size", profile: FarmerProfile{State: "Bihar", LandSize: strings.Repeat("2.5 acres ", 80)}},
		{name: "devanagari state", profile: FarmerProfile{State: strings.Repeat("महाराष्ट्र", 100), LandSize: "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := gen.Calls()
			for i := 0; i < 2; i++ {
				if _, err := svc.SchemeAdvice(ctx, tt.profile, Marathi); err != nil {
					t.Fatalf("SchemeAdvice() error = %v", err)
				}
			}
			if got := gen.Calls() - before; got != 1 {
				t.Errorf("generator calls = %d, want 1", got)
			}
		})
	}
}

func TestSpeech(t *testing.T) {
	gen := &fakeGenerator{respond: func(req *GenerateRequest) (*GenerateResponse, error) {
		return &GenerateResponse{Audio: "AAAA", AudioMIMEType: "audio/L16"}, nil
	}}
	svc, _ := newTestService(t, gen)

	sp, err := svc.Speech(context.Background(), "Aaj baarish hogi", Hindi)
	if err != nil {
		t.Fatalf("Speech() error = %v", err)
	}
	if sp.Audio != "AAAA" {
		t.Errorf("Audio = %q", sp.Audio)
	}
	if gen.Last().Voice != "Kore" {
		t.Errorf("Voice = %q, want Kore", gen.Last().Voice)
	}

	if _, err := svc.Speech(context.Background(), "It will rain", English); err != nil {
		t.Fatal(err)
	}
	if gen.Last().Voice != "Puck" {
		t.Errorf("Voice = %q, want Puck", gen.Last().Voice)
	}
}

func TestRateLimitTripsCooldownAcrossFeatures(t *testing.T) {
	gen := &fakeGenerator{respond: func(*GenerateRequest) (*GenerateResponse, error) {
		return nil, &APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}
	}}
	svc, clock := newTestService(t, gen)
	ctx := context.Background()

	_, err := svc.MandiPrices(ctx, "Indore", Hindi)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("MandiPrices() error = %v, want *APIError", err)
	}
	if got := gen.Calls(); got != 2 {
		t.Errorf("generator calls = %d, want 2 attempts", got)
	}

	// An uncached feature is blocked by the same cooldown.
	_, err = svc.FarmingAdvice(ctx, "question", nil, Hindi)
	if !errors.Is(err, coordinator.ErrThrottled) {
		t.Errorf("FarmingAdvice() during cooldown error = %v, want ErrThrottled", err)
	}
	if got := gen.Calls(); got != 2 {
		t.Errorf("generator calls during cooldown = %d, want 2", got)
	}

	clock.Advance(61 * time.Second)
	gen.mu.Lock()
	gen.respond = replyText("prices")
	gen.mu.Unlock()
	if _, err := svc.MandiPrices(ctx, "Indore", Hindi); err != nil {
		t.Errorf("MandiPrices() after cooldown error = %v", err)
	}
}
