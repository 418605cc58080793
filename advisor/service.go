package advisor

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/kisanmitra/agriadvisor/cache"
	"github.com/kisanmitra/agriadvisor/coordinator"
	"github.com/kisanmitra/agriadvisor/observe"
)

// Cache key features.
const (
	featureLocation = "geo_search"
	featureWeather  = "weather_live"
	featureMandi    = "mandi_live"
	featureDrones   = "drone_services"
	featureSchemes  = "scheme_advice"
)

// Keys written alongside a resolved location for other features to read.
const (
	KeyLocationDistrict = "loc_district"
	KeyLocationState    = "loc_state"
	KeyLocationFull     = "loc_full"
	KeyLocationShort    = "loc_short"
)

// Service implements the advisory features.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: upstream errors are returned unchanged; while the upstream
//     cooldown is active calls that need the model fail with a
//     *coordinator.ThrottledError.
type Service struct {
	gen    Generator
	coord  *coordinator.Coordinator
	keys   cache.KeyBuilder
	policy cache.Policy
	mw     *observe.Middleware
}

// Option configures a Service.
type Option func(*Service)

// WithKeyBuilder overrides the default "v2" key builder.
func WithKeyBuilder(b cache.KeyBuilder) Option {
	return func(s *Service) {
		s.keys = b
	}
}

// WithPolicy overrides cache.DefaultPolicy.
func WithPolicy(p cache.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithMiddleware instruments every feature call.
func WithMiddleware(m *observe.Middleware) Option {
	return func(s *Service) {
		s.mw = m
	}
}

// NewService creates a Service.
func NewService(gen Generator, coord *coordinator.Coordinator, opts ...Option) (*Service, error) {
	if gen == nil {
		return nil, ErrNilGenerator
	}
	if coord == nil {
		return nil, ErrNilCoordinator
	}
	s := &Service{
		gen:    gen,
		coord:  coord,
		keys:   cache.NewKeyBuilder("v2"),
		policy: cache.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Coordinator returns the coordinator shared by all features.
func (s *Service) Coordinator() *coordinator.Coordinator {
	return s.coord
}

// call runs one feature through the middleware and the coordinator. site
// selects the TTL; an empty key bypasses the cache.
func call[T any](ctx context.Context, s *Service, name string, lang Language, key, site string, produce coordinator.Producer[T], shouldCache func(T) bool) (T, error) {
	op := observe.Operation{Name: name, Language: lang.String(), Cached: key != ""}
	return observe.Call(ctx, s.mw, op, func(ctx context.Context) (T, error) {
		req := coordinator.Request[T]{Key: key, Produce: produce, ShouldCache: shouldCache}
		if key != "" {
			ttl, err := s.policy.TTL(site)
			if err != nil {
				var zero T
				return zero, err
			}
			req.TTL = ttl
		}
		return coordinator.Execute(ctx, s.coord, req)
	})
}

// ResolveLocation identifies the village, tehsil, district and state for a
// coordinate. The district, state and names are also cached under the
// KeyLocation* keys.
func (s *Service) ResolveLocation(ctx context.Context, lat, lng float64) (*Place, error) {
	if err := validateCoords(lat, lng); err != nil {
		return nil, err
	}
	latKey, lngKey := cache.Coord(lat, 4), cache.Coord(lng, 4)
	key := s.keys.Key(featureLocation, latKey, lngKey)

	place, err := call(ctx, s, "resolve_location", "", key, cache.SiteLocation,
		func(ctx context.Context) (*Place, error) {
			resp, err := s.gen.Generate(ctx, &GenerateRequest{
				Parts:        []Part{TextPart(locationPrompt(latKey, lngKey))},
				GoogleSearch: true,
			})
			if err != nil {
				return nil, err
			}
			doc := extractJSON(resp.Text, '{', '}')
			if doc == "" {
				return nil, nil
			}
			var p Place
			if err := decodeValidated(placeSchema, doc, &p); err != nil {
				return nil, err
			}
			if p.Short == "" {
				p.Short = p.District
			}
			s.rememberPlace(ctx, &p)
			return &p, nil
		},
		func(p *Place) bool { return p != nil },
	)
	if err != nil {
		return nil, err
	}
	if place == nil {
		return nil, ErrLocationNotFound
	}
	return place, nil
}

func (s *Service) rememberPlace(ctx context.Context, p *Place) {
	ttl, err := s.policy.TTL(cache.SiteLocation)
	if err != nil {
		return
	}
	c := s.coord.Cache()
	c.Set(ctx, KeyLocationDistrict, p.District, ttl)
	c.Set(ctx, KeyLocationState, p.State, ttl)
	c.Set(ctx, KeyLocationFull, p.Full, ttl)
	c.Set(ctx, KeyLocationShort, p.Short, ttl)
}

// RememberedPlace returns the last resolved place still cached.
func (s *Service) RememberedPlace(ctx context.Context) (*Place, bool) {
	c := s.coord.Cache()
	var p Place
	if !c.GetInto(ctx, KeyLocationDistrict, &p.District) {
		return nil, false
	}
	c.GetInto(ctx, KeyLocationState, &p.State)
	c.GetInto(ctx, KeyLocationFull, &p.Full)
	c.GetInto(ctx, KeyLocationShort, &p.Short)
	return &p, true
}

var tempPattern = regexp.MustCompile(`(\d+)\s*°`)

// Weather returns a live agri-weather report for loc.
func (s *Service) Weather(ctx context.Context, loc Location, lang Language) (*Weather, error) {
	query, err := loc.query()
	if err != nil {
		return nil, err
	}
	key := s.keys.Key(featureWeather, cache.Truncate(query, 30), lang.String())

	return call(ctx, s, "weather", lang, key, cache.SiteWeather,
		func(ctx context.Context) (*Weather, error) {
			resp, err := s.gen.Generate(ctx, &GenerateRequest{
				Parts:        []Part{TextPart(weatherPrompt(query, lang))},
				GoogleSearch: true,
			})
			if err != nil {
				return nil, err
			}
			w := &Weather{
				Text:        resp.Text,
				Sources:     nonNil(resp.Sources),
				Temp:        "--",
				GeneratedAt: s.coord.Now().UTC(),
			}
			if m := tempPattern.FindStringSubmatch(resp.Text); m != nil {
				w.Temp = m[1]
			}
			return w, nil
		},
		func(w *Weather) bool { return w.Text != "" },
	)
}

// MandiPrices returns today's wholesale market prices near locContext.
func (s *Service) MandiPrices(ctx context.Context, locContext string, lang Language) (*Bulletin, error) {
	if strings.TrimSpace(locContext) == "" {
		return nil, fmt.Errorf("%w: location is required", ErrInvalidInput)
	}
	key := s.keys.Key(featureMandi, cache.Truncate(locContext, 30), lang.String())

	return call(ctx, s, "mandi_prices", lang, key, cache.SiteMandi,
		func(ctx context.Context) (*Bulletin, error) {
			return s.bulletin(ctx, mandiPrompt(locContext, lang))
		},
		func(b *Bulletin) bool { return b.Text != "" },
	)
}

// DroneServices lists agri-drone spraying providers near locContext.
func (s *Service) DroneServices(ctx context.Context, locContext string, lang Language) ([]DroneService, error) {
	if strings.TrimSpace(locContext) == "" {
		return nil, fmt.Errorf("%w: location is required", ErrInvalidInput)
	}
	key := s.keys.Key(featureDrones, cache.Truncate(locContext, 20), lang.String())

	return call(ctx, s, "drone_services", lang, key, cache.SiteDrones,
		func(ctx context.Context) ([]DroneService, error) {
			resp, err := s.gen.Generate(ctx, &GenerateRequest{
				Parts:            []Part{TextPart(dronePrompt(locContext))},
				GoogleSearch:     true,
				ResponseMIMEType: "application/json",
			})
			if err != nil {
				return nil, err
			}
			services := []DroneService{}
			doc := extractJSON(resp.Text, '[', ']')
			if doc == "" {
				return services, nil
			}
			if err := decodeValidated(droneServicesSchema, doc, &services); err != nil {
				return nil, err
			}
			return services, nil
		},
		nil,
	)
}

// FarmingAdvice answers a free-form farming question. Answers are not cached.
func (s *Service) FarmingAdvice(ctx context.Context, question string, profile *FarmerProfile, lang Language) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	prompt, err := advicePrompt(question, profile, lang)
	if err != nil {
		return "", err
	}

	return call(ctx, s, "farming_advice", lang, "", "",
		func(ctx context.Context) (string, error) {
			return s.text(ctx, &GenerateRequest{Parts: []Part{TextPart(prompt)}, GoogleSearch: true})
		},
		nil,
	)
}

// DiagnoseCrop diagnoses a crop problem from a base64 encoded photo.
func (s *Service) DiagnoseCrop(ctx context.Context, image Blob, lang Language) (*Diagnosis, error) {
	if image.Data == "" {
		return nil, fmt.Errorf("%w: image is required", ErrInvalidInput)
	}
	if image.MIMEType == "" {
		image.MIMEType = "image/jpeg"
	}

	return call(ctx, s, "diagnose_crop", lang, "", "",
		func(ctx context.Context) (*Diagnosis, error) {
			resp, err := s.gen.Generate(ctx, &GenerateRequest{
				Parts: []Part{
					{InlineData: &image},
					TextPart(diagnosisPrompt(lang)),
				},
				ResponseMIMEType: "application/json",
			})
			if err != nil {
				return nil, err
			}
			doc := extractJSON(resp.Text, '{', '}')
			if doc == "" {
				return nil, ErrEmptyResponse
			}
			var d Diagnosis
			if err := decodeValidated(diagnosisSchema, doc, &d); err != nil {
				return nil, err
			}
			return &d, nil
		},
		nil,
	)
}

// ParseVoiceExpense extracts an expense from transcribed speech.
func (s *Service) ParseVoiceExpense(ctx context.Context, transcript string, lang Language) (*Expense, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("%w: transcript is required", ErrInvalidInput)
	}

	return call(ctx, s, "parse_expense", lang, "", "",
		func(ctx context.Context) (*Expense, error) {
			resp, err := s.gen.Generate(ctx, &GenerateRequest{
				Parts:            []Part{TextPart(expensePrompt(transcript))},
				ResponseMIMEType: "application/json",
			})
			if err != nil {
				return nil, err
			}
			doc := extractJSON(resp.Text, '{', '}')
			if doc == "" {
				return nil, ErrEmptyResponse
			}
			var raw struct {
				Amount      flexString `json:"amount"`
				Category    string     `json:"category"`
				Description string     `json:"description"`
			}
			if err := decodeValidated(expenseSchema, doc, &raw); err != nil {
				return nil, err
			}
			amount, ok := parseAmount(string(raw.Amount))
			if !ok {
				return nil, fmt.Errorf("%w: amount %q", ErrInvalidResponse, raw.Amount)
			}
			desc := raw.Description
			if desc == "" {
				desc = transcript
			}
			return &Expense{
				Amount:      amount,
				Category:    NormalizeCategory(raw.Category),
				Description: desc,
			}, nil
		},
		nil,
	)
}

// SchemeAdvice lists active government schemes for a farmer's state and
// holding size.
func (s *Service) SchemeAdvice(ctx context.Context, profile FarmerProfile, lang Language) (string, error) {
	if strings.TrimSpace(profile.State) == "" {
		return "", fmt.Errorf("%w: state is required", ErrInvalidInput)
	}
	key := s.keys.Key(featureSchemes, cache.Truncate(profile.State, 30), cache.Truncate(profile.LandSize, 10), lang.String())

	return call(ctx, s, "scheme_advice", lang, key, cache.SiteSchemes,
		func(ctx context.Context) (string, error) {
			return s.text(ctx, &GenerateRequest{
				Parts:        []Part{TextPart(schemePrompt(profile, lang))},
				GoogleSearch: true,
			})
		},
		func(text string) bool { return text != "" },
	)
}

// Speech reads text aloud in lang.
func (s *Service) Speech(ctx context.Context, text string, lang Language) (*Speech, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}

	return call(ctx, s, "speech", lang, "", "",
		func(ctx context.Context) (*Speech, error) {
			resp, err := s.gen.Generate(ctx, &GenerateRequest{
				Parts: []Part{TextPart(speechPrompt(text, lang))},
				Voice: lang.Voice(),
			})
			if err != nil {
				return nil, err
			}
			if resp.Audio == "" {
				return nil, ErrEmptyResponse
			}
			return &Speech{Audio: resp.Audio, MIMEType: resp.AudioMIMEType}, nil
		},
		nil,
	)
}

func (s *Service) bulletin(ctx context.Context, prompt string) (*Bulletin, error) {
	resp, err := s.gen.Generate(ctx, &GenerateRequest{
		Parts:        []Part{TextPart(prompt)},
		GoogleSearch: true,
	})
	if err != nil {
		return nil, err
	}
	return &Bulletin{Text: resp.Text, Sources: nonNil(resp.Sources)}, nil
}

func (s *Service) text(ctx context.Context, req *GenerateRequest) (string, error) {
	resp, err := s.gen.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (l Location) query() (string, error) {
	if t := strings.TrimSpace(l.Text); t != "" {
		return t, nil
	}
	if l.Lat == nil || l.Lng == nil {
		return "", fmt.Errorf("%w: location text or coordinates are required", ErrInvalidInput)
	}
	if err := validateCoords(*l.Lat, *l.Lng); err != nil {
		return "", err
	}
	return cache.Coord(*l.Lat, 4) + "," + cache.Coord(*l.Lng, 4), nil
}

func validateCoords(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidInput)
	}
	return nil
}

func nonNil(s []Source) []Source {
	if s == nil {
		return []Source{}
	}
	return s
}
