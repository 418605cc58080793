package advisor

import (
	"strconv"
	"strings"
	"time"
)

// Place is a resolved administrative location.
type Place struct {
	Short    string `json:"short"`
	Full     string `json:"full"`
	District string `json:"district"`
	State    string `json:"state"`
}

// Location identifies where a farmer is, by free text or coordinates.
// Text wins when both are set.
type Location struct {
	Text string   `json:"text,omitempty"`
	Lat  *float64 `json:"lat,omitempty"`
	Lng  *float64 `json:"lng,omitempty"`
}

// Weather is a grounded agri-weather report.
type Weather struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`

	// Temp is the first temperature found in Text, or "--".
	Temp        string    `json:"temp"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Bulletin is grounded free text, such as a mandi price bulletin.
type Bulletin struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// DroneService is an agri-drone spraying provider.
type DroneService struct {
	Name    string     `json:"name"`
	Contact flexString `json:"contact"`
	Type    string     `json:"type"`
	Address string     `json:"address"`
}

// Diagnosis is a crop problem identified from a photo.
type Diagnosis struct {
	ProblemName        string     `json:"problemName"`
	Diagnosis          string     `json:"diagnosis"`
	SolutionOrganic    textList   `json:"solutionOrganic,omitempty"`
	SolutionChemical   textList   `json:"solutionChemical,omitempty"`
	EstimatedCostRange flexString `json:"estimatedCostRange,omitempty"`
	PreventionTips     textList   `json:"preventionTips,omitempty"`
}

// ExpenseCategory classifies a farm expense.
type ExpenseCategory string

const (
	CategorySeeds       ExpenseCategory = "Seeds"
	CategoryFertilizers ExpenseCategory = "Fertilizers"
	CategoryPesticides  ExpenseCategory = "Pesticides"
	CategoryLabor       ExpenseCategory = "Labor"
	CategoryOther       ExpenseCategory = "Other"
)

// NormalizeCategory maps free text onto a known category, defaulting to
// CategoryOther.
func NormalizeCategory(s string) ExpenseCategory {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range []ExpenseCategory{CategorySeeds, CategoryFertilizers, CategoryPesticides, CategoryLabor} {
		name := strings.ToLower(string(c))
		if s == name || strings.TrimSuffix(name, "s") == s {
			return c
		}
	}
	if s == "labour" {
		return CategoryLabor
	}
	return CategoryOther
}

// Expense is a farm expense parsed from speech.
type Expense struct {
	Amount      float64         `json:"amount"`
	Category    ExpenseCategory `json:"category"`
	Description string          `json:"description"`
}

// parseAmount reads amounts such as 1200, "1,200" or "₹ 1200".
func parseAmount(s string) (float64, bool) {
	s = strings.NewReplacer("₹", "", "Rs.", "", "Rs", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// FarmerProfile is the farmer context sent with personalised prompts.
type FarmerProfile struct {
	Name           string   `json:"name,omitempty"`
	State          string   `json:"state"`
	District       string   `json:"district,omitempty"`
	LandSize       string   `json:"landSize,omitempty"`
	CropPreference []string `json:"cropPreference,omitempty"`
}

// Speech is synthesized audio.
type Speech struct {
	// Audio is base64 encoded.
	Audio    string `json:"audio"`
	MIMEType string `json:"mime_type,omitempty"`
}
