package advisor

import (
	"encoding/json"
	"fmt"
)

func locationPrompt(lat, lng string) string {
	return fmt.Sprintf(`Identify the specific Village, Tehsil, District, and State in India for these coordinates: %s, %s.
Return ONLY a clean JSON object: {"short": "District Name", "full": "Village, Tehsil, District, State", "district": "District", "state": "State Name"}`, lat, lng)
}

func weatherPrompt(query string, lang Language) string {
	return fmt.Sprintf(`Act as a professional Indian Agri-Meteorologist. Find LIVE local weather for %s, India.
Use Google Search to find current temperature, humidity, and rain probability for TODAY.
Then, provide a detailed agricultural advisory in %s.
Format the output to include clear section headers for CURRENT conditions and AGRI-ADVICE.`, query, lang.Name())
}

func mandiPrompt(locContext string, lang Language) string {
	return fmt.Sprintf(`Find TODAY'S LIVE WHOLESALE MANDI PRICES (Bhav) for markets in or near %s, India.
Search for the latest arrivals and modal prices for crops like Wheat, Mustard, Onion, and Tomato.
Provide a clear bulletin in %s.
Ensure prices are clearly visible.`, locContext, lang.Name())
}

func dronePrompt(locContext string) string {
	return fmt.Sprintf("Find Agri-Drone Spraying Service Providers and Drone CHCs near %s, India. "+
		"Return as JSON array of objects with keys: name, contact, type, address.", locContext)
}

func advicePrompt(question string, profile *FarmerProfile, lang Language) (string, error) {
	profileJSON := []byte("null")
	if profile != nil {
		var err error
		if profileJSON, err = json.Marshal(profile); err != nil {
			return "", fmt.Errorf("advisor: marshal profile: %w", err)
		}
	}
	return fmt.Sprintf(`Query: %s. Farmer Profile: %s. Language: %s.
Provide a detailed, practical agricultural answer. Use Google Search if you need specific crop varieties or current seasonal pests in India.`,
		question, profileJSON, lang.Name()), nil
}

func diagnosisPrompt(lang Language) string {
	return fmt.Sprintf("Diagnose in %s as JSON. Include problemName, diagnosis, solutionOrganic, "+
		"solutionChemical, estimatedCostRange, preventionTips.", lang.Name())
}

func expensePrompt(transcript string) string {
	return fmt.Sprintf("Extract expense from %q as JSON with amount, category "+
		"(Seeds, Fertilizers, Pesticides, Labor, Other), and description.", transcript)
}

func schemePrompt(profile FarmerProfile, lang Language) string {
	land := profile.LandSize
	if land == "" {
		land = "an unspecified number of"
	}
	return fmt.Sprintf("Govt agricultural schemes for a farmer in %s with %s acres. "+
		"Use Google Search for current active schemes in %s.", profile.State, land, lang.Name())
}

func speechPrompt(text string, lang Language) string {
	return fmt.Sprintf("Read this weather and agriculture report naturally in %s: %s", lang.Name(), text)
}
