package classify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tables holds the static keyword data the classifier matches against.
// Kept as data so deployments can tune coverage without code changes.
type Tables struct {
	// EmergencyKeywords trigger the urgency flag on any substring match.
	// The list errs toward over-triggering: a false positive costs tone,
	// a false negative costs a missed emergency.
	EmergencyKeywords []string `yaml:"emergency_keywords"`

	// Misspellings maps common typos of domain jargon to their canonical
	// spelling. Applied before any keyword matching.
	Misspellings map[string]string `yaml:"misspellings"`

	// Categories maps each topical category to its keyword set.
	Categories map[string][]string `yaml:"categories"`

	// RegionTerms hint that the caregiver is in an India-specific context.
	RegionTerms []string `yaml:"region_terms"`
}

// LoadTables reads classifier tables from a YAML file. An empty path returns
// the compiled-in defaults.
func LoadTables(path string) (*Tables, error) {
	if path == "" {
		return DefaultTables(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read classifier tables: %w", err)
	}

	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse classifier tables: %w", err)
	}

	defaults := DefaultTables()
	if len(t.EmergencyKeywords) == 0 {
		t.EmergencyKeywords = defaults.EmergencyKeywords
	}
	if len(t.Misspellings) == 0 {
		t.Misspellings = defaults.Misspellings
	}
	if len(t.Categories) == 0 {
		t.Categories = defaults.Categories
	}
	if len(t.RegionTerms) == 0 {
		t.RegionTerms = defaults.RegionTerms
	}

	return &t, nil
}

// DefaultTables returns the built-in keyword data covering ALS caregiving.
func DefaultTables() *Tables {
	return &Tables{
		EmergencyKeywords: []string{
			"emergency", "urgent", "immediate help", "crisis",
			"cannot breathe", "can't breathe", "cant breathe", "not breathing",
			"breathing difficulty", "gasping", "choking",
			"spo2 drop", "spo2 dropping", "oxygen dropping",
			"blue lips", "turning blue",
			"unconscious", "unresponsive",
			"call 911", "call 108", "call 102", "911", "ambulance",
		},
		Misspellings: map[string]string{
			"bypap":        "bipap",
			"bi-pap":       "bipap",
			"bi pap":       "bipap",
			"ventilater":   "ventilator",
			"ventillator":  "ventilator",
			"oxigen":       "oxygen",
			"oxygin":       "oxygen",
			"trakeostomy":  "tracheostomy",
			"tracheotomy":  "tracheostomy",
			"trach tube":   "tracheostomy tube",
			"suctoin":      "suction",
			"sucion":       "suction",
			"nebuliser":    "nebulizer",
			"weelchair":    "wheelchair",
			"wheel chair":  "wheelchair",
			"medecine":     "medicine",
			"medicene":     "medicine",
			"secresions":   "secretions",
			"secretion s":  "secretions",
			"swolowing":    "swallowing",
			"swallowin":    "swallowing",
			"fisiotherapy": "physiotherapy",
			"physio":       "physiotherapy",
			"ryle's tube":  "ryles tube",
			"peg tube":     "peg",
		},
		Categories: map[string][]string{
			"respiratory": {
				"breath", "breathing", "bipap", "cpap", "niv", "ventilator",
				"oxygen", "spo2", "respiratory", "lung",
			},
			"feeding_nutrition": {
				"peg", "ryles", "feed", "feeding", "swallow", "swallowing",
				"nutrition", "tube feed", "eating", "diet", "weight loss",
			},
			"secretions": {
				"saliva", "secretion", "secretions", "mucus", "suction",
				"phlegm", "foamy", "drooling",
			},
			"tracheostomy": {
				"trach", "cannula", "stoma", "cuff", "tracheostomy",
			},
			"equipment": {
				"machine", "device", "equipment", "purchase", "buy", "rent",
				"supplier", "spare part",
			},
			"medication": {
				"medicine", "drug", "dose", "dosage", "prescription",
				"medication", "tablet", "riluzole", "edaravone",
			},
			"daily_care": {
				"caregiver", "routine", "daily care", "schedule", "bathing",
				"hygiene", "grooming", "toileting",
			},
			"mobility": {
				"walk", "walking", "wheelchair", "movement", "physiotherapy",
				"exercise", "transfer", "hoist", "fall",
			},
			"communication": {
				"speak", "speech", "communication", "aac", "voice", "talk",
				"eye gaze", "letter board",
			},
			"emotional_support": {
				"stress", "burnout", "depression", "support group", "cope",
				"coping", "mental health", "grief", "exhausted",
			},
			"emergency_preparedness": {
				"emergency plan", "backup power", "power cut", "generator",
				"battery backup", "hospital bag",
			},
			"cost_finance": {
				"cost", "price", "expensive", "affordable", "rupees", "budget",
				"cheap", "how much", "lakh", "insurance", "scheme",
			},
			"sleep": {
				"sleep", "insomnia", "night", "lying flat", "pillow",
				"morning headache",
			},
			"skin_care": {
				"skin", "pressure sore", "bedsore", "wound", "ulcer", "rash",
			},
			"symptoms_progression": {
				"symptom", "progression", "weakness", "twitching",
				"fasciculation", "cramp", "stiffness",
			},
			"legal_admin": {
				"disability certificate", "legal", "power of attorney",
				"udid", "pension",
			},
		},
		RegionTerms: []string{
			"india", "indian", "delhi", "mumbai", "bangalore", "chennai",
			"kolkata", "hyderabad", "pune", "rupees", "lakh", "crore",
			"aiims", "108", "102",
		},
	}
}
