package classify

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestClassifier() *Classifier {
	return NewClassifier(DefaultTables(), 0.5)
}

func TestClassifyDeterministic(t *testing.T) {
	c := newTestClassifier()
	query := "My father cannot breathe and his BiPAP machine stopped"

	first := c.Classify(query)
	for i := 0; i < 10; i++ {
		again := c.Classify(query)
		if again.IsEmergency != first.IsEmergency || again.Category != first.Category {
			t.Fatalf("classification changed between calls: %+v vs %+v", first, again)
		}
	}
}

func TestEmergencyDetection(t *testing.T) {
	c := newTestClassifier()

	cases := []struct {
		query     string
		emergency bool
	}{
		{"patient turning blue can't breathe", true},
		{"He CANNOT BREATHE properly tonight", true},
		{"spo2 dropping fast what do I do", true},
		{"she is choking on food right now", true},
		{"what are the warning signs for bipap", false},
		{"how much does a wheelchair cost", false},
	}

	for _, tc := range cases {
		got := c.Classify(tc.query)
		if got.IsEmergency != tc.emergency {
			t.Errorf("Classify(%q).IsEmergency = %v, want %v", tc.query, got.IsEmergency, tc.emergency)
		}
	}
}

func TestEmergencyRegardlessOfSurroundingText(t *testing.T) {
	c := newTestClassifier()
	query := "we were having a calm evening at home when suddenly grandfather started gasping during dinner and everyone panicked"
	if !c.Classify(query).IsEmergency {
		t.Fatal("emergency keyword buried in long text was not detected")
	}
}

func TestMisspellingNormalization(t *testing.T) {
	c := newTestClassifier()

	got := c.Classify("warning signs for bypap")
	if got.Category != "respiratory" {
		t.Fatalf("misspelled bipap query classified as %q, want respiratory", got.Category)
	}
	if got.NormalizedText != "warning signs for bipap" {
		t.Fatalf("normalization produced %q", got.NormalizedText)
	}
}

func TestNormalizeLeavesCorrectSpellingsAlone(t *testing.T) {
	c := newTestClassifier()

	cases := []struct {
		in, want string
	}{
		// A typo key that prefixes its own correction must not fire inside
		// the already-correct word.
		{"physiotherapy exercises", "physiotherapy exercises"},
		{"fisiotherapy exercises", "physiotherapy exercises"},
		{"physio exercises", "physiotherapy exercises"},
		{"seeing a physiotherapist", "seeing a physiotherapist"},
		{"bipap and bi pap and bi-pap", "bipap and bipap and bipap"},
		{"suction catheter", "suction catheter"},
	}

	for _, tc := range cases {
		if got := c.Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCategoryScoring(t *testing.T) {
	c := newTestClassifier()

	cases := []struct {
		query    string
		category string
	}{
		{"What are the warning signs for BiPAP?", "respiratory"},
		{"how to manage excess saliva and drooling", "secretions"},
		{"peg tube feeding schedule advice", "feeding_nutrition"},
		{"cleaning the tracheostomy cannula", "tracheostomy"},
	}

	for _, tc := range cases {
		got := c.Classify(tc.query)
		if got.Category != tc.category {
			t.Errorf("Classify(%q).Category = %q, want %q", tc.query, got.Category, tc.category)
		}
		if got.Confidence < 0.5 {
			t.Errorf("Classify(%q).Confidence = %v, want >= 0.5", tc.query, got.Confidence)
		}
	}
}

func TestGeneralQueryHasNoCategory(t *testing.T) {
	c := newTestClassifier()
	got := c.Classify("what is the capital of France")
	if got.Category != "" {
		t.Fatalf("off-topic query got category %q", got.Category)
	}
	if got.Confidence != 0 {
		t.Fatalf("off-topic query got confidence %v", got.Confidence)
	}
}

func TestEmptyQuery(t *testing.T) {
	c := newTestClassifier()
	got := c.Classify("   ")
	if got.IsEmergency || got.Category != "" || got.Confidence != 0 {
		t.Fatalf("empty query classified as %+v", got)
	}
}

func TestRegionHint(t *testing.T) {
	c := newTestClassifier()

	if !c.Classify("bipap rental options in Delhi").RegionHint {
		t.Error("Delhi query did not set region hint")
	}
	if c.Classify("bipap rental options").RegionHint {
		t.Error("regionless query set region hint")
	}
	// Word-boundary matching: "108" must not fire inside other numbers.
	if c.Classify("the machine costs 1080 dollars").RegionHint {
		t.Error("substring 108 inside 1080 set region hint")
	}
}

func TestLoadTablesFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables.yaml")
	data := `
emergency_keywords:
  - custom panic phrase
categories:
  custom_topic: [frobnicate]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	tables, err := LoadTables(path)
	if err != nil {
		t.Fatalf("LoadTables: %v", err)
	}

	c := NewClassifier(tables, 0.5)
	if !c.Classify("there is a custom panic phrase here").IsEmergency {
		t.Error("custom emergency keyword not applied")
	}
	if got := c.Classify("please frobnicate the thing").Category; got != "custom_topic" {
		t.Errorf("custom category = %q", got)
	}
	// Sections absent from the file fall back to defaults.
	if len(tables.Misspellings) == 0 {
		t.Error("misspelling defaults not merged")
	}
}

func TestLoadTablesEmptyPathUsesDefaults(t *testing.T) {
	tables, err := LoadTables("")
	if err != nil {
		t.Fatalf("LoadTables: %v", err)
	}
	if len(tables.Categories) < 15 {
		t.Fatalf("default tables have %d categories, want >= 15", len(tables.Categories))
	}
}
