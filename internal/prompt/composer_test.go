package prompt

import (
	"strings"
	"testing"

	"caregiver-compass/models"
)

func passage(rank int, source, text string, tier models.TrustTier) models.RankedPassage {
	return models.RankedPassage{
		Document: models.Document{
			ID:   source + "-doc",
			Text: text,
			Metadata: models.DocumentMetadata{
				SourceName: source,
				TrustTier:  tier,
			},
		},
		Rank: rank,
	}
}

func TestComposeDeterministic(t *testing.T) {
	c := NewComposer(0.35)
	q := models.ClassifiedQuery{NormalizedText: "bipap warning signs", Category: "respiratory"}
	passages := []models.RankedPassage{
		passage(1, "NIV Handbook", "Watch for morning headaches.", models.TierAuthoritative),
	}

	first := c.Compose(q, passages, nil)
	for i := 0; i < 5; i++ {
		if again := c.Compose(q, passages, nil); again != first {
			t.Fatal("prompt changed between identical calls")
		}
	}
}

func TestComposeProvenanceTags(t *testing.T) {
	c := NewComposer(0.35)
	passages := []models.RankedPassage{
		passage(1, "NIV Handbook", "authoritative text", models.TierAuthoritative),
		passage(2, "Forum QA", "curated text", models.TierCuratedCommunity),
		passage(3, "WhatsApp Group", "raw text", models.TierRawCommunity),
	}

	p := c.Compose(models.ClassifiedQuery{NormalizedText: "q"}, passages, nil)

	for _, want := range []string{
		"[VERIFIED MEDICAL SOURCE #1] Source: NIV Handbook",
		"[CURATED COMMUNITY GUIDANCE #2] Source: Forum QA",
		"[COMMUNITY-REPORTED EXPERIENCE #3] Source: WhatsApp Group",
	} {
		if !strings.Contains(p.User, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestComposeUrgencyDirectiveFirst(t *testing.T) {
	c := NewComposer(0.35)
	q := models.ClassifiedQuery{NormalizedText: "he cannot breathe", IsEmergency: true}
	passages := []models.RankedPassage{
		passage(1, "Emergency Protocols", "protocol text", models.TierAuthoritative),
	}

	p := c.Compose(q, passages, nil)
	if !strings.HasPrefix(p.User, "THIS QUERY MAY DESCRIBE A MEDICAL EMERGENCY.") {
		t.Fatal("urgency directive is not the first element of the prompt")
	}
	for _, number := range []string{"102", "108", "911", "112"} {
		if !strings.Contains(p.User, number) {
			t.Errorf("urgency directive missing emergency number %s", number)
		}
	}
}

func TestComposeZeroContext(t *testing.T) {
	c := NewComposer(0.35)
	// Recognized category, no passages: caveated general answer, not decline.
	q := models.ClassifiedQuery{NormalizedText: "rare question", Category: "respiratory", Confidence: 0.5}

	p := c.Compose(q, nil, nil)
	if !strings.Contains(p.User, "no matching internal source was found") {
		t.Error("zero-context prompt missing explicit no-source statement")
	}
	if strings.Contains(p.User, "decline") {
		t.Error("in-scope zero-context query got the decline directive")
	}
}

func TestComposeDecline(t *testing.T) {
	c := NewComposer(0.35)
	q := models.ClassifiedQuery{NormalizedText: "capital of france", Category: "", Confidence: 0}

	if !c.ShouldDecline(q, nil) {
		t.Fatal("off-topic zero-context query should decline")
	}
	p := c.Compose(q, nil, nil)
	if !strings.Contains(p.User, "decline") {
		t.Error("decline directive missing from prompt")
	}
}

func TestShouldDeclineRequiresAllConditions(t *testing.T) {
	c := NewComposer(0.35)

	cases := []struct {
		name     string
		q        models.ClassifiedQuery
		passages []models.RankedPassage
		want     bool
	}{
		{"no signals", models.ClassifiedQuery{}, nil, true},
		{"has category", models.ClassifiedQuery{Category: "respiratory"}, nil, false},
		{"confident classifier", models.ClassifiedQuery{Confidence: 0.5}, nil, false},
		{"has passages", models.ClassifiedQuery{}, []models.RankedPassage{passage(1, "s", "t", models.TierRawCommunity)}, false},
	}

	for _, tc := range cases {
		if got := c.ShouldDecline(tc.q, tc.passages); got != tc.want {
			t.Errorf("%s: ShouldDecline = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestComposePriorTurnsAndCategory(t *testing.T) {
	c := NewComposer(0.35)
	q := models.ClassifiedQuery{NormalizedText: "and at night?", Category: "sleep"}
	turns := []models.Turn{
		{Role: "user", Text: "how should he sleep"},
		{Role: "assistant", Text: "elevate the head of the bed"},
	}

	p := c.Compose(q, nil, turns)
	if !strings.Contains(p.User, "user: how should he sleep") {
		t.Error("prior user turn missing from prompt")
	}
	if !strings.Contains(p.User, "assistant: elevate the head of the bed") {
		t.Error("prior assistant turn missing from prompt")
	}
	if !strings.Contains(p.System, "Question category: sleep") {
		t.Error("category missing from system prompt")
	}
	if !strings.Contains(p.User, "Caregiver's question: and at night?") {
		t.Error("question missing from prompt")
	}
}

func TestCitationsDedupeInRankOrder(t *testing.T) {
	passages := []models.RankedPassage{
		passage(1, "NIV Handbook", "a", models.TierAuthoritative),
		passage(2, "Forum QA", "b", models.TierCuratedCommunity),
		passage(3, "NIV Handbook", "c", models.TierAuthoritative),
	}

	got := Citations(passages)
	if len(got) != 2 {
		t.Fatalf("got %d citations, want 2", len(got))
	}
	if got[0].SourceName != "NIV Handbook" || got[1].SourceName != "Forum QA" {
		t.Fatalf("citation order = %v", got)
	}
	if got[0].TrustTier != models.TierAuthoritative {
		t.Errorf("citation tier = %v", got[0].TrustTier)
	}
}

func TestCitationsEmpty(t *testing.T) {
	if got := Citations(nil); len(got) != 0 {
		t.Fatalf("Citations(nil) = %v, want empty", got)
	}
}
