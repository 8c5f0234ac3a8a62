package prompt

import (
	"fmt"
	"strings"

	"caregiver-compass/models"
)

// Prompt is the composed instruction handed to a model provider. System
// carries the persona and safety rules; User carries the grounded request.
type Prompt struct {
	System string
	User   string
}

// Composer deterministically assembles the instruction text sent to the LLM.
// Same classified query and passage set always produce the same prompt.
type Composer struct {
	declineThreshold float64
}

func NewComposer(declineThreshold float64) *Composer {
	return &Composer{declineThreshold: declineThreshold}
}

const personaPreamble = `You are an empathetic assistant for ALS caregivers with special focus on India.

Rules:
1. NEVER generate personal information (names, phone numbers, emails).
2. Prefer caution on medical matters; recommend consulting healthcare professionals for personalized advice.
3. Decline politely when a question is outside ALS caregiving.
4. Attribute claims to their sources. Never present a community-reported experience as medically authoritative: community material must be framed as "caregivers have shared", while verified medical sources may be cited as authoritative guidance.

Format:
- Use ### section headings and numbered lists.
- Include an India-specific section when the question has an India context.

Tone: compassionate, practical, evidence-based.`

const urgencyDirective = `THIS QUERY MAY DESCRIBE A MEDICAL EMERGENCY.
Respond immediately and directively, in short numbered steps, starting with the single most important action. Tell the caregiver to call emergency services now (India: 102 ambulance / 108 emergency; USA: 911; EU: 112) before anything else. Do not pad with background information.`

const zeroContextDirective = `No matching passage was found in the knowledge base for this question. State explicitly that no matching internal source was found, then answer conservatively from general knowledge, clearly framed as general guidance rather than sourced fact.`

const declineDirective = `No matching passage was found in the knowledge base and the question does not appear to concern ALS caregiving. Politely decline to answer, explain that this assistant covers ALS caregiving topics, and invite the caregiver to rephrase or ask a caregiving question.`

// provenanceTag renders the attribution label for one passage from its
// trust tier. The tags are a hard attribution requirement: the model is
// told how much weight each passage deserves.
func provenanceTag(tier models.TrustTier) string {
	switch tier {
	case models.TierAuthoritative:
		return "VERIFIED MEDICAL SOURCE"
	case models.TierCuratedCommunity:
		return "CURATED COMMUNITY GUIDANCE"
	default:
		return "COMMUNITY-REPORTED EXPERIENCE"
	}
}

// ShouldDecline reports whether the zero-context decline policy applies:
// nothing retrieved, no recognized category, and classifier confidence
// below the threshold. Everything else gets a caveated general answer.
func (c *Composer) ShouldDecline(q models.ClassifiedQuery, passages []models.RankedPassage) bool {
	return len(passages) == 0 && q.Category == "" && q.Confidence < c.declineThreshold
}

// Compose builds the full prompt for one request. Passages are appended in
// rank order, each under its provenance tag. Prior turns are included as
// opaque conversation context.
func (c *Composer) Compose(q models.ClassifiedQuery, passages []models.RankedPassage, priorTurns []models.Turn) Prompt {
	var user strings.Builder

	if q.IsEmergency {
		user.WriteString(urgencyDirective)
		user.WriteString("\n\n")
	}

	switch {
	case len(passages) == 0 && c.ShouldDecline(q, passages):
		user.WriteString(declineDirective)
		user.WriteString("\n\n")
	case len(passages) == 0:
		user.WriteString(zeroContextDirective)
		user.WriteString("\n\n")
	default:
		user.WriteString("Answer using the following knowledge base passages. Attribute claims per the tags.\n\n")
		for _, p := range passages {
			fmt.Fprintf(&user, "[%s #%d] Source: %s\n%s\n\n",
				provenanceTag(p.Document.Metadata.TrustTier), p.Rank,
				p.Document.Metadata.SourceName, p.Document.Text)
		}
	}

	if len(priorTurns) > 0 {
		user.WriteString("Conversation so far:\n")
		for _, turn := range priorTurns {
			fmt.Fprintf(&user, "%s: %s\n", turn.Role, turn.Text)
		}
		user.WriteString("\n")
	}

	fmt.Fprintf(&user, "Caregiver's question: %s\n", q.NormalizedText)

	system := personaPreamble
	if q.Category != "" {
		system = fmt.Sprintf("%s\n\nQuestion category: %s", personaPreamble, q.Category)
	}

	return Prompt{System: system, User: user.String()}
}

// Citations derives the structural attribution list from the ranked
// passages. Citations are pass-through data, never parsed back out of the
// model's free text. Each source appears once, best rank first.
func Citations(passages []models.RankedPassage) []models.Citation {
	seen := make(map[string]bool)
	citations := make([]models.Citation, 0, len(passages))
	for _, p := range passages {
		name := p.Document.Metadata.SourceName
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		citations = append(citations, models.Citation{
			SourceName: name,
			TrustTier:  p.Document.Metadata.TrustTier,
		})
	}
	return citations
}
