package llm

// Confidence scores how much the answer deserves to be trusted, from the
// amount and quality of retrieved context and whether a fallback model
// produced the text. Monotonic by construction: more passages or a higher
// average relevance score never lowers the result, all else equal.
func Confidence(passageCount int, avgScore float64, fellBack bool) float64 {
	if passageCount < 0 {
		passageCount = 0
	}

	// Passage count saturates: the fifth passage adds less than the first.
	countTerm := float64(passageCount) / float64(passageCount+2) // 0, 0.33, 0.5, 0.6, ...

	// Average relevance score maps onto [0, 0.4]. Scores live roughly in
	// [-2, 3.5] given the shipped weights; clamp before scaling.
	if avgScore < -2 {
		avgScore = -2
	}
	if avgScore > 3.5 {
		avgScore = 3.5
	}
	scoreTerm := (avgScore + 2) / 5.5 * 0.4

	confidence := 0.6*countTerm + scoreTerm
	if passageCount == 0 {
		confidence = 0.15 // general-knowledge floor, clearly below grounded answers
	}

	if fellBack {
		confidence *= 0.8
	}

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}
