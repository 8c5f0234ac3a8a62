package retrieve

import (
	"caregiver-compass/models"
)

// Weights are the ranking constants combined into one relevance score.
// They are configuration, not code: tunable per deployment but stable
// within one, so ranked output stays reproducible.
type Weights struct {
	TrustAuthoritative float64
	TrustCurated       float64
	TrustRaw           float64
	RegionBoost        float64
	CategoryBonus      float64
	EmergencyBoost     float64
}

// DefaultWeights mirror the shipped configuration defaults.
func DefaultWeights() Weights {
	return Weights{
		TrustAuthoritative: 1.0,
		TrustCurated:       0.6,
		TrustRaw:           0.3,
		RegionBoost:        2.0,
		CategoryBonus:      0.5,
		EmergencyBoost:     1.5,
	}
}

func (w Weights) trustWeight(tier models.TrustTier) float64 {
	switch tier {
	case models.TierAuthoritative:
		return w.TrustAuthoritative
	case models.TierCuratedCommunity:
		return w.TrustCurated
	default:
		return w.TrustRaw
	}
}

// Score computes the relevance score for one retrieved document:
//
//	score = -distance + trust_weight + region_boost + category_bonus + emergency_boost
//
// Closer passages score higher (distance enters negated). Trust weight
// rewards provenance. Region boost applies only when both the query and the
// document carry the regional hint. Category bonus applies when the
// document's topical tag matches the classified category. Emergency boost
// lifts emergency-protocol passages for urgent queries.
func (w Weights) Score(doc models.Document, collection string, distance float64, q models.ClassifiedQuery) float64 {
	score := -distance + w.trustWeight(doc.Metadata.TrustTier)

	if q.RegionHint && doc.Metadata.RegionRelevant {
		score += w.RegionBoost
	}
	if q.Category != "" && doc.Metadata.Category == q.Category {
		score += w.CategoryBonus
	}
	if q.IsEmergency && collection == models.CollectionEmergencyProtocols {
		score += w.EmergencyBoost
	}

	return score
}
