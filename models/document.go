package models

// TrustTier is an ordered classification of a source's reliability. Higher
// values outrank lower ones when ranking passages and phrasing attribution.
type TrustTier int

const (
	TierRawCommunity TrustTier = iota + 1
	TierCuratedCommunity
	TierAuthoritative
)

// String returns the tier name used in metadata and citations.
func (t TrustTier) String() string {
	switch t {
	case TierAuthoritative:
		return "authoritative"
	case TierCuratedCommunity:
		return "curated_community"
	case TierRawCommunity:
		return "raw_community"
	default:
		return "unknown"
	}
}

// ParseTrustTier maps a stored tier name back to its enum value.
// Unknown names degrade to the lowest tier rather than failing the read.
func ParseTrustTier(s string) TrustTier {
	switch s {
	case "authoritative":
		return TierAuthoritative
	case "curated_community":
		return TierCuratedCommunity
	default:
		return TierRawCommunity
	}
}

// DocumentMetadata carries the retrieval signals attached to every passage
// at ingestion time.
type DocumentMetadata struct {
	SourceName     string    `json:"source_name" bson:"source_name"`
	TrustTier      TrustTier `json:"trust_tier" bson:"trust_tier"`
	Category       string    `json:"category,omitempty" bson:"category,omitempty"`
	RegionRelevant bool      `json:"region_relevant" bson:"region_relevant"`
}

// Document is an immutable unit of retrievable knowledge. Written only by the
// ingestion job; the query pipeline never mutates one.
type Document struct {
	ID       string           `json:"id" bson:"_id"`
	Text     string           `json:"text" bson:"text"`
	Vector   []float32        `json:"vector,omitempty" bson:"vector"`
	Metadata DocumentMetadata `json:"metadata" bson:"metadata"`
}

// Default knowledge collections populated by ingestion. The store can hold
// any set of collections; the retriever queries whatever exists, and these
// names are the corpus layout the scoring boosts refer to.
const (
	CollectionMedicalAuthoritative = "medical_authoritative"
	CollectionMedicalClinical      = "medical_clinical"
	CollectionCommunityExperiences = "community_experiences"
	CollectionCommunityQA          = "community_qa"
	CollectionEmergencyProtocols   = "emergency_protocols"
)
