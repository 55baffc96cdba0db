package constants

// Pagination constants
const (
	// DefaultPageSize is used when a caller passes a non-positive page size
	DefaultPageSize = 10
	// MaxRecommendationPageSize caps group and user recommendation pages
	MaxRecommendationPageSize = 50
	// MaxListPageSize caps friend/follower/following listings
	MaxListPageSize = 100
)

// Recommendation constants
const (
	// SourceCandidateCap is how many candidates each signal source contributes to a merge
	SourceCandidateCap = 20
	// FallbackCandidateCap is the content-only cap for users without memberships,
	// large enough to page through
	FallbackCandidateCap = 100
	// SimilarUserLimit bounds the co-member set used by collaborative filtering
	SimilarUserLimit = 20
	// ActivityTopGroups is how many of the highest-points memberships seed activity affinity
	ActivityTopGroups = 3
	// RankDecay is subtracted from a source weight per rank position
	RankDecay = 0.1
	// NeighborhoodBatchSize is how many users one second-degree lookup covers
	NeighborhoodBatchSize = 200
	// NeighborhoodConcurrency bounds parallel second-degree lookups
	NeighborhoodConcurrency = 4
)

// MemoryOutboxLimit is how many outbox events the in-memory store retains
const MemoryOutboxLimit = 10000

// Signal source weights
const (
	WeightSocialProximity     = 4.0
	WeightCollaborativeFilter = 3.0
	WeightActivityAffinity    = 2.0
	WeightContentSimilarity   = 1.0
)

// Signal source names
const (
	SourceSocialProximity     = "social_proximity"
	SourceCollaborativeFilter = "collaborative_filter"
	SourceActivityAffinity    = "activity_affinity"
	SourceContentSimilarity   = "content_similarity"
)

// JoinRequestPending is the status of a join request awaiting a decision
const JoinRequestPending = "pending"
