package models

// StatusStats aggregates a user's posts sharing one aggregate status.
type StatusStats struct {
	Status           PostStatus `json:"status" bson:"_id"`
	Count            int64      `json:"count" bson:"count"`
	TotalEngagement  int64      `json:"totalEngagement" bson:"total_engagement"`
	TotalReach       int64      `json:"totalReach" bson:"total_reach"`
	TotalImpressions int64      `json:"totalImpressions" bson:"total_impressions"`
}
