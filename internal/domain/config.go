package domain

// KeyPrefix namespaces every key this service writes.
const KeyPrefix = "corpintel:"

// VectorConfig holds corpus vectorization settings, not exposed to clients.
type VectorConfig struct {
	Model          string
	Dimensions     int
	DistanceMetric string
	HNSWM          int
	HNSWEFConstr   int
	MaxBatchSize   int
}

// DefaultVectorConfig returns the defaults tuned for DashScope text-embedding-v3.
// The corpus index uses cosine distance, so similarity is 1 - distance.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "text-embedding-v3",
		Dimensions:     1024,
		DistanceMetric: "COSINE",
		HNSWM:          16,
		HNSWEFConstr:   200,
		MaxBatchSize:   10,
	}
}
