package domain

// KeyPrefix namespaces every key this service writes to the cache backend.
const KeyPrefix = "topicrag:"

// RetrievalConfig holds retrieval and context assembly limits.
type RetrievalConfig struct {
	DefaultTopK     int
	MaxTopK         int
	MaxItemChars    int
	MaxContextChars int
}

// DefaultRetrievalConfig returns the limits the math assistant was tuned with.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		DefaultTopK:     15,
		MaxTopK:         100,
		MaxItemChars:    100000,
		MaxContextChars: 1000000,
	}
}
