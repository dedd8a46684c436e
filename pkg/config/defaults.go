package config

// defaults holds every value used when the environment doesn't specify one,
// applied by mergo after environment parsing.
var defaults = Config{
	MaxConcurrentAIRequests: 5,
	TestModeMaxDocuments:    3,
	TestModeSampleFraction:  0.10,
	SourcePrefix:            "source",
	OutputPrefix:            "",
	ChunkOverlapPages:       4,
}
