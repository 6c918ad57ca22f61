package constants

import "time"

// Matching thresholds used by statement matching and operation pairing.
const (
	// MaxOperationNameDistance is the largest normalized edit distance between
	// two operation (or invoked method) names still considered a rename.
	MaxOperationNameDistance = 0.4

	// MaxSmallCompositeLeaves is the leaf count up to which a composite with
	// no mapped children may still match on an extract/inline call signal.
	MaxSmallCompositeLeaves = 2

	// DefaultPairTimeout is the wall-clock budget for mapping one pair of
	// operations. Zero in configuration disables the budget.
	DefaultPairTimeout = 15 * time.Second
)

// Extract/inline detection thresholds
const (
	// MinExtractedMappings is the smallest number of statements a nested
	// call-site mapper must align before an extract or inline is reported.
	MinExtractedMappings = 1
)
