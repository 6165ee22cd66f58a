package prer

// Exported aliases for testing internal functions from
// prer_test package.

// CheckPathSegmentForTest exposes checkPathSegment.
var CheckPathSegmentForTest = checkPathSegment
