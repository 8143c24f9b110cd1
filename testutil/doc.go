// Package testutil provides deterministic test data generators and
// external cluster-quality scoring for end-to-end tests. It is not part
// of the library's public contract.
package testutil
