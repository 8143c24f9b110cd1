// Package cluster scores and materializes clusterings of Hilbert curve
// orders.
//
// The estimator half turns a curve order into a cluster-count estimate,
// the objective the optimizer minimizes. The classifier half cuts a
// curve order into concrete clusters once a good permutation has been
// found, keeping membership in roaring bitmaps over input ordinals.
package cluster
