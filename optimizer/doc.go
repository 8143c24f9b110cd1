// Package optimizer searches the space of axis permutations for one
// that minimizes cluster fragmentation along the Hilbert curve.
//
// The search is round based: each round scrambles the best permutation
// seen so far into a batch of candidates, builds and scores a curve
// index for each candidate in parallel, and keeps a bounded pool of the
// best results. Rounds without improvement accumulate into a stall
// counter that stops the search early; otherwise the iteration budget
// bounds the run.
//
// The mutation schedule and the scoring estimator are small capability
// interfaces so callers can swap either without touching the loop.
package optimizer
