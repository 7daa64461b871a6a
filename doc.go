// Package buckets groups tradable instruments into risk-diversified buckets
// from a pairwise correlation matrix. It is designed to be local-first and
// reproducible: every search takes an explicit seed, and the same inputs always
// produce the same buckets.
//
// The core functionalities include:
//   - Correlation Matrix: an immutable, symmetric table over an ordered
//     universe of instruments, decoded from a symbol × symbol grid or from the
//     pair list exported by the trading platform.
//   - Bucket Partitioning: a seeded multi-restart hill climbing that splits the
//     universe into K balanced buckets while minimizing the number of highly
//     correlated pairs that share a bucket.
//   - Manual Assignments: validation and adoption of a hand-written
//     instrument → bucket mapping in place of the search.
//   - Super Buckets: exhaustive scoring of every merge of 2 or 3 base buckets.
//   - Max Inclusion: a constrained search placing as many instruments as
//     possible into a few buckets without exceeding a per-bucket cap of highly
//     correlated pairs.
//
// This package serves as the foundational logic for the `bkt` command-line
// tool. Rendering the Analysis into documents is done by the renderer package.
package buckets
