// Package value provides the dynamic value model that crosses the boundary
// between JSON-shaped caller input/output and SQLite's native storage classes.
//
// A Value is one of exactly five variants, mirroring SQLite storage classes:
//   - Null
//   - Integer (int64)
//   - Real (float64, always finite at the boundary)
//   - Text (UTF-8 string)
//   - Blob (byte sequence)
//
// Blobs are encoded at the boundary as a JSON array of integers in [0,255],
// one element per byte, order preserved. The JSON-like value model has no
// byte buffer type, so Parse and Blob.MarshalJSON are the only two places that
// know about this encoding.
//
// This package imports nothing internal; bind, migrate and store build on it.
package value
