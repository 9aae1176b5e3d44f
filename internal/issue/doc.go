// Package issue provides the issue record type and its on-disk codec.
//
// Records are stored one per file as YAML front matter followed by a
// markdown body. The title lives in the body as the first H1 heading,
// not in the front matter, so every stored record renders as readable
// markdown on its own.
//
// Key design constraints:
//   - Front matter fields are emitted in a fixed alphabetical order.
//   - Encoding a decoded record reproduces the input byte for byte.
//     The git layer relies on this to detect "nothing changed" writes.
//   - Status parsing is liberal (synonyms accepted), display is
//     canonical (one kebab-case spelling per status).
package issue
