// Package core provides the domain logic behind a run's CSV tables card.
//
// The package knows nothing about HTTP handlers or HTML. Web handlers, the
// CLI and tests all drive it through the same types.
//
// # Pipeline
//
//  1. [FilterCSV] keeps the artifacts whose name or path ends in ".csv".
//  2. A [Board] is mounted for those artifacts; it holds the record list
//     and loading flags for one card.
//  3. [Loader.LoadAll] fetches every artifact concurrently. Local files go
//     through the run's artifact endpoint (run ID from the page path, see
//     [RunIDFromPath]); remote URIs are fetched directly.
//  4. [ParseCSV] turns the text into columns and rows, and the outcome is
//     stored with [Board.Put], replacing any earlier record of that name.
//  5. When a local file is unreachable, [Loader.Upload] accepts the file
//     from the user instead.
//
// # Parsing
//
// The parser is a plain comma split. Quoted fields containing commas or
// newlines are misaligned; this matches the card's historical behaviour.
//
// # Error Handling
//
// Failures stay inside the affected artifact's record. HTTP-level errors
// are mapped to user-facing messages with [MapError]:
//
//   - ART001-ART003: artifact errors
//   - RUN001-RUN002, CARD001: run and card lookup
//   - NET001-NET003: fetch errors
//   - FILE001-FILE002: file errors
//   - LOAD001, RATE001: capacity
package core
