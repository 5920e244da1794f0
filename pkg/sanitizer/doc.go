// Package sanitizer normalizes user supplied text before validation and
// uniqueness checks.
//
// All functions are idempotent. Applying them twice gives the same result.
//
// Normalization includes:
//   - Free text (titles, authors, names): trim and collapse inner whitespace
//   - Emails: trim and lowercase, so uniqueness is case-insensitive
//   - Identifiers (ISBN, phone): trim only
//   - Optional fields: nil stays nil, blank becomes nil
package sanitizer
