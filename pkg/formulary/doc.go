// Package formulary holds the per-locale drug tables the decision engine and
// the state validator read from.
//
// Tables are loaded once (from the embedded defaults and optionally from an
// override directory) and are read-only afterwards, so a single Set may be
// shared by any number of concurrent assessments.
package formulary
