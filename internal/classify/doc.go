// Package classify infers a capture (year, month) from a media filename.
//
// Rules are data: an ordered list of named patterns, each with an extractor
// that maps a match to a candidate date. Every occurrence of a rule's pattern
// is tried before the next rule is consulted, and candidates are accepted
// only when the year lies between the configured floor (1990 by default) and
// the current year and the month is 1..12.
//
// DD-MM-YYYY and MM-DD-YYYY share a shape. DayFirst decides which reading is
// tried first; the other still applies when the first is invalid (for
// example 03-15-2024 can only be March).
package classify
