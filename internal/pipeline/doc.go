// Package pipeline turns the full list of patient records into the views the
// registry shows: date filter, free-text search, sort, pagination, dashboard
// aggregates and CSV export. Every stage is a pure function over a slice; the
// input slice is never modified.
package pipeline
