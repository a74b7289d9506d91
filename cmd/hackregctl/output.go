package main

import (
	"encoding/json"
	"fmt"
	"io"
)

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a formatted line.
func outputHuman(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

// ImportResponse is the result of colleges import.
type ImportResponse struct {
	File     string `json:"file"`
	Read     int    `json:"read"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
}

// CollegeEntry is one row of colleges list.
type CollegeEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListResponse is the result of colleges list.
type ListResponse struct {
	Colleges []CollegeEntry `json:"colleges"`
	Total    int            `json:"total"`
}

// ResetResponse is the result of ratelimit reset.
type ResetResponse struct {
	Status string `json:"status"`
	Bucket string `json:"bucket"`
	IP     string `json:"ip"`
}
