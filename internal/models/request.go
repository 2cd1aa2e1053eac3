// Package models holds the shared data types for the user data download
// service: requests, accounts, upload schemas, and pre-signed URL results.
package models

import (
	"encoding/json"
	"fmt"
)

// ValidationError indicates a request that fails validation. No work is
// started for an invalid request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

// Request is a request to package a user's study data over an inclusive
// date range. Unknown JSON fields are ignored.
type Request struct {
	StudyID   string `json:"studyId"`
	UserID    string `json:"userId"`
	StartDate Date   `json:"startDate"`
	EndDate   Date   `json:"endDate"`
}

// ParseRequest decodes and validates a JSON request.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("malformed request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// Validate checks that all fields are present and that the date range is
// well formed.
func (r *Request) Validate() error {
	if r.StudyID == "" {
		return &ValidationError{Field: "studyId", Reason: "must be specified"}
	}
	if r.UserID == "" {
		return &ValidationError{Field: "userId", Reason: "must be specified"}
	}
	if r.StartDate.IsZero() {
		return &ValidationError{Field: "startDate", Reason: "must be specified"}
	}
	if r.EndDate.IsZero() {
		return &ValidationError{Field: "endDate", Reason: "must be specified"}
	}
	if r.StartDate.After(r.EndDate) {
		return &ValidationError{Field: "startDate", Reason: "can't be after endDate"}
	}
	return nil
}
