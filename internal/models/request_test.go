package models

import (
	"errors"
	"testing"
)

func TestParseRequest(t *testing.T) {
	raw := []byte(`{"studyId":"test-study","userId":"test-user","startDate":"2015-03-09","endDate":"2015-09-17","extra":"ignored"}`)
	req, err := ParseRequest(raw)
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	if req.StudyID != "test-study" {
		t.Errorf("StudyID = %q, want test-study", req.StudyID)
	}
	if req.UserID != "test-user" {
		t.Errorf("UserID = %q, want test-user", req.UserID)
	}
	if req.StartDate.String() != "2015-03-09" {
		t.Errorf("StartDate = %s, want 2015-03-09", req.StartDate)
	}
	if req.EndDate.String() != "2015-09-17" {
		t.Errorf("EndDate = %s, want 2015-09-17", req.EndDate)
	}
}

func TestParseRequestMalformed(t *testing.T) {
	if _, err := ParseRequest([]byte(`{not json`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
	if _, err := ParseRequest([]byte(`{"studyId":"s","userId":"u","startDate":"03/09/2015","endDate":"2015-09-17"}`)); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestRequestValidation(t *testing.T) {
	start, _ := ParseDate("2015-03-09")
	end, _ := ParseDate("2015-09-17")

	cases := []struct {
		name      string
		req       Request
		wantField string
	}{
		{"missing study", Request{UserID: "u", StartDate: start, EndDate: end}, "studyId"},
		{"missing user", Request{StudyID: "s", StartDate: start, EndDate: end}, "userId"},
		{"missing start", Request{StudyID: "s", UserID: "u", EndDate: end}, "startDate"},
		{"missing end", Request{StudyID: "s", UserID: "u", StartDate: start}, "endDate"},
		{"start after end", Request{StudyID: "s", UserID: "u", StartDate: end, EndDate: start}, "startDate"},
	}
	for _, c := range cases {
		err := c.req.Validate()
		if err == nil {
			t.Errorf("%s: expected validation error", c.name)
			continue
		}
		var valErr *ValidationError
		if !errors.As(err, &valErr) {
			t.Errorf("%s: error type = %T, want *ValidationError", c.name, err)
			continue
		}
		if valErr.Field != c.wantField {
			t.Errorf("%s: field = %q, want %q", c.name, valErr.Field, c.wantField)
		}
	}

	valid := Request{StudyID: "s", UserID: "u", StartDate: start, EndDate: end}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid request failed validation: %v", err)
	}

	// Single-day ranges are allowed.
	sameDay := Request{StudyID: "s", UserID: "u", StartDate: start, EndDate: start}
	if err := sameDay.Validate(); err != nil {
		t.Errorf("same-day range failed validation: %v", err)
	}
}

func TestDateRoundTrip(t *testing.T) {
	d, err := ParseDate("2015-09-17")
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	out, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	if string(out) != `"2015-09-17"` {
		t.Errorf("MarshalJSON = %s", out)
	}

	var parsed Date
	if err := parsed.UnmarshalJSON(out); err != nil {
		t.Fatalf("UnmarshalJSON failed: %v", err)
	}
	if parsed != d {
		t.Errorf("round trip mismatch: %v != %v", parsed, d)
	}
}

func TestDateAfter(t *testing.T) {
	a, _ := ParseDate("2015-03-09")
	b, _ := ParseDate("2015-03-10")
	c, _ := ParseDate("2016-01-01")

	if a.After(b) {
		t.Error("2015-03-09 should not be after 2015-03-10")
	}
	if !b.After(a) {
		t.Error("2015-03-10 should be after 2015-03-09")
	}
	if !c.After(b) {
		t.Error("2016-01-01 should be after 2015-03-10")
	}
	if a.After(a) {
		t.Error("a date is not after itself")
	}
}
