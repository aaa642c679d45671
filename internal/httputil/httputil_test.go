package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOptionalString(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantPresent bool
		wantValue   *string
	}{
		{name: "absent", body: `{}`, wantPresent: false},
		{name: "null", body: `{"parent_id": null}`, wantPresent: true},
		{name: "value", body: `{"parent_id": "abc"}`, wantPresent: true, wantValue: strPtr("abc")},
		{name: "empty", body: `{"parent_id": ""}`, wantPresent: true, wantValue: strPtr("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dto struct {
				ParentID OptionalString `json:"parent_id"`
			}
			if err := json.Unmarshal([]byte(tt.body), &dto); err != nil {
				t.Fatal(err)
			}
			if dto.ParentID.Present != tt.wantPresent {
				t.Errorf("present = %v", dto.ParentID.Present)
			}
			switch {
			case tt.wantValue == nil && dto.ParentID.Value != nil:
				t.Errorf("value = %q, want nil", *dto.ParentID.Value)
			case tt.wantValue != nil && (dto.ParentID.Value == nil || *dto.ParentID.Value != *tt.wantValue):
				t.Errorf("value = %v, want %q", dto.ParentID.Value, *tt.wantValue)
			}
		})
	}
}

func TestRespondErrorWithExtras(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondErrorWithExtras(rec, http.StatusBadGateway, "commit failed", map[string]interface{}{
		"phase":  "update",
		"status": 200, // must not override
	})

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content type = %q", ct)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["phase"] != "update" || body["status"] != float64(http.StatusBadGateway) || body["detail"] != "commit failed" {
		t.Errorf("body = %v", body)
	}
}

func TestParseJSON(t *testing.T) {
	var dest map[string]interface{}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a": 1}`))
	if err := ParseJSON(httptest.NewRecorder(), req, &dest); err != nil || dest["a"] != float64(1) {
		t.Errorf("dest=%v err=%v", dest, err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	if err := ParseJSON(httptest.NewRecorder(), req, &dest); err == nil {
		t.Error("empty body should fail")
	}

	big := `{"content": "` + strings.Repeat("x", maxBodyBytes) + `"}`
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	if err := ParseJSON(httptest.NewRecorder(), req, &dest); err != ErrBodyTooLarge {
		t.Errorf("oversized body: got %v", err)
	}
}

func strPtr(s string) *string { return &s }
