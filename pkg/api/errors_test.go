package api

import (
	"encoding/json"
	"testing"
)

func TestAuthenticationFailure_Envelope(t *testing.T) {
	e := AuthenticationFailure("Missing credentials")

	if e.Status != 401 {
		t.Errorf("Status = %d, want 401", e.Status)
	}
	if e.Name != "Authentication failure" {
		t.Errorf("Name = %q, want %q", e.Name, "Authentication failure")
	}

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"error":"Authentication failure","text":"Missing credentials","status":401}`
	if string(data) != want {
		t.Errorf("JSON = %s, want %s", data, want)
	}
}

func TestBadToken_MatchesAuthenticationFailure(t *testing.T) {
	e := BadToken()
	if e.Name != "Authentication failure" || e.Text != "Bad API token" || e.Status != 401 {
		t.Errorf("BadToken = %+v", e)
	}
}

func TestAuthenticationTypeFailure_Status(t *testing.T) {
	e := AuthenticationTypeFailure("kerberos")
	if e.Status != 400 {
		t.Errorf("Status = %d, want 400", e.Status)
	}
	if e.Text != "kerberos is not a valid authentication type" {
		t.Errorf("Text = %q", e.Text)
	}
}

func TestError_Error(t *testing.T) {
	e := ObjectNotFound("project")
	if e.Error() != "Object not found: Nonexistent project" {
		t.Errorf("Error() = %q", e.Error())
	}
}
