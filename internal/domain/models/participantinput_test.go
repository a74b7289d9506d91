package models

import (
	"encoding/json"
	"testing"
)

func TestFormValue_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want FormValue
	}{
		{`"21"`, "21"},
		{`21`, "21"},
		{`null`, ""},
		{`""`, ""},
		{`" 7 "`, " 7 "},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got FormValue
			if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
				t.Fatalf("Unmarshal(%s): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Unmarshal(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormValue_Int(t *testing.T) {
	if n, ok := FormValue(" 7 ").Int(); !ok || n != 7 {
		t.Errorf("Int() = %d, %v; want 7, true", n, ok)
	}
	if _, ok := FormValue("seven").Int(); ok {
		t.Error("expected non-numeric value to fail")
	}
}

func TestParticipantInput_FullPhone(t *testing.T) {
	p := ParticipantInput{Phone: "9876543210"}
	if got := p.FullPhone(); got != "+919876543210" {
		t.Errorf("FullPhone() = %q, want default country code", got)
	}
	p.StdCode = "+1"
	if got := p.FullPhone(); got != "+19876543210" {
		t.Errorf("FullPhone() = %q, want +19876543210", got)
	}
}
