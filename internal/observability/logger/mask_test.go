package logger

import "testing"

func TestMaskAuthorization(t *testing.T) {
	got := MaskAuthorization("Bearer abcdef1234")
	want := "Bearer ****1234"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestMaskCookie(t *testing.T) {
	got := MaskCookie("session_id=abcdef1234; theme=xyz")
	want := "session_id=****1234; theme=****xyz"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestMaskJSONMasksPaymentMetadata(t *testing.T) {
	input := map[string]any{
		"card_number":  "4111111111111111",
		"session_id":   "sess-12345678",
		"fee_category": "Tuition",
		"nested": map[string]any{
			"api_key": "key_12345678",
		},
	}
	masked := MaskJSON(input)
	if masked["card_number"] != "****1111" {
		t.Fatalf("expected masked card number, got %v", masked["card_number"])
	}
	if masked["session_id"] != "****5678" {
		t.Fatalf("expected masked session, got %v", masked["session_id"])
	}
	if masked["fee_category"] != "Tuition" {
		t.Fatalf("expected fee_category untouched, got %v", masked["fee_category"])
	}
	nested, ok := masked["nested"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested map")
	}
	if nested["api_key"] != "****5678" {
		t.Fatalf("expected masked api_key, got %v", nested["api_key"])
	}
}
