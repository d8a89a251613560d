package phone

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"whatsapp:+212612345678":      "+212612345678",
		"WhatsApp:+212 6-12 34 56 78": "+212612345678",
		"whatsapp: +212612345678":     "+212612345678",
		"+212 (6) 12 34 56 78":        "+212612345678",
		"00212612345678":              "+212612345678",
		"0612345678":                  "+212612345678",
		"06 12 34 56 78":              "+212612345678",
		"  +33612345678 ":             "+33612345678",
		"whatsapp:+14155238886":       "+14155238886",
		"":                            "",
		"whatsapp:":                   "",
		"not a number":                "",
	}

	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWhatsAppRoundTripsWithNormalize(t *testing.T) {
	t.Parallel()

	addr := WhatsApp("+212 612 345 678")
	if addr != "whatsapp:+212612345678" {
		t.Fatalf("WhatsApp() = %q", addr)
	}
	if Normalize(addr) != "+212612345678" {
		t.Fatalf("Normalize(WhatsApp()) = %q", Normalize(addr))
	}
	if WhatsApp("") != "" {
		t.Fatal("WhatsApp(\"\") must be empty")
	}
}
