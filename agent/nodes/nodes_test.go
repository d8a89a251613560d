package routernode

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	contractx "github.com/tanpawarit/neemo/agent/contract"
)

func TestNormalizeCanonicalizesSender(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.FixedZone("WEST", 3600))
	st, err := Normalize(context.Background(), GraphInput{From: "whatsapp:+212 6-12 34 56 78", Body: "sed"}, func() time.Time { return now })
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if st.Phone != "+212612345678" {
		t.Fatalf("phone = %q", st.Phone)
	}
	if st.Done {
		t.Fatal("regular message must not finish in normalize")
	}
	if !st.Now.Equal(now) || st.Now.Location() != time.UTC {
		t.Fatalf("now = %v, want UTC", st.Now)
	}
}

func TestNormalizeEmptySender(t *testing.T) {
	t.Parallel()

	st, err := Normalize(context.Background(), GraphInput{From: "whatsapp:", Body: "sed"}, time.Now)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if !st.Done || st.Reply != TechnicalErrorReply {
		t.Fatalf("state = %#v", st)
	}
}

func TestShopList(t *testing.T) {
	t.Parallel()

	got := ShopList([]contractx.ShopRef{{Name: "Hanout A"}, {Name: "Epicerie B"}})
	want := ShopListHeader + "\n1. Hanout A\n2. Epicerie B"
	if got != want {
		t.Fatalf("ShopList() = %q, want %q", got, want)
	}
}

func TestParseSelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		idx  int
		ok   bool
	}{
		{text: "1", idx: 0, ok: true},
		{text: "3", idx: 2, ok: true},
		{text: "4", ok: false},
		{text: "0", ok: false},
		{text: "1.", ok: false},
		{text: "un", ok: false},
	}
	for _, tt := range tests {
		idx, ok := parseSelection(tt.text, 3)
		if ok != tt.ok || (ok && idx != tt.idx) {
			t.Fatalf("parseSelection(%q) = (%d, %v), want (%d, %v)", tt.text, idx, ok, tt.idx, tt.ok)
		}
	}
}

func TestParseImageMode(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]ImageMode{"": ImageModeInvoice, "INVOICE": ImageModeInvoice, " shelf ": ImageModeShelf} {
		got, err := ParseImageMode(raw)
		if err != nil || got != want {
			t.Fatalf("ParseImageMode(%q) = (%q, %v), want %q", raw, got, err, want)
		}
	}
	if _, err := ParseImageMode("selfie"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestSummaries(t *testing.T) {
	t.Parallel()

	inv := InvoiceSummary(contractx.InvoiceExtraction{
		Supplier: "Koutoubia",
		Date:     "01/10/2026",
		Total:    decimal.NewFromInt(25),
		Items:    []contractx.LineItem{{Name: "Cachir", Price: decimal.RequireFromString("12.5"), Quantity: 2}},
	})
	want := "🧾 Facture analysée : Koutoubia (01/10/2026)\n- Cachir x2 à 12.50 DH\nTotal : 25.00 DH"
	if inv != want {
		t.Fatalf("InvoiceSummary() = %q, want %q", inv, want)
	}

	shelf := ShelfSummary(contractx.ShelfExtraction{Products: []contractx.ShelfProduct{{Name: "Lays", Quantity: 4}, {Name: "Huile", Quantity: 1.5}}})
	if shelf != "📦 Produits comptés :\n- Lays : 4\n- Huile : 1.5" {
		t.Fatalf("ShelfSummary() = %q", shelf)
	}
	if ShelfSummary(contractx.ShelfExtraction{}) == "" {
		t.Fatal("empty shelf summary must still say something")
	}
}
