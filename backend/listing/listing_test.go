package listing

import (
	"regexp"
	"testing"

	"github.com/metaestate/showroom/backend/model"
)

func TestNewListingDefaults(t *testing.T) {
	l := New()
	state := l.State()

	if state.Status != model.StatusForSale {
		t.Errorf("initial status = %s, want FOR_SALE", state.Status)
	}
	if state.Preset != "city" {
		t.Errorf("initial preset = %q, want city", state.Preset)
	}
	if state.LightsOn {
		t.Error("lights on at start, want off")
	}
}

func TestSellAndReset(t *testing.T) {
	l := New()

	l.Sell()
	if got := l.Status(); got != model.StatusSold {
		t.Errorf("status after sell = %s, want SOLD", got)
	}

	l.Reset()
	if got := l.Status(); got != model.StatusForSale {
		t.Errorf("status after reset = %s, want FOR_SALE", got)
	}
}

func TestToggleLightsFlips(t *testing.T) {
	l := New()
	if !l.ToggleLights() {
		t.Error("first toggle = false, want true")
	}
	if l.ToggleLights() {
		t.Error("second toggle = true, want false")
	}
}

func TestSetPreset(t *testing.T) {
	l := New()
	l.SetPreset("sunset")
	if got := l.State().Preset; got != "sunset" {
		t.Errorf("preset = %q, want sunset", got)
	}
}

func TestMintCertificateShape(t *testing.T) {
	cert := MintCertificate("Guest 42")

	if ok, _ := regexp.MatchString(`^0x[0-9A-F]{40}$`, cert.Hash); !ok {
		t.Errorf("hash = %q, want 0x plus 40 uppercase hex chars", cert.Hash)
	}
	if cert.Price != Price {
		t.Errorf("price = %d, want %d", cert.Price, Price)
	}
	if cert.BuyerName != "Guest 42" {
		t.Errorf("buyer = %q, want Guest 42", cert.BuyerName)
	}
	if cert.Timestamp == "" {
		t.Error("timestamp empty")
	}
}

func TestMintCertificateIndependentRecords(t *testing.T) {
	// A reset followed by a new sale mints an unrelated certificate;
	// nothing ties two records together.
	a := MintCertificate("Guest 1")
	b := MintCertificate("Guest 1")
	if a.Hash == b.Hash {
		t.Errorf("two certificates share hash %s", a.Hash)
	}
}
