package listing

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/metaestate/showroom/backend/model"
)

// Price is the hardcoded asking price shown on certificates.
const Price = 500000

const defaultPreset = "city"

// Listing is the process-wide sale state plus the cosmetic environment
// flags. Everything here is last write wins under a single mutex.
type Listing struct {
	mx       sync.Mutex
	status   model.ListingStatus
	preset   string
	lightsOn bool
}

func New() *Listing {
	return &Listing{
		status: model.StatusForSale,
		preset: defaultPreset,
	}
}

func (l *Listing) Sell() {
	l.mx.Lock()
	l.status = model.StatusSold
	l.mx.Unlock()
}

func (l *Listing) Reset() {
	l.mx.Lock()
	l.status = model.StatusForSale
	l.mx.Unlock()
}

func (l *Listing) Status() model.ListingStatus {
	l.mx.Lock()
	defer l.mx.Unlock()
	return l.status
}

func (l *Listing) SetPreset(preset string) {
	l.mx.Lock()
	l.preset = preset
	l.mx.Unlock()
}

// ToggleLights flips the lights flag and returns the new value.
func (l *Listing) ToggleLights() bool {
	l.mx.Lock()
	defer l.mx.Unlock()
	l.lightsOn = !l.lightsOn
	return l.lightsOn
}

// State returns a consistent view of all listing fields, for the debug API
// and the initial push to new connections.
func (l *Listing) State() model.ListingState {
	l.mx.Lock()
	defer l.mx.Unlock()
	return model.ListingState{
		Status:   l.status,
		Preset:   l.preset,
		LightsOn: l.lightsOn,
	}
}

// MintCertificate builds a one-shot proof-of-sale payload. The hash is a
// random display token and must never feed a trust decision. Certificates
// are not stored: a reset followed by a new sale mints an unrelated one.
func MintCertificate(buyerName string) model.Certificate {
	var b strings.Builder
	b.WriteString("0x")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "%X", rand.Intn(16))
	}
	return model.Certificate{
		Hash:      b.String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Price:     Price,
		BuyerName: buyerName,
	}
}
