package registry

import (
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/metaestate/showroom/backend/model"
)

func TestRegisterFirstConnectionBecomesBroker(t *testing.T) {
	reg := New()

	p1 := reg.Register("c1")
	p2 := reg.Register("c2")
	p3 := reg.Register("c3")

	if p1.Role != model.RoleBroker {
		t.Errorf("first participant role = %s, want broker", p1.Role)
	}
	if p2.Role != model.RoleClient || p3.Role != model.RoleClient {
		t.Errorf("subsequent roles = %s, %s, want client, client", p2.Role, p3.Role)
	}
	if p1.Name != "SALES ADMIN" || p1.Color != "#f1c40f" {
		t.Errorf("broker identity = %q %q, want fixed admin label and color", p1.Name, p1.Color)
	}
	if got := reg.BrokerCount(); got != 1 {
		t.Errorf("broker count = %d, want 1", got)
	}
}

func TestRegisterConcurrentElectsSingleBroker(t *testing.T) {
	reg := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			reg.Register(fmt.Sprintf("c%d", n))
		}(i)
	}
	wg.Wait()

	if got := reg.BrokerCount(); got != 1 {
		t.Errorf("broker count after 50 concurrent registrations = %d, want exactly 1", got)
	}
	if got := reg.Len(); got != 50 {
		t.Errorf("registry size = %d, want 50", got)
	}
}

func TestRegisterGuestIdentity(t *testing.T) {
	reg := New()
	reg.Register("broker")
	p := reg.Register("guest")

	if ok, _ := regexp.MatchString(`^Guest \d{1,3}$`, p.Name); !ok {
		t.Errorf("guest name = %q, want Guest <n>", p.Name)
	}
	if ok, _ := regexp.MatchString(`^#[0-9a-f]{6}$`, p.Color); !ok {
		t.Errorf("guest color = %q, want 24-bit hex", p.Color)
	}
	if p.Position[2] < 5 || p.Position[2] > 10 {
		t.Errorf("initial z = %f, want within [5, 10]", p.Position[2])
	}
}

func TestUpdatePositionUnknownIDDropped(t *testing.T) {
	reg := New()
	if reg.UpdatePosition("ghost", model.Position{1, 2, 3}, nil) {
		t.Error("update for unregistered id reported success")
	}
}

func TestUpdatePositionOverwritesInPlace(t *testing.T) {
	reg := New()
	reg.Register("c1")

	rot := &model.Position{0, 1.5, 0}
	if !reg.UpdatePosition("c1", model.Position{7, 0, -2}, rot) {
		t.Fatal("update for registered id dropped")
	}

	p, ok := reg.Get("c1")
	if !ok {
		t.Fatal("participant vanished after update")
	}
	if p.Position != (model.Position{7, 0, -2}) {
		t.Errorf("position = %v, want [7 0 -2]", p.Position)
	}
	if p.Rotation == nil || *p.Rotation != (model.Position{0, 1.5, 0}) {
		t.Errorf("rotation = %v, want [0 1.5 0]", p.Rotation)
	}
}

func TestUnregisterBrokerLeavesRoleVacant(t *testing.T) {
	reg := New()
	reg.Register("broker")
	reg.Register("guest")

	if !reg.Unregister("broker") {
		t.Fatal("unregister of live connection reported missing")
	}

	// Known gap: no re-election, the broker count drops to zero and stays
	// there for the life of the process.
	if got := reg.BrokerCount(); got != 0 {
		t.Errorf("broker count after broker left = %d, want 0", got)
	}
	if _, ok := reg.Get("broker"); ok {
		t.Error("unregistered id still resolvable")
	}
	if reg.Unregister("broker") {
		t.Error("second unregister reported success")
	}

	// A later registration into a non-empty registry must not claim the
	// vacant role.
	if p := reg.Register("late"); p.Role != model.RoleClient {
		t.Errorf("late joiner role = %s, want client", p.Role)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	reg := New()
	reg.Register("c1")

	snap := reg.Snapshot()
	mutated := snap["c1"]
	mutated.Position = model.Position{99, 99, 99}
	snap["c1"] = mutated

	p, _ := reg.Get("c1")
	if p.Position == (model.Position{99, 99, 99}) {
		t.Error("mutating a snapshot leaked into the registry")
	}
}
