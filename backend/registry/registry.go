package registry

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/metaestate/showroom/backend/model"
)

const (
	brokerName  = "SALES ADMIN"
	brokerColor = "#f1c40f"
)

// Registry owns the canonical map of live connections to participants.
// All mutation goes through the mutex, so the broker check-and-assign on
// Register is atomic: two near-simultaneous first connections cannot both
// observe an empty registry.
type Registry struct {
	mx           *sync.Mutex
	participants map[string]*model.Participant
}

func New() *Registry {
	return &Registry{
		mx:           &sync.Mutex{},
		participants: make(map[string]*model.Participant),
	}
}

// Register creates a participant for a freshly accepted connection. The
// first registration into an empty registry becomes the broker, everyone
// else a client. Registration cannot fail: there is no capacity limit and
// connection ids are unique by construction.
func (r *Registry) Register(id string) model.Participant {
	r.mx.Lock()
	defer r.mx.Unlock()

	role := model.RoleClient
	if len(r.participants) == 0 {
		role = model.RoleBroker
	}

	name, color := brokerName, brokerColor
	if role != model.RoleBroker {
		name = fmt.Sprintf("Guest %d", rand.Intn(1000))
		color = fmt.Sprintf("#%06x", rand.Intn(0x1000000))
	}

	p := &model.Participant{
		ID:    id,
		Role:  role,
		Name:  name,
		Color: color,
		Position: model.Position{
			(rand.Float64() - 0.5) * 6,
			0,
			5 + rand.Float64()*5,
		},
	}

	r.participants[id] = p
	return *p
}

// UpdatePosition overwrites a participant's transform in place. Unknown ids
// are dropped silently, per the registry's no-error contract.
func (r *Registry) UpdatePosition(id string, pos model.Position, rot *model.Position) bool {
	r.mx.Lock()
	defer r.mx.Unlock()

	p, ok := r.participants[id]
	if !ok {
		return false
	}
	p.Position = pos
	if rot != nil {
		p.Rotation = rot
	}
	return true
}

// Unregister deletes the record for a disconnected participant. If the
// departing participant held the broker role, the role simply vanishes:
// there is no re-election, and the listing stays unmodifiable until the
// process restarts.
func (r *Registry) Unregister(id string) bool {
	r.mx.Lock()
	defer r.mx.Unlock()

	_, ok := r.participants[id]
	delete(r.participants, id)
	return ok
}

func (r *Registry) Get(id string) (model.Participant, bool) {
	r.mx.Lock()
	defer r.mx.Unlock()

	p, ok := r.participants[id]
	if !ok {
		return model.Participant{}, false
	}
	return *p, true
}

// Snapshot returns a copy of the full participant map, safe to marshal
// outside the lock.
func (r *Registry) Snapshot() map[string]model.Participant {
	r.mx.Lock()
	defer r.mx.Unlock()

	out := make(map[string]model.Participant, len(r.participants))
	for id, p := range r.participants {
		out[id] = *p
	}
	return out
}

func (r *Registry) Len() int {
	r.mx.Lock()
	defer r.mx.Unlock()
	return len(r.participants)
}

// BrokerCount reports how many registered participants hold the broker
// role. Expected to be 0 or 1.
func (r *Registry) BrokerCount() int {
	r.mx.Lock()
	defer r.mx.Unlock()

	n := 0
	for _, p := range r.participants {
		if p.Role == model.RoleBroker {
			n++
		}
	}
	return n
}
