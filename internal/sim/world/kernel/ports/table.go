// Package ports owns port identity and the symmetric peer relation.
package ports

import (
	"fmt"
	"sort"

	"proofline.ai/internal/sim/world/kernel/model"
)

// Table assigns PortIDs and resolves them. Links are stored on both ends as
// peer IDs, so dropping a port can never leave a dangling pointer.
type Table struct {
	next model.PortID
	byID map[model.PortID]*model.Port
}

func NewTable() *Table {
	return &Table{byID: map[model.PortID]*model.Port{}}
}

// Register gives p a fresh ID. Registering an already registered port is a no-op.
func (t *Table) Register(p *model.Port) model.PortID {
	if p.ID != 0 && t.byID[p.ID] == p {
		return p.ID
	}
	t.next++
	p.ID = t.next
	p.Peer = 0
	t.byID[p.ID] = p
	return p.ID
}

func (t *Table) RegisterAll(m model.Machine) {
	for _, p := range m.Core().Ports {
		t.Register(p)
	}
}

// Release unlinks p and forgets it.
func (t *Table) Release(p *model.Port) {
	if p == nil || p.ID == 0 {
		return
	}
	t.Unlink(p)
	delete(t.byID, p.ID)
	p.ID = 0
}

func (t *Table) ReleaseAll(m model.Machine) {
	for _, p := range m.Core().Ports {
		t.Release(p)
	}
}

func (t *Table) Get(id model.PortID) *model.Port {
	if id == 0 {
		return nil
	}
	return t.byID[id]
}

// PeerOf returns the port linked to p, or nil.
func (t *Table) PeerOf(p *model.Port) *model.Port {
	if p == nil {
		return nil
	}
	return t.Get(p.Peer)
}

// Link connects a and b after unlinking whatever either was linked to.
func (t *Table) Link(a, b *model.Port) error {
	if t.Get(a.ID) != a || t.Get(b.ID) != b {
		return fmt.Errorf("link %v <-> %v: port not registered", a, b)
	}
	if !a.CanConnectTo(b) {
		return fmt.Errorf("link %v <-> %v: ports do not face each other", a, b)
	}
	if a.Peer == b.ID && b.Peer == a.ID {
		return nil
	}
	t.Unlink(a)
	t.Unlink(b)
	a.Peer, b.Peer = b.ID, a.ID
	return nil
}

// Unlink clears p's link on both ends.
func (t *Table) Unlink(p *model.Port) {
	if p == nil || p.Peer == 0 {
		return
	}
	if q := t.Get(p.Peer); q != nil && q.Peer == p.ID {
		q.Peer = 0
	}
	p.Peer = 0
}

func (t *Table) Len() int { return len(t.byID) }

// CheckSymmetry verifies that every link is mutual, geometric and between
// ports that are still registered.
func (t *Table) CheckSymmetry() error {
	ids := make([]model.PortID, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		p := t.byID[id]
		if p.ID != id {
			return fmt.Errorf("port %v registered under %d", p, id)
		}
		if p.Peer == 0 {
			continue
		}
		q := t.byID[p.Peer]
		if q == nil {
			return fmt.Errorf("port %v linked to released port %d", p, p.Peer)
		}
		if q.Peer != p.ID {
			return fmt.Errorf("link %v -> %v is not mutual", p, q)
		}
		if !p.CanConnectTo(q) {
			return fmt.Errorf("linked ports %v and %v do not face each other", p, q)
		}
	}
	return nil
}
