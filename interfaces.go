package router

import (
	"fmt"
	"net"
	"sync"
)

// InterfaceRecord describes one router-owned network interface: its
// name, link-layer address, and the IPv4 address the router answers
// to on that interface.
type InterfaceRecord struct {
	Name     string
	LinkAddr net.HardwareAddr
	NetAddr  net.IP
}

// InterfaceTable is a read-mostly registry of the router's own
// interfaces, indexed by name and by IPv4 address.
type InterfaceTable struct {
	mu       sync.RWMutex
	byName   map[string]*InterfaceRecord
	byAddr   map[string]*InterfaceRecord
	ordered  []*InterfaceRecord
}

// NewInterfaceTable builds an InterfaceTable from a set of records.
func NewInterfaceTable(records []InterfaceRecord) (*InterfaceTable, error) {
	t := &InterfaceTable{
		byName: make(map[string]*InterfaceRecord, len(records)),
		byAddr: make(map[string]*InterfaceRecord, len(records)),
	}
	for i := range records {
		r := records[i]
		if _, dup := t.byName[r.Name]; dup {
			return nil, fmt.Errorf("interface table: duplicate interface name %q", r.Name)
		}
		if _, dup := t.byAddr[r.NetAddr.String()]; dup {
			return nil, fmt.Errorf("interface table: duplicate interface address %q", r.NetAddr)
		}
		rec := r
		t.byName[rec.Name] = &rec
		t.byAddr[rec.NetAddr.String()] = &rec
		t.ordered = append(t.ordered, &rec)
	}
	return t, nil
}

// ByName returns the interface record with the given name, if any.
func (t *InterfaceTable) ByName(name string) (*InterfaceRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.byName[name]
	return r, ok
}

// ByAddr returns the interface record owning addr, if any.
func (t *InterfaceTable) ByAddr(addr net.IP) (*InterfaceRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.byAddr[addr.To4().String()]
	return r, ok
}

// All returns every registered interface, in the order given to
// NewInterfaceTable.
func (t *InterfaceTable) All() []*InterfaceRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*InterfaceRecord, len(t.ordered))
	copy(out, t.ordered)
	return out
}
