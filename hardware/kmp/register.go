package kmp

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

type RegisterID uint16

func (id RegisterID) String() string { return fmt.Sprintf("0x%04x", uint16(id)) }

// ParseRegisterID accepts decimal, 0x hex or bare 4 digit hex.
func ParseRegisterID(s string) (RegisterID, error) {
	s = strings.TrimSpace(s)
	base := 0
	if len(s) == 4 && !strings.HasPrefix(s, "0x") {
		base = 16
	}
	u, err := strconv.ParseUint(s, base, 16)
	if err != nil {
		return 0, errors.NotValidf("register id=%q", s)
	}
	return RegisterID(u), nil
}

type Register struct {
	ID    RegisterID
	Label string
	Unit  string
}

func (self Register) String() string {
	if self.Unit == "" {
		return fmt.Sprintf("%s %s", self.ID, self.Label)
	}
	return fmt.Sprintf("%s %s [%s]", self.ID, self.Label, self.Unit)
}

// Registry maps register id to display label, keeps insertion order.
// Not safe for concurrent modification; build once at startup.
type Registry struct {
	byID  map[RegisterID]Register
	order []RegisterID
}

func NewRegistry(rs ...Register) *Registry {
	self := &Registry{byID: make(map[RegisterID]Register, len(rs))}
	for _, r := range rs {
		self.Add(r)
	}
	return self
}

// Add inserts or replaces register, replaced one keeps its position.
func (self *Registry) Add(r Register) {
	if _, ok := self.byID[r.ID]; !ok {
		self.order = append(self.order, r.ID)
	}
	self.byID[r.ID] = r
}

func (self *Registry) Get(id RegisterID) (Register, bool) {
	r, ok := self.byID[id]
	return r, ok
}

func (self *Registry) Label(id RegisterID) string {
	if r, ok := self.byID[id]; ok {
		return r.Label
	}
	return id.String()
}

// FindLabel is case insensitive exact match.
func (self *Registry) FindLabel(label string) (Register, bool) {
	for _, id := range self.order {
		r := self.byID[id]
		if strings.EqualFold(r.Label, label) {
			return r, true
		}
	}
	return Register{}, false
}

func (self *Registry) Len() int { return len(self.order) }

func (self *Registry) List() []Register {
	rs := make([]Register, 0, len(self.order))
	for _, id := range self.order {
		rs = append(rs, self.byID[id])
	}
	return rs
}

func (self *Registry) SortedIDs() []RegisterID {
	ids := append([]RegisterID(nil), self.order...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

var defaultRegisters = []Register{
	{0x0001, "Energy in", "kWh"},
	{0x0002, "Energy out", "kWh"},
	{0x000d, "Energy in hi-res", "kWh"},
	{0x000e, "Energy out hi-res", "kWh"},
	{0x03ff, "Power in", "W"},
	{0x0400, "Power out", "W"},
	{0x041e, "Voltage p1", "V"},
	{0x041f, "Voltage p2", "V"},
	{0x0420, "Voltage p3", "V"},
	{0x0434, "Current p1", "A"},
	{0x0435, "Current p2", "A"},
	{0x0436, "Current p3", "A"},
	{0x0438, "Power p1", "W"},
	{0x0439, "Power p2", "W"},
	{0x043a, "Power p3", "W"},
}

// DefaultRegistry returns fresh copy of well known electricity meter registers.
func DefaultRegistry() *Registry { return NewRegistry(defaultRegisters...) }
