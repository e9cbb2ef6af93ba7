package palette

// Role selects the background or sprite color table.
type Role int

const (
	Background Role = iota
	Sprite
)

// RoleCount is the number of palette roles.
const RoleCount = 2

func (r Role) String() string {
	if r == Sprite {
		return "sprite"
	}
	return "background"
}

const (
	entries = 16
	groups  = 4
)

// GroupSet is a bitset of palette groups 0-3.
type GroupSet uint8

// Has reports whether group g is in the set.
func (s GroupSet) Has(g int) bool { return s&(1<<uint(g&3)) != 0 }

// Add adds group g.
func (s *GroupSet) Add(g int) { *s |= 1 << uint(g&3) }

// Empty reports whether no group is set.
func (s GroupSet) Empty() bool { return s == 0 }

// All is the set of every group.
const All GroupSet = 1<<groups - 1

// Tracker compares palettes across frames and records which groups changed.
type Tracker struct {
	packed [RoleCount][entries]uint32
	colors [RoleCount][entries]Color
	dirty  [RoleCount]GroupSet
	primed bool
}

// NewTracker creates a tracker. Its first Update marks every group dirty.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Update compares both palettes against the previous call and returns whether
// any group changed. Dirty sets only describe this call's deltas.
func (t *Tracker) Update(bg, spr [entries]uint32) bool {
	t.dirty[Background] = 0
	t.dirty[Sprite] = 0

	t.update(Background, &bg)
	t.update(Sprite, &spr)

	if !t.primed {
		t.primed = true
		t.dirty[Background] = All
		t.dirty[Sprite] = All
	}

	return !t.dirty[Background].Empty() || !t.dirty[Sprite].Empty()
}

func (t *Tracker) update(role Role, values *[entries]uint32) {
	for i, v := range values {
		if t.primed && t.packed[role][i] == v {
			continue
		}
		t.packed[role][i] = v
		t.colors[role][i] = FromPacked(v)
		t.dirty[role].Add(i >> 2)
	}
}

// Dirty returns the groups of role that changed during the last Update.
func (t *Tracker) Dirty(role Role) GroupSet {
	return t.dirty[role]
}

// Group returns the four current colors of group n (0-3) for role.
func (t *Tracker) Group(role Role, n int) [groups]Color {
	var out [groups]Color
	copy(out[:], t.colors[role][(n&3)*groups:])
	return out
}

// BackgroundColor returns the frame backdrop color (background entry 0).
func (t *Tracker) BackgroundColor() Color {
	return t.colors[Background][0]
}
