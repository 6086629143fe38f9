package models

// InventoryItem is one stack of functional items a student owns.
type InventoryItem struct {
	ItemID string `json:"item_id"`
	Count  int    `json:"count"`
}

// Student carries the reward-economy state. The conduct ledger only
// ever references a student by ID and never embeds this struct.
type Student struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Active       bool            `json:"active"`
	Balance      int             `json:"balance"`
	Badges       []string        `json:"badges"`
	OwnedAvatars []string        `json:"owned_avatars"`
	OwnedFrames  []string        `json:"owned_frames"`
	Inventory    []InventoryItem `json:"inventory"`
	SeatPriority bool            `json:"seat_priority"`
}

// HasBadge reports whether the badge is currently held.
func (s *Student) HasBadge(badgeID string) bool {
	for _, id := range s.Badges {
		if id == badgeID {
			return true
		}
	}
	return false
}

// GrantBadge adds the badge if absent.
func (s *Student) GrantBadge(badgeID string) {
	if s.HasBadge(badgeID) {
		return
	}
	s.Badges = append(s.Badges, badgeID)
}

// RevokeBadge removes the badge if held.
func (s *Student) RevokeBadge(badgeID string) {
	for i, id := range s.Badges {
		if id == badgeID {
			s.Badges = append(s.Badges[:i], s.Badges[i+1:]...)
			return
		}
	}
}

// AddInventory increments the stack for the item, creating it at need.
func (s *Student) AddInventory(itemID string, n int) {
	for i := range s.Inventory {
		if s.Inventory[i].ItemID == itemID {
			s.Inventory[i].Count += n
			return
		}
	}
	s.Inventory = append(s.Inventory, InventoryItem{ItemID: itemID, Count: n})
}

// ConsumeInventory decrements the stack by one, dropping the entry when
// it reaches zero. Returns false when the item is not held.
func (s *Student) ConsumeInventory(itemID string) bool {
	for i := range s.Inventory {
		if s.Inventory[i].ItemID != itemID || s.Inventory[i].Count <= 0 {
			continue
		}
		s.Inventory[i].Count--
		if s.Inventory[i].Count == 0 {
			s.Inventory = append(s.Inventory[:i], s.Inventory[i+1:]...)
		}
		return true
	}
	return false
}
