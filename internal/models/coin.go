package models

import "time"

// SemesterGrantWeek is the reserved week number for semester-level coin
// grants, which sit outside the weekly range.
const SemesterGrantWeek = 0

// CoinGrant is the audit row for one coin settlement. Undo reverses
// exactly Amount; the formula is never re-evaluated to reconstruct it.
type CoinGrant struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Week      int       `json:"week"`
	Amount    int       `json:"amount"`
	GrantedAt time.Time `json:"granted_at"`
}
