package model

import "strings"

// Payer identifies one of the two household members.
type Payer string

func (p Payer) String() string {
	return string(p)
}

// Participants holds the two identities that can pay for and share expenses.
type Participants struct {
	A Payer
	B Payer
}

// DefaultParticipants returns the household configured out of the box.
func DefaultParticipants() Participants {
	return Participants{A: "Douglas", B: "Lara"}
}

// Resolve maps free text to a participant, ignoring case and surrounding spaces.
func (p Participants) Resolve(text string) (Payer, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return "", false
	}
	switch t {
	case strings.ToLower(string(p.A)):
		return p.A, true
	case strings.ToLower(string(p.B)):
		return p.B, true
	}
	// Tolerate "Lara Silva" or "lara (eu)".
	if strings.Contains(t, strings.ToLower(string(p.A))) {
		return p.A, true
	}
	if strings.Contains(t, strings.ToLower(string(p.B))) {
		return p.B, true
	}
	return "", false
}

// Other returns the participant that is not p.
func (p Participants) Other(payer Payer) Payer {
	if payer == p.B {
		return p.A
	}
	return p.B
}

// DefaultPayer picks the current user when it is a participant, else A.
func (p Participants) DefaultPayer(currentUser string) Payer {
	if payer, ok := p.Resolve(currentUser); ok {
		return payer
	}
	return p.A
}

// Names returns both participant names in order.
func (p Participants) Names() []string {
	return []string{string(p.A), string(p.B)}
}
