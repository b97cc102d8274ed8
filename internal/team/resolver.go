package team

import "strings"

// Leader is the identity the registration itself was submitted under.
type Leader struct {
	Name       string
	Email      string
	RollNumber string
}

// MatchKind records which field identified a member as the leader.
type MatchKind int

const (
	NoMatch MatchKind = iota
	MatchEmail
	MatchName
	MatchRoll
)

func (k MatchKind) String() string {
	switch k {
	case MatchEmail:
		return "email"
	case MatchName:
		return "name"
	case MatchRoll:
		return "roll_number"
	default:
		return "none"
	}
}

// MatchLeader compares member against leader on email, then name, then
// roll number; the first field equal on both sides decides. Blank values
// never match.
func MatchLeader(leader Leader, member Member) MatchKind {
	if fold(member.Email) != "" && fold(member.Email) == fold(leader.Email) {
		return MatchEmail
	}
	if fold(member.Name) != "" && fold(member.Name) == fold(leader.Name) {
		return MatchName
	}
	if fold(member.RollNumber) != "" && fold(member.RollNumber) == fold(leader.RollNumber) {
		return MatchRoll
	}
	return NoMatch
}

// AdditionalMembers returns the members other than the leader, dropping
// records with no identifying field.
func AdditionalMembers(leader Leader, members []Member) []Member {
	out := make([]Member, 0, len(members))
	for _, m := range members {
		if m.IsBlank() {
			continue
		}
		if MatchLeader(leader, m) != NoMatch {
			continue
		}
		out = append(out, m)
	}
	return out
}

// IsTeamMember reports whether email belongs to the leader or to any member.
func IsTeamMember(leader Leader, members []Member, email string) bool {
	want := NormalizeEmail(email)
	if want == "" {
		return false
	}
	if NormalizeEmail(leader.Email) == want {
		return true
	}
	for _, m := range members {
		if NormalizeEmail(m.Email) == want {
			return true
		}
	}
	return false
}

// Emails returns the distinct, normalized addresses of leader and members,
// leader first.
func Emails(leader Leader, members []Member) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(e string) {
		e = NormalizeEmail(e)
		if e == "" || seen[e] {
			return
		}
		seen[e] = true
		out = append(out, e)
	}
	add(leader.Email)
	for _, m := range members {
		add(m.Email)
	}
	return out
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
