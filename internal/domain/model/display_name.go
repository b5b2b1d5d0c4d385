package model

import "encoding/json"

type DisplayNameKind string

const (
	DisplayIndividual DisplayNameKind = "individual"
	DisplayTeam       DisplayNameKind = "team"

	UnknownDisplayName = "Unknown"
)

// DisplayName is either Individual{name} or Team{name}. It is resolved once
// when a row is read so callers never branch on is_team themselves.
type DisplayName struct {
	Kind DisplayNameKind
	Name string
}

func Individual(name string) DisplayName {
	return DisplayName{Kind: DisplayIndividual, Name: name}
}

func TeamName(name string) DisplayName {
	return DisplayName{Kind: DisplayTeam, Name: name}
}

// ResolveDisplayName picks the team name for team users when one is on record,
// and falls back to the user's own name otherwise.
func ResolveDisplayName(userName string, isTeam bool, teamName *string) DisplayName {
	if isTeam {
		if teamName != nil && *teamName != "" {
			return TeamName(*teamName)
		}
		return TeamName(orUnknown(userName))
	}
	return Individual(orUnknown(userName))
}

func (d DisplayName) IsTeam() bool { return d.Kind == DisplayTeam }

func (d DisplayName) String() string {
	if d.Name == "" {
		return UnknownDisplayName
	}
	return d.Name
}

func (d DisplayName) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind DisplayNameKind `json:"kind"`
		Name string          `json:"name"`
	}{Kind: d.Kind, Name: d.String()})
}

func orUnknown(name string) string {
	if name == "" {
		return UnknownDisplayName
	}
	return name
}
