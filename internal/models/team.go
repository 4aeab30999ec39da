package models

// TeamAdminPolicy picks how the administration group is recognised.
type TeamAdminPolicy string

const (
	TeamAdminByCategory TeamAdminPolicy = "category"
	TeamAdminByRank     TeamAdminPolicy = "rank"
)

// ParseTeamAdminPolicy defaults to the category policy for unknown values.
func ParseTeamAdminPolicy(raw string) TeamAdminPolicy {
	if TeamAdminPolicy(raw) == TeamAdminByRank {
		return TeamAdminByRank
	}
	return TeamAdminByCategory
}

// TeamTier names a roster group.
type TeamTier string

const (
	TierAdministration TeamTier = "administration"
	TierExecutive      TeamTier = "executive"
	TierSecretaries    TeamTier = "secretaries"
	TierCoSecretaries  TeamTier = "co_secretaries"
	TierGeneralCouncil TeamTier = "general_council"
)

// StudentCouncil groups student members by rank tier.
type StudentCouncil struct {
	Executive      []Member `json:"executive"`
	Secretaries    []Member `json:"secretaries"`
	CoSecretaries  []Member `json:"co_secretaries"`
	GeneralCouncil []Member `json:"general_council"`
}

// TeamRoster is the classified team page.
type TeamRoster struct {
	Policy         TeamAdminPolicy `json:"policy"`
	Administration []Member        `json:"administration"`
	StudentCouncil StudentCouncil  `json:"student_council"`
	Skipped        int             `json:"skipped"`
}

// TierGroup pairs a tier with its members.
type TierGroup struct {
	Tier    TeamTier
	Members []Member
}

// Groups returns every tier in display order.
func (r TeamRoster) Groups() []TierGroup {
	return []TierGroup{
		{Tier: TierAdministration, Members: r.Administration},
		{Tier: TierExecutive, Members: r.StudentCouncil.Executive},
		{Tier: TierSecretaries, Members: r.StudentCouncil.Secretaries},
		{Tier: TierCoSecretaries, Members: r.StudentCouncil.CoSecretaries},
		{Tier: TierGeneralCouncil, Members: r.StudentCouncil.GeneralCouncil},
	}
}
