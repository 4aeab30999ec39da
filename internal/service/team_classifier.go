package service

import (
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/council-portal-api/internal/models"
)

// ClassifyTeam groups members into the administration and the student council
// tiers. Input order is kept within each tier, so callers pass members sorted by
// rank. Members without a name or with a rank outside 1..7 are left out and
// counted in Skipped.
func ClassifyTeam(members []models.Member, policy models.TeamAdminPolicy, logger *zap.Logger) models.TeamRoster {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy != models.TeamAdminByRank {
		policy = models.TeamAdminByCategory
	}

	roster := models.TeamRoster{
		Policy:         policy,
		Administration: []models.Member{},
		StudentCouncil: models.StudentCouncil{
			Executive:      []models.Member{},
			Secretaries:    []models.Member{},
			CoSecretaries:  []models.Member{},
			GeneralCouncil: []models.Member{},
		},
	}

	for _, member := range members {
		if strings.TrimSpace(member.Name) == "" || member.Rank < models.MinMemberRank || member.Rank > models.MaxMemberRank {
			roster.Skipped++
			logger.Warn("member skipped from roster", zap.String("member_id", member.ID), zap.Int("rank", member.Rank))
			continue
		}
		if isAdministration(member, policy, logger) {
			roster.Administration = append(roster.Administration, member)
			continue
		}
		switch member.Rank {
		case 1, 2, 3, 4:
			roster.StudentCouncil.Executive = append(roster.StudentCouncil.Executive, member)
		case 5:
			roster.StudentCouncil.Secretaries = append(roster.StudentCouncil.Secretaries, member)
		case 6:
			roster.StudentCouncil.CoSecretaries = append(roster.StudentCouncil.CoSecretaries, member)
		default:
			roster.StudentCouncil.GeneralCouncil = append(roster.StudentCouncil.GeneralCouncil, member)
		}
	}
	return roster
}

func isAdministration(member models.Member, policy models.TeamAdminPolicy, logger *zap.Logger) bool {
	if policy == models.TeamAdminByRank {
		return member.Rank <= 2
	}
	switch models.MemberCategory(strings.ToLower(strings.TrimSpace(string(member.Category)))) {
	case models.MemberCategoryAdministration:
		return true
	case models.MemberCategoryStudent, "":
		return false
	default:
		logger.Warn("unknown member category, treating as student", zap.String("member_id", member.ID), zap.String("category", string(member.Category)))
		return false
	}
}
