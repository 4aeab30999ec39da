package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/council-portal-api/internal/models"
	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
	"github.com/noah-isme/council-portal-api/pkg/export"
)

var rosterHeaders = []string{"Tier", "Name", "Role", "Rank", "Category"}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportResult is a rendered file ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService renders the classified team roster as CSV or PDF.
type ExportService struct {
	members memberLister
	csv     datasetRenderer
	pdf     datasetRenderer
	policy  models.TeamAdminPolicy
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers select the defaults.
func NewExportService(members memberLister, policy models.TeamAdminPolicy, logger *zap.Logger, csv, pdf datasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{members: members, csv: csv, pdf: pdf, policy: policy, logger: logger, now: time.Now}
}

// Roster renders the team roster in format.
func (s *ExportService) Roster(ctx context.Context, format export.Format) (*ExportResult, error) {
	members, err := s.members.List(ctx, models.MemberFilter{})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load members")
	}
	roster := ClassifyTeam(members, s.policy, s.logger)
	dataset := RosterDataset(roster)

	var payload []byte
	switch format {
	case export.FormatCSV:
		payload, err = s.csv.Render(dataset)
	case export.FormatPDF:
		payload, err = s.pdf.Render(dataset)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", format))
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render roster")
	}

	return &ExportResult{
		Filename:    fmt.Sprintf("team_roster_%s.%s", s.now().UTC().Format("20060102_150405"), format),
		ContentType: format.ContentType(),
		Content:     payload,
	}, nil
}

// RosterDataset flattens a roster into rows grouped by tier.
func RosterDataset(roster models.TeamRoster) export.Dataset {
	rows := make([]map[string]string, 0)
	for _, group := range roster.Groups() {
		tier := tierLabel(group.Tier)
		for _, member := range group.Members {
			category := string(member.Category)
			if category == "" {
				category = string(models.MemberCategoryStudent)
			}
			rows = append(rows, map[string]string{
				"Tier":     tier,
				"Name":     member.Name,
				"Role":     member.Role,
				"Rank":     strconv.Itoa(member.Rank),
				"Category": category,
			})
		}
	}
	return export.Dataset{
		Title:   "Team Roster",
		Headers: rosterHeaders,
		Rows:    rows,
		GroupBy: "Tier",
	}
}

func tierLabel(tier models.TeamTier) string {
	words := strings.Split(string(tier), "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
