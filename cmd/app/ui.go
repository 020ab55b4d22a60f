package main

import (
	"fmt"
	"strconv"
	"strings"

	"github-profile-miner/internal/domain"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	colorCyan  = lipgloss.Color("36")
	colorGreen = lipgloss.Color("35")
	colorRed   = lipgloss.Color("167")
	colorGray  = lipgloss.Color("245")
	colorDim   = lipgloss.Color("240")

	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleError   = lipgloss.NewStyle().Foreground(colorRed)
	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// renderProfile 档案摘要 + 仓库表格
func renderProfile(p *domain.Profile) string {
	var b strings.Builder

	title := p.Username
	if p.Name != "" {
		title = fmt.Sprintf("%s (%s)", p.Name, p.Username)
	}
	b.WriteString(styleTitle.Render(title))
	b.WriteString("\n")

	if p.Bio != nil {
		b.WriteString(*p.Bio)
		b.WriteString("\n")
	}

	sentiment := "-"
	if p.BioSentiment != nil {
		sentiment = strconv.FormatFloat(*p.BioSentiment, 'f', 3, 64)
	}
	b.WriteString(styleDim.Render(fmt.Sprintf(
		"repos %d · followers %d · following %d · bio language %s · sentiment %s",
		p.PublicRepos, p.Followers, p.Following, p.BioLanguage, sentiment,
	)))
	b.WriteString("\n")

	if len(p.Repositories) == 0 {
		b.WriteString(styleDim.Render("no public repositories"))
		return b.String()
	}

	rows := make([][]string, 0, len(p.Repositories))
	for i, r := range p.Repositories {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			r.Name,
			strconv.Itoa(r.Stars),
			orDash(r.Language),
			orDash(r.Description),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Repository", "Stars", "Lang", "Description").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	b.WriteString(t.Render())
	return b.String()
}

func orDash(s *string) string {
	if domain.IsBlank(s) {
		return "—"
	}
	return *s
}
