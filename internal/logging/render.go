package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var forceColorOnce sync.Once

func shouldPrettyPrint() bool {
	term := strings.TrimSpace(os.Getenv("TERM"))
	if term == "" || term == "dumb" {
		return false
	}
	return os.Getenv("NO_COLOR") == ""
}

func ensureColorOutput() {
	forceColorOnce.Do(func() {
		lipgloss.SetColorProfile(termenv.TrueColor)
	})
}

var (
	timeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	messageStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("117"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	sepStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	badgeStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	blockStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("245")).Padding(0, 1)
)

// FormatEventANSI renders one event for a color terminal. JSON-valued fields
// are drawn as bordered blocks under the header line.
func FormatEventANSI(event Event) string {
	ensureColorOutput()
	label, style := levelBadge(event.Level.String())
	line := lipgloss.JoinHorizontal(lipgloss.Center,
		timeStyle.Render(event.Time.Format("15:04:05.000")), " ",
		style.Render(label), " ",
		messageStyle.Render(event.Message),
	)
	if len(event.Fields) == 0 {
		return line + "\n"
	}

	var inline, blocks []string
	for _, key := range orderedFieldKeys(event.Fields) {
		if pretty, ok := prettyJSONString(event.Fields[key]); ok {
			blocks = append(blocks, keyStyle.Render(key)+sepStyle.Render("=")+"\n"+blockStyle.Render(pretty))
			continue
		}
		inline = append(inline, keyStyle.Render(key)+sepStyle.Render("=")+valueStyle.Render(formatFieldValue(event.Fields[key])))
	}
	if len(inline) > 0 {
		line += "  " + strings.Join(inline, " ")
	}
	for _, block := range blocks {
		line += "\n  " + block
	}
	return line + "\n"
}

func levelBadge(level string) (string, lipgloss.Style) {
	switch level {
	case "DEBUG":
		return "DEBUG", badgeStyle.Foreground(lipgloss.Color("255")).Background(lipgloss.Color("240"))
	case "INFO":
		return "INFO", badgeStyle.Foreground(lipgloss.Color("230")).Background(lipgloss.Color("31"))
	case "WARN":
		return "WARN", badgeStyle.Foreground(lipgloss.Color("234")).Background(lipgloss.Color("214"))
	default:
		return "ERROR", badgeStyle.Foreground(lipgloss.Color("231")).Background(lipgloss.Color("160"))
	}
}
