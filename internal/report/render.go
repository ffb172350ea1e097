package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	bannerWidth = 60
	tableWidth  = 70
	listWidth   = 40
)

// printer remembers the first write error so rendering code can stay linear.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) rule(ch string, n int) {
	p.printf("%s\n", strings.Repeat(ch, n))
}

// Render writes r as plain text in five fixed sections.
func Render(w io.Writer, r Report) error {
	p := &printer{w: w}

	p.rule("#", bannerWidth)
	p.printf("# %s #\n", center("GAMETRACKER METRICS - DETAILED ANALYSIS", bannerWidth-4))
	p.printf("# %s #\n", center(r.GeneratedAt.Format("2006-01-02 15:04:05"), bannerWidth-4))
	if r.RunID != "" {
		p.printf("# %s #\n", center("run "+r.RunID, bannerWidth-4))
	}
	p.rule("#", bannerWidth)
	p.printf("\n")

	p.printf("* SECTION 1: GLOBAL VOLUMETRY\n")
	p.rule("~", 35)
	p.printf(" -> Registered players : %d\n", r.Players)
	p.printf(" -> Game sessions      : %d\n", r.Scores)
	p.printf(" -> Distinct games     : %d\n\n", r.Games)

	p.printf("* SECTION 2: TOP %d SCORES\n", TopN)
	p.rule("~", tableWidth)
	p.printf("| %-5s | %-20s | %-25s | %10s |\n", "RANK", "PLAYER", "GAME", "SCORE")
	p.printf("+%s+%s+%s+%s+\n", strings.Repeat("-", 7), strings.Repeat("-", 22), strings.Repeat("-", 27), strings.Repeat("-", 12))
	for _, e := range r.Leaderboard {
		p.printf("| %-5d | %-20s | %-25s | %10s |\n", e.Rank, e.Username, e.Game, formatScore(e.Score))
	}
	if len(r.Leaderboard) == 0 {
		p.printf("| %-66s |\n", "no scores")
	}
	p.rule("~", tableWidth)
	p.printf("\n")

	p.printf("* SECTION 3: AVERAGE SCORE PER GAME\n")
	p.rule("~", listWidth)
	for _, a := range r.Averages {
		p.printf(" * %-25s : %8.1f pts\n", a.Game, a.Average)
	}
	p.printf("\n")

	p.printf("* SECTION 4: PLAYERS BY COUNTRY\n")
	p.rule("~", listWidth)
	for _, c := range r.Countries {
		p.printf(" * %-25s : %5d players\n", c.Label, c.Count)
	}
	p.printf("\n")

	p.printf("* SECTION 5: SESSIONS BY PLATFORM\n")
	p.rule("~", listWidth)
	for _, c := range r.Platforms {
		p.printf(" * %-25s : %5d sessions\n", c.Label, c.Count)
	}

	p.printf("\n")
	p.rule("#", bannerWidth)
	return p.err
}

func center(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	left := (width - n) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-n-left)
}

// formatScore prints whole scores without a fractional part.
func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
