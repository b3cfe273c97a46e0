// Package report renders ticks as human-readable status lines.
package report

import (
	"log"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"tycoon.ai/internal/agent/tick"
	"tycoon.ai/internal/sim/command"
	"tycoon.ai/internal/sim/state"
)

// Reporter writes one line per executed command plus a banner per tick. It implements
// tick.Reporter.
type Reporter struct {
	log *log.Logger
	p   *message.Printer
}

func New(logger *log.Logger) *Reporter {
	return &Reporter{log: logger, p: message.NewPrinter(language.English)}
}

var _ tick.Reporter = (*Reporter)(nil)

// Money formats minor currency units as a grouped amount with two decimals.
func (r *Reporter) Money(minor int64) string {
	return r.p.Sprintf("$%.2f", float64(minor)/100)
}

func (r *Reporter) Banner(seq uint64, s *state.Snapshot) string {
	pr := s.Person
	var b strings.Builder
	b.WriteString(r.p.Sprintf("tick #%d (turn %d)\n", seq, s.Tick))
	b.WriteString(r.p.Sprintf("  balance: %s\n", r.Money(pr.Balance)))
	b.WriteString(r.p.Sprintf("  level:   %d\n", pr.Level))
	b.WriteString(r.p.Sprintf("  exp:     %d of %d\n", pr.Score, pr.NextScore))
	b.WriteString(r.p.Sprintf("  sites:   %d, workers: %d", len(s.Sites), len(s.Workers)))
	return b.String()
}

// Line describes an executed command.
func (r *Reporter) Line(c command.Command) string {
	switch c.Kind {
	case command.KindChangeHosting:
		return r.p.Sprintf("hosting of %s moved to tier %d", c.Site, c.HostingID)
	case command.KindPayForHosting:
		return r.p.Sprintf("paid %s for %s hosting", r.Money(c.Amount), c.Site)
	case command.KindNormalizeSite:
		return r.p.Sprintf("site %s normalized", c.Site)
	case command.KindSendVacation:
		return r.p.Sprintf("%s is worn out and went on vacation", c.Worker)
	case command.KindCancelVacation:
		return r.p.Sprintf("%s is rested and back to work next turn", c.Worker)
	case command.KindCompleteWork:
		return r.p.Sprintf("%s finished their task", c.Worker)
	case command.KindDoWork:
		return r.p.Sprintf("%s started work on %s (%s)", c.Worker, c.Site, c.Reason)
	case command.KindLevelUp:
		return r.p.Sprintf("%s levelled up (%s)", c.Site, c.Reason)
	case command.KindEnableContent:
		return r.p.Sprintf("content %s enabled on %s", c.Content, c.Site)
	case command.KindEnableAd:
		return r.p.Sprintf("ad %s enabled on %s", c.Ad, c.Site)
	default:
		return c.String()
	}
}

func (r *Reporter) TickStarted(seq uint64, s *state.Snapshot) {
	r.log.Print(r.Banner(seq, s))
}

func (r *Reporter) CommandExecuted(c command.Command) {
	r.log.Print(r.Line(c))
}

func (r *Reporter) CommandFailed(c command.Command, err error) {
	r.log.Printf("FAILED %s: %v", c, err)
}

func (r *Reporter) TickFinished(e tick.TickLogEntry) {
	if e.Failed() {
		r.log.Print(r.p.Sprintf("tick #%d aborted after %d commands: %s", e.Seq, e.Executed, e.Error))
		return
	}
	r.log.Print(r.p.Sprintf("tick #%d done: %d commands in %dms", e.Seq, e.Executed, e.DurationMs))
}
