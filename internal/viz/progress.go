package viz

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	barWidth     = 40
	sparkWidth   = 40
	sendDivision = 200
)

// ErrInterrupted is returned by RunLive when the user quits before the work
// finishes.
var ErrInterrupted = errors.New("viz: interrupted")

type TickMsg time.Time

// UnitsMsg reports abstraction progress.
type UnitsMsg struct {
	Done, Total int
}

// IterationMsg reports a completed value-iteration step.
type IterationMsg struct {
	Step     int
	Residual float64
}

// PhaseMsg names the pipeline phase that just started.
type PhaseMsg string

type DoneMsg struct {
	Err error
}

// ProgressModel is the live view of a synthesis run.
type ProgressModel struct {
	title     string
	phase     string
	done      int
	total     int
	step      int
	residuals []float64
	frame     int
	start     time.Time
	finished  bool
	err       error
}

func NewProgressModel(title string) ProgressModel {
	return ProgressModel{
		title: title,
		phase: "starting",
		start: time.Now(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/10, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m ProgressModel) Init() tea.Cmd { return tick() }

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.err = ErrInterrupted
			return m, tea.Quit
		}
	case TickMsg:
		m.frame++
		return m, tick()
	case PhaseMsg:
		m.phase = string(msg)
	case UnitsMsg:
		m.done, m.total = msg.Done, msg.Total
	case IterationMsg:
		m.step = msg.Step
		m.residuals = append(m.residuals, msg.Residual)
	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m ProgressModel) Err() error { return m.err }

// Residuals returns the residual of every reported step.
func (m ProgressModel) Residuals() []float64 { return m.residuals }

func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(Title.Render(m.title))
	b.WriteString("\n\n")

	status := StatusRunning.Render(Spinner(m.frame) + " " + m.phase)
	if m.finished {
		if m.err != nil {
			status = StatusFailed.Render("failed: " + m.err.Error())
		} else {
			status = StatusRunning.Render("done")
		}
	}
	b.WriteString(status)
	b.WriteString("\n\n")

	fraction := 0.0
	if m.total > 0 {
		fraction = float64(m.done) / float64(m.total)
	}
	b.WriteString(MetricLabel.Render("abstraction"))
	b.WriteString(ProgressBar(fraction, barWidth))
	b.WriteString(fmt.Sprintf(" %d/%d\n", m.done, m.total))

	b.WriteString(MetricLabel.Render("iteration"))
	b.WriteString(MetricValue.Render(fmt.Sprintf("%d", m.step)))
	if n := len(m.residuals); n > 0 {
		b.WriteString(Subtle.Render(fmt.Sprintf("  residual %.3g", m.residuals[n-1])))
	}
	b.WriteString("\n")
	b.WriteString(MetricLabel.Render("residuals"))
	b.WriteString(Sparkline(m.residuals, sparkWidth))
	b.WriteString("\n\n")

	b.WriteString(Subtle.Render(fmt.Sprintf("elapsed %s  q to quit", time.Since(m.start).Round(time.Second))))
	return Panel.Render(b.String())
}

// Reporter forwards pipeline callbacks to a running program. It implements
// synthesis.Observer.
type Reporter struct {
	p *tea.Program
}

func (r Reporter) Phase(name string) { r.p.Send(PhaseMsg(name)) }

// Units forwards about sendDivision updates over a whole abstraction.
func (r Reporter) Units(done, total int) {
	every := max(1, total/sendDivision)
	if done%every == 0 || done == total {
		r.p.Send(UnitsMsg{Done: done, Total: total})
	}
}

func (r Reporter) OnIteration(step int, residual float64) {
	r.p.Send(IterationMsg{Step: step, Residual: residual})
}

// RunLive runs work while rendering its progress. It returns the error of
// work, or an interruption error when the user quits first, together with
// the final model.
func RunLive(title string, work func(Reporter) error) (ProgressModel, error) {
	p := tea.NewProgram(NewProgressModel(title))
	go func() {
		err := work(Reporter{p: p})
		p.Send(DoneMsg{Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return ProgressModel{}, err
	}
	m := final.(ProgressModel)
	return m, m.err
}
