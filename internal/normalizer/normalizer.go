// Package normalizer turns the live form state of a test page into an
// AnswerMap that covers every declared question.
package normalizer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/noah-isme/lanex-quiz-api/internal/page"
	"github.com/noah-isme/lanex-quiz-api/internal/quiz"
)

// Source is the rule that resolved a question number. Higher values win.
type Source int

const (
	SourcePosition Source = iota + 1
	SourceName
	SourceMarker
)

func (s Source) String() string {
	switch s {
	case SourceMarker:
		return "marker"
	case SourceName:
		return "name"
	case SourcePosition:
		return "position"
	default:
		return "unknown"
	}
}

var (
	qPattern     = regexp.MustCompile(`(?i)q(\d+)`)
	digitPattern = regexp.MustCompile(`\d+`)
)

// Fallback records a question number that could only be resolved by position.
type Fallback struct {
	TaskID  string
	Qnum    string
	Control string
}

// Conflict records two controls resolving to the same question number.
type Conflict struct {
	TaskID string
	Qnum   string
	Kept   Source
	Lost   Source
}

// Report describes the heuristics used during one normalization.
type Report struct {
	Positional []Fallback
	Conflicts  []Conflict
}

// Normalizer reads form controls; it never mutates the document.
type Normalizer struct {
	selectors page.Selectors
	logger    zerolog.Logger
}

// New builds a Normalizer for the given page selectors.
func New(selectors page.Selectors, logger zerolog.Logger) *Normalizer {
	return &Normalizer{
		selectors: selectors,
		logger:    logger.With().Str("component", "answer_normalizer").Logger(),
	}
}

type entry struct {
	answer quiz.Answer
	source Source
}

type taskState struct {
	id      string
	entries map[string]entry
	report  *Report
}

func (t *taskState) put(qnum string, answer quiz.Answer, source Source) {
	current, exists := t.entries[qnum]
	if !exists {
		t.entries[qnum] = entry{answer: answer, source: source}
		return
	}
	if source > current.source {
		t.entries[qnum] = entry{answer: answer, source: source}
		t.report.Conflicts = append(t.report.Conflicts, Conflict{TaskID: t.id, Qnum: qnum, Kept: source, Lost: current.source})
		return
	}
	t.report.Conflicts = append(t.report.Conflicts, Conflict{TaskID: t.id, Qnum: qnum, Kept: current.source, Lost: source})
}

// Normalize collects answers from every task container in document order.
func (n *Normalizer) Normalize(doc *page.Document) (quiz.AnswerMap, Report) {
	answers := quiz.AnswerMap{}
	report := Report{}

	for _, task := range doc.Tasks(n.selectors) {
		state := &taskState{id: task.ID, entries: map[string]entry{}, report: &report}
		answers.EnsureTask(task.ID)

		n.collectGroups(state, task.Node, page.ControlRadio)
		n.collectGroups(state, task.Node, page.ControlCheckbox)
		n.collectFreeText(state, task.Node)
		n.reconcile(state, task.Node)

		for qnum, e := range state.entries {
			answers.Set(task.ID, qnum, e.answer)
		}
	}

	for _, fb := range report.Positional {
		n.logger.Warn().
			Str("task_id", fb.TaskID).
			Str("qnum", fb.Qnum).
			Str("control", fb.Control).
			Msg("question number resolved by position")
	}
	for _, c := range report.Conflicts {
		n.logger.Debug().
			Str("task_id", c.TaskID).
			Str("qnum", c.Qnum).
			Str("kept", c.Kept.String()).
			Str("dropped", c.Lost.String()).
			Msg("duplicate question number")
	}

	return answers, report
}

type group struct {
	name     string
	controls []*html.Node
}

func groupByName(controls []*html.Node) []group {
	index := map[string]int{}
	var groups []group
	for _, control := range controls {
		name := page.Name(control)
		if name == "" {
			continue
		}
		pos, ok := index[name]
		if !ok {
			pos = len(groups)
			index[name] = pos
			groups = append(groups, group{name: name})
		}
		groups[pos].controls = append(groups[pos].controls, control)
	}
	return groups
}

func (n *Normalizer) collectGroups(state *taskState, task *html.Node, kind page.ControlKind) {
	for idx, g := range groupByName(page.Controls(task, kind)) {
		qnum, source := n.resolve(task, g.controls[0], []string{g.name}, idx+1)
		if source == SourcePosition {
			state.report.Positional = append(state.report.Positional, Fallback{TaskID: state.id, Qnum: qnum, Control: g.name})
		}

		var answer quiz.Answer
		if kind == page.ControlCheckbox {
			checked := make([]string, 0)
			for _, control := range g.controls {
				if page.IsChecked(control) {
					checked = append(checked, page.Value(control))
				}
			}
			answer = quiz.Multi(checked...)
		} else {
			answer = quiz.Single("")
			for _, control := range g.controls {
				if page.IsChecked(control) {
					answer = quiz.Single(page.Value(control))
					break
				}
			}
		}
		state.put(qnum, answer, source)
	}
}

func (n *Normalizer) collectFreeText(state *taskState, task *html.Node) {
	for idx, control := range page.Controls(task, page.ControlFreeText) {
		name := page.Name(control)
		qnum, source := n.resolve(task, control, []string{name, page.ID(control)}, idx+1)
		if source == SourcePosition {
			state.report.Positional = append(state.report.Positional, Fallback{TaskID: state.id, Qnum: qnum, Control: name})
		}
		state.put(qnum, quiz.Single(strings.TrimSpace(page.Value(control))), source)
	}
}

// reconcile walks declared question containers and fills any question that
// the per-kind pass did not reach.
func (n *Normalizer) reconcile(state *taskState, task *html.Node) {
	for _, q := range Questions(task, n.selectors) {
		if _, ok := state.entries[q.Qnum]; ok {
			continue
		}
		source := SourceMarker
		if q.Positional {
			source = SourcePosition
			state.report.Positional = append(state.report.Positional, Fallback{TaskID: state.id, Qnum: q.Qnum, Control: n.selectors.QuestionClass})
		}
		state.entries[q.Qnum] = entry{answer: containerAnswer(q.Node), source: source}
	}
}

func containerAnswer(container *html.Node) quiz.Answer {
	for _, radio := range page.Controls(container, page.ControlRadio) {
		if page.IsChecked(radio) {
			return quiz.Single(page.Value(radio))
		}
	}

	checked := make([]string, 0)
	for _, box := range page.Controls(container, page.ControlCheckbox) {
		if page.IsChecked(box) {
			checked = append(checked, page.Value(box))
		}
	}
	if len(checked) > 0 {
		return quiz.Multi(checked...)
	}

	if area := page.FindFirst(container, func(c *html.Node) bool { return page.IsElement(c, "textarea") }); area != nil {
		return quiz.Single(strings.TrimSpace(page.Value(area)))
	}
	return quiz.Single("")
}

func (n *Normalizer) resolve(task, control *html.Node, names []string, position int) (string, Source) {
	if container := page.ClosestQuestion(control, task, n.selectors); container != nil {
		if qnum, ok := page.QnumMarker(container, n.selectors); ok {
			return qnum, SourceMarker
		}
	}
	for _, name := range names {
		if qnum, ok := QnumFromName(name); ok {
			return qnum, SourceName
		}
	}
	return strconv.Itoa(position), SourcePosition
}

// QnumFromName extracts a question number from a control name such as
// "t1q7". A "q<digits>" run is preferred over any other digit run.
func QnumFromName(name string) (string, bool) {
	for _, pattern := range []*regexp.Regexp{qPattern, digitPattern} {
		for _, match := range pattern.FindAllStringSubmatch(name, -1) {
			digits := match[len(match)-1]
			if value, err := strconv.Atoi(digits); err == nil && value > 0 {
				return strconv.Itoa(value), true
			}
		}
	}
	return "", false
}

// Question is a declared question container with its resolved number.
type Question struct {
	Node       *html.Node
	Qnum       string
	Positional bool
}

// Questions resolves the number of every question container in a task:
// its own marker or that of the nearest marked enclosing container,
// otherwise its 1-based position.
func Questions(task *html.Node, selectors page.Selectors) []Question {
	containers := page.QuestionContainers(task, selectors)
	out := make([]Question, 0, len(containers))
	for idx, container := range containers {
		if marked := page.MarkedQuestion(container, task, selectors); marked != nil {
			qnum, _ := page.QnumMarker(marked, selectors)
			out = append(out, Question{Node: container, Qnum: qnum})
			continue
		}
		out = append(out, Question{Node: container, Qnum: strconv.Itoa(idx + 1), Positional: true})
	}
	return out
}
