package presenter

import (
	"golang.org/x/net/html"

	"github.com/noah-isme/lanex-quiz-api/internal/grading"
	"github.com/noah-isme/lanex-quiz-api/internal/normalizer"
	"github.com/noah-isme/lanex-quiz-api/internal/page"
	"github.com/noah-isme/lanex-quiz-api/internal/quiz"
)

const (
	classCorrect   = "correct-block"
	classIncorrect = "incorrect-block"
	classTaskScore = "task-score"
	classOpenTask  = "open-task-message"
	classTotal     = "total-score"
	classNotice    = "form-notice"
	classAlert     = "form-alert"
	classPass      = "pass-status"
)

// view performs every page mutation; grading code never touches the document.
type view struct {
	doc       *page.Document
	selectors page.Selectors
	messages  Messages
	threshold float64
}

func (v view) applyResult(result quiz.GradingResult) {
	for _, task := range v.doc.Tasks(v.selectors) {
		outcome, ok := result.Tasks[task.ID]
		if !ok {
			continue
		}
		if outcome.Open {
			v.replaceWithOpenNotice(task.Node)
			continue
		}
		if outcome.Result == nil {
			continue
		}
		v.markQuestions(task.Node, *outcome.Result)
		if outcome.Result.Score != "" {
			v.setTaskScore(task.Node, outcome.Result.Score)
		}
	}

	v.renderSummary(result)
	v.disableInputs()
	v.toggleButtons()
	v.clearNotice()
}

func (v view) replaceWithOpenNotice(task *html.Node) {
	notice := page.NewElement("div", page.A("class", classOpenTask))
	title := page.NewElement("p")
	strong := page.NewElement("strong")
	strong.AppendChild(page.NewText(v.messages.OpenTaskTitle))
	title.AppendChild(strong)
	body := page.NewElement("p")
	body.AppendChild(page.NewText(v.messages.OpenTaskBody))
	notice.AppendChild(title)
	notice.AppendChild(body)
	page.ReplaceChildren(task, notice)
}

func (v view) markQuestions(task *html.Node, result quiz.TaskResult) {
	for _, q := range normalizer.Questions(task, v.selectors) {
		page.RemoveClass(q.Node, classCorrect, classIncorrect)
		switch result.Statuses[q.Qnum] {
		case quiz.StatusCorrect:
			page.AddClass(q.Node, classCorrect)
		case quiz.StatusIncorrect:
			page.AddClass(q.Node, classIncorrect)
		}
	}
}

func (v view) setTaskScore(task *html.Node, score string) {
	node := page.FindFirst(task, func(n *html.Node) bool { return page.HasClass(n, classTaskScore) })
	if node == nil {
		node = page.NewElement("div", page.A("class", classTaskScore))
		task.AppendChild(node)
	}
	page.ReplaceChildren(node, page.NewText(v.messages.ScoreLabel+" "+score))
}

func (v view) summaryContainer() *html.Node {
	for _, id := range v.selectors.ResultContainerIDs {
		if node := v.doc.ByID(id); node != nil {
			return node
		}
	}

	root := page.FindFirst(v.doc.Root(), func(n *html.Node) bool { return page.HasClass(n, v.selectors.RootClass) })
	if root == nil {
		root = v.doc.Body()
	}
	container := page.NewElement("div", page.A("class", classTotal))
	if len(v.selectors.ResultContainerIDs) > 0 {
		page.SetAttr(container, "id", v.selectors.ResultContainerIDs[0])
	}
	root.AppendChild(container)
	return container
}

func (v view) renderSummary(result quiz.GradingResult) {
	container := v.summaryContainer()

	nodes := make([]*html.Node, 0)
	title := page.NewElement("h2")
	title.AppendChild(page.NewText(v.messages.SummaryTitle))
	nodes = append(nodes, title)

	if result.Total != "" {
		nodes = append(nodes, labelled(v.messages.TotalLabel, result.Total))
	}
	for _, id := range result.TaskIDs() {
		outcome := result.Tasks[id]
		if outcome.Result == nil || outcome.Result.Score == "" {
			continue
		}
		nodes = append(nodes, labelled(id+":", outcome.Result.Score))
	}

	if v.threshold > 0 {
		if total, ok := grading.ParseTotal(result.Total); ok {
			verdict := v.messages.NotPassed
			if total >= v.threshold {
				verdict = v.messages.Passed
			}
			status := page.NewElement("p", page.A("class", classPass))
			status.AppendChild(page.NewText(verdict))
			nodes = append(nodes, status)
		}
	}

	actions := page.NewElement("div", page.A("class", "result-actions"))
	ok := page.NewElement("button", page.A("id", v.selectors.OKButtonID), page.A("type", "button"))
	ok.AppendChild(page.NewText(v.messages.OK))
	actions.AppendChild(ok)
	nodes = append(nodes, actions)

	page.ReplaceChildren(container, nodes...)
}

func labelled(label, value string) *html.Node {
	p := page.NewElement("p")
	strong := page.NewElement("strong")
	strong.AppendChild(page.NewText(label))
	p.AppendChild(strong)
	p.AppendChild(page.NewText(" " + value))
	return p
}

func (v view) disableInputs() {
	controls := page.FindAll(v.doc.Root(), func(n *html.Node) bool {
		return page.IsElement(n, "input", "textarea", "select")
	})
	for _, control := range controls {
		page.Disable(control)
	}
}

func (v view) toggleButtons() {
	ids := append(append([]string{}, v.selectors.SubmitButtonIDs...), v.selectors.BackButtonIDs...)
	for _, id := range ids {
		if node := v.doc.ByID(id); node != nil {
			page.Hide(node)
			page.SetAttr(node, "disabled", "")
		}
	}
	if ok := v.doc.ByID(v.selectors.OKButtonID); ok != nil {
		page.Show(ok)
	}
}

func (v view) showNotice(message string, alert bool) {
	class := classNotice
	if alert {
		class = classAlert
	}
	node := v.doc.ByID(v.selectors.NoticeID)
	if node == nil {
		node = page.NewElement("div", page.A("id", v.selectors.NoticeID))
		parent := page.FindFirst(v.doc.Root(), func(n *html.Node) bool { return page.HasClass(n, v.selectors.RootClass) })
		if parent == nil {
			parent = v.doc.Body()
		}
		parent.AppendChild(node)
	}
	page.SetAttr(node, "class", class)
	page.SetAttr(node, "role", "alert")
	page.ReplaceChildren(node, page.NewText(message))
}

func (v view) clearNotice() {
	if node := v.doc.ByID(v.selectors.NoticeID); node != nil && node.Parent != nil {
		node.Parent.RemoveChild(node)
	}
}
