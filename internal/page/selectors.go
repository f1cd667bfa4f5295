package page

// Selectors enumerates every page identifier the engine relies on. The
// engine performs no lookups beyond what is declared here.
type Selectors struct {
	// TaskIDPrefix matches task containers by id prefix, e.g. "task" for task1, task2.
	TaskIDPrefix string
	// TaskIDAttribute is consulted when a container's id is missing.
	TaskIDAttribute string
	// QuestionClass marks a question container inside a task.
	QuestionClass string
	// QnumAttribute holds the explicit question number on a question container.
	QnumAttribute string
	// SubmitButtonIDs are the ids tried, in order, for the submit control.
	SubmitButtonIDs []string
	// BackButtonIDs are hidden once the page is graded.
	BackButtonIDs []string
	// OKButtonID is the close control rendered in the summary.
	OKButtonID string
	// ResultContainerIDs are tried, in order, for the summary block.
	ResultContainerIDs []string
	// RootClass is the fallback parent for a summary block that must be created.
	RootClass string
	// NoticeID is the id of the dismissible notice block.
	NoticeID string
}

// DefaultSelectors mirrors the markup produced by the level page renderers.
func DefaultSelectors() Selectors {
	return Selectors{
		TaskIDPrefix:       "task",
		TaskIDAttribute:    "data-task-id",
		QuestionClass:      "question",
		QnumAttribute:      "data-qnum",
		SubmitButtonIDs:    []string{"submit-test", "btn-check", "submit", "check"},
		BackButtonIDs:      []string{"btn-back", "cancelBtn", "btn-cancel", "back"},
		OKButtonID:         "btn-ok",
		ResultContainerIDs: []string{"final-message", "final-result", "result"},
		RootClass:          "container",
		NoticeID:           "form-notice",
	}
}
