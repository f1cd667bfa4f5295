package presenter

// Messages holds every user-visible string the presenter writes to the page.
type Messages struct {
	Confirm       string
	EmptyForm     string
	GenericError  string
	Rejected      string
	OpenTaskTitle string
	OpenTaskBody  string
	SummaryTitle  string
	TotalLabel    string
	ScoreLabel    string
	Passed        string
	NotPassed     string
	OK            string
}

// DefaultMessages returns the English page copy.
func DefaultMessages() Messages {
	return Messages{
		Confirm:       "Are you sure you want to submit the test?",
		EmptyForm:     "You have not answered any question yet. Answer at least one question and submit again.",
		GenericError:  "Something went wrong while checking your test. Please try again.",
		Rejected:      "The test could not be checked right now. Please try again later.",
		OpenTaskTitle: "This task will be reviewed by a teacher.",
		OpenTaskBody:  "Your answers will be checked manually; you will receive the result later.",
		SummaryTitle:  "Thank you for completing the test!",
		TotalLabel:    "Total:",
		ScoreLabel:    "Score:",
		Passed:        "Passed",
		NotPassed:     "Not passed",
		OK:            "OK",
	}
}
