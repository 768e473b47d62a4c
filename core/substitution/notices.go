package substitution

import (
	texttmpl "text/template"
)

const noticeCategory = "substitution"

type notice struct {
	subject string
	tmpl    *texttmpl.Template
}

type noticeData struct {
	Reporter   string
	Substitute string
	LessonID   string
}

var (
	coveredNotice = notice{
		subject: "Your lesson is covered",
		tmpl: texttmpl.Must(texttmpl.New("covered").Parse(
			"Hello {{.Reporter}},\n\n{{.Substitute}} will substitute you for lesson {{.LessonID}}.\n")),
	}
	withdrawnNotice = notice{
		subject: "Your substitute withdrew",
		tmpl: texttmpl.Must(texttmpl.New("withdrawn").Parse(
			"Hello {{.Reporter}},\n\n{{.Substitute}} no longer substitutes you for lesson {{.LessonID}}.\n" +
				"The lesson is open for another teacher to cover.\n")),
	}
)
