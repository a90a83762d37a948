package prompt

import (
	"fmt"
	"text/template"

	"github.com/easeaico/style-echo/internal/utils"
)

// sampleLabel marks the sample text as analysis material only.
const sampleLabel = "Style sample (analysis reference only, do not reproduce verbatim)"

const rewriteTemplateText = `You are an expert at imitating writing styles.
Rewrite the text in the user's last message so that it keeps its original meaning
while adopting the style characteristics of the target style: sentence rhythm,
vocabulary register, tone, punctuation habits and narrative voice.
Imitate how the sample is written, never what it says. Do not copy its sentences,
phrases or content into the rewrite.
Reply with the rewritten text only.

[Target style]
Name: {{.Target.Name}}
{{- if .Target.Description}}
Description: {{.Target.Description}}
{{- end}}
Style strength: {{percent .Strength}}
{{- if lt .Strength 0.34}}
Apply the style lightly; stay close to the original wording.
{{- else if gt .Strength 0.66}}
Apply the style strongly; transform the wording freely as long as the meaning holds.
{{- end}}

[{{.SampleLabel}}]
"""
{{.Target.SampleText}}
"""
{{- if .Related}}

[Related styles (informational only, not binding)]
{{- range .Related}}
- {{.Profile.Name}} ({{percent .Similarity}} similar){{if .Profile.Description}}: {{preview .Profile.Description}}{{end}}
{{- end}}
{{- end}}
{{- if .CurrentContent}}

[Surrounding document]
{{.CurrentContent}}
{{- end}}`

const assistTemplateText = `You are a writing assistant supporting a fiction author.
Answer the author's questions and suggest concrete improvements to their text.
Keep the author's voice unless they ask you to change it.
{{- if .CurrentContent}}

[Current chapter]
{{.CurrentContent}}
{{- end}}`

func newTemplates(descriptionPreview int) (rewrite, assist *template.Template) {
	funcs := template.FuncMap{
		"percent": func(v float64) string {
			return fmt.Sprintf("%.0f%%", v*100)
		},
		"preview": func(text string) string {
			return utils.TruncateRunes(utils.NormalizeText(text), descriptionPreview)
		},
	}
	rewrite = template.Must(template.New("rewrite").Funcs(funcs).Parse(rewriteTemplateText))
	assist = template.Must(template.New("assist").Funcs(funcs).Parse(assistTemplateText))
	return rewrite, assist
}
