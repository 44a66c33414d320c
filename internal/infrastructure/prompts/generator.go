package prompts

import (
	"bytes"
	"strings"
	"text/template"

	"removal-agent/internal/domain/entity"
)

type AdvisorPromptData struct {
	Candidates []entity.RemovalCandidate
}

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

func GenerateAdvisorPrompt(baseTemplate string, candidates []entity.RemovalCandidate) (string, error) {
	if len(candidates) == 0 {
		return NoCandidatesPrompt, nil
	}
	return render("advisor", baseTemplate, AdvisorPromptData{Candidates: candidates})
}

func GenerateEmailBody(baseTemplate string, profile entity.Profile) (string, error) {
	return render("email", baseTemplate, profile)
}

func render(name, baseTemplate string, data any) (string, error) {
	tmpl, err := template.New(name).Funcs(funcs).Parse(baseTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return strings.TrimRight(buf.String(), "\n"), nil
}
