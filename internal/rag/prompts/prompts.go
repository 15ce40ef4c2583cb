package prompts

// Template is one named persona variant applied on top of the base system
// prompt. The set is closed: template IDs resolve to static strings, there
// is no runtime template evaluation.
type Template struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Template string `json:"template"`
}

var templates = []Template{
	{
		ID:   "persona_professional",
		Name: "Professional Agent",
		Template: "Use a formal and professional call-center tone. " +
			"Give clear, policy-aligned answers from retrieved PDF context only. " +
			"Do not add information outside the PDFs.",
	},
	{
		ID:   "persona_empathetic",
		Name: "Empathetic Agent",
		Template: "Respond with empathy and reassurance like a customer-care specialist. " +
			"Acknowledge customer concern first, then provide steps from retrieved PDF context only. " +
			"Do not add information outside the PDFs.",
	},
	{
		ID:   "persona_resolution",
		Name: "Resolution Agent",
		Template: "Focus on fast resolution. Give short step-by-step actions with numbered points. " +
			"Use retrieved PDF context only and avoid extra assumptions.",
	},
}

// List returns all available templates in a stable order.
func List() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

// Get resolves a template ID to its text. An empty or unknown ID yields an
// empty template, which is not an error: the base system prompt still applies.
func Get(id string) string {
	for _, t := range templates {
		if t.ID == id {
			return t.Template
		}
	}
	return ""
}
