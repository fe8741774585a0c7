package pocket

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/xaenox/comproclick-bot/internal/catalog"
	"github.com/xaenox/comproclick-bot/internal/models"
)

const (
	greeting       = "Hola Compro.click 👋, tengo las siguientes solicitudes de proyecto:\n\n"
	contactHeader  = "--- MIS DATOS DE CONTACTO ---\n"
	noProjects     = "Aún no he definido proyectos.\n\n"
	signOff        = "¡Espero su contacto para discutir más detalles!"
	notSpecified   = "No especificado"
	refinedLabel   = "Idea Refinada (IA)"
	projectHeading = "--- PROYECTO %d ---\n"
)

var contactLabels = map[models.ContactField]string{
	models.FieldFullName:    "Nombre completo",
	models.FieldCompanyName: "Empresa",
	models.FieldPhone:       "Teléfono",
	models.FieldEmail:       "Email",
	models.FieldCountry:     "País",
}

// ContactLabel is the human label of a contact field.
func ContactLabel(f models.ContactField) string {
	if label, ok := contactLabels[f]; ok {
		return label
	}
	return string(f)
}

// BuildOutboundMessage renders the pocket as the WhatsApp message text.
// Blank contact fields are omitted; blank project fields read "No especificado".
func BuildOutboundMessage(contact models.ContactProfile, items []models.ProjectItem, cat *catalog.Catalog) string {
	var b strings.Builder

	b.WriteString(greeting)
	b.WriteString(contactHeader)
	for _, field := range models.ContactFieldOrder {
		value := contact.Value(field)
		if strings.TrimSpace(value) == "" {
			continue
		}
		writeLine(&b, ContactLabel(field), value)
	}
	b.WriteString("\n")

	if len(items) == 0 {
		b.WriteString(noProjects)
	}
	for i, item := range items {
		fmt.Fprintf(&b, projectHeading, i+1)
		for _, line := range ProjectLines(item.ProjectDraft, cat) {
			writeLine(&b, line.Label, line.Value)
		}
		b.WriteString("\n")
	}

	b.WriteString(signOff)
	return b.String()
}

// Line is one labeled field of a project.
type Line struct {
	Label string
	Value string
}

// ProjectLines lists the fields of a project in message order, with
// categorical values mapped to labels.
func ProjectLines(d models.ProjectDraft, cat *catalog.Catalog) []Line {
	lines := []Line{{"Tipo de proyecto", orNotSpecified(d.Type.ID, cat.ProjectTypes.Label)}}
	if d.Type.IsOther() {
		lines = append(lines, Line{"Otro tipo", orNotSpecified(d.Type.OtherText(), nil)})
	}
	lines = append(lines, Line{"Categoría", orNotSpecified(d.Category.ID, cat.ProjectCategories.Label)})
	if d.Category.IsOther() {
		lines = append(lines, Line{"Otra categoría", orNotSpecified(d.Category.OtherText(), nil)})
	}
	lines = append(lines,
		Line{"Plazo", orNotSpecified(d.Timeline, cat.Timelines.Label)},
		Line{"Idea de Proyecto", orNotSpecified(d.Idea, nil)},
	)
	if d.HasDistinctRefinement() {
		lines = append(lines, Line{refinedLabel, d.RefinedIdea})
	}
	return lines
}

func orNotSpecified(value string, label func(string) string) string {
	if strings.TrimSpace(value) == "" {
		return notSpecified
	}
	if label != nil {
		return label(value)
	}
	return value
}

func writeLine(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "*%s:* %s\n", label, value)
}

// DeepLink builds https://<host>/<recipient digits>?text=<message>, encoding
// spaces as %20 like a browser's encodeURIComponent.
func DeepLink(dest Destination, message string) string {
	recipient := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, dest.Recipient)

	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return fmt.Sprintf("https://%s/%s?text=%s", dest.Host, recipient, text)
}
