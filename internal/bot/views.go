package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/xaenox/comproclick-bot/internal/catalog"
	"github.com/xaenox/comproclick-bot/internal/models"
	"github.com/xaenox/comproclick-bot/internal/pocket"
	"github.com/xaenox/comproclick-bot/internal/refiner"
	"github.com/xaenox/comproclick-bot/internal/wizard"
)

// Callback data sent by inline buttons.
const (
	cbViewHome     = "view:home"
	cbViewDesigner = "view:designer"
	cbViewPocket   = "view:pocket"
	cbNext         = "nav:next"
	cbPrev         = "nav:prev"
	cbRefine       = "idea:refine"
	cbUseIdea      = "idea:use"
	cbPocketAdd    = "pocket:add"
	cbPocketSend   = "pocket:send"
	cbPocketClear  = "pocket:clear"
	cbPocketRemove = "pocket:rm:"
	cbContactEdit  = "contact:edit"
	cbContactSkip  = "contact:skip"

	prefixType     = "type"
	prefixCategory = "cat"
	prefixTimeline = "time"
)

const totalSteps = 4

// Telegram rejects messages over 4096 characters. The project list stops
// short of that so the contact section still fits.
const (
	maxValueRunes = 200
	maxListRunes  = 3000
)

var stepTitles = map[wizard.Step]string{
	wizard.StepType:     "¿Qué tipo de proyecto necesitas?",
	wizard.StepCategory: "¿A qué categoría pertenece?",
	wizard.StepTimeline: "¿En qué plazo lo necesitas?",
	wizard.StepIdea:     "Cuéntanos tu idea",
}

func button(label, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(label, data)
}

func (b *Bot) render(s *session) {
	var (
		text     string
		keyboard tgbotapi.InlineKeyboardMarkup
	)
	switch s.view {
	case viewDesigner:
		text, keyboard = b.designerView(s)
	case viewPocket:
		text, keyboard = b.pocketView(s)
	case viewContact:
		text, keyboard = contactView(s)
	default:
		text, keyboard = homeView(s)
	}
	b.sendView(s.chatID, text, &keyboard)
}

func homeView(s *session) (string, tgbotapi.InlineKeyboardMarkup) {
	text := "*Compro\\.click* 🛒\n\n" +
		escapeMarkdown("Diseña tu proyecto en 4 pasos, guárdalo en tu bolsillo y envíanos todo por WhatsApp.")

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(button("🧩 Diseñar proyecto", cbViewDesigner)),
	}
	if n := s.pocket.Len(); n > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(fmt.Sprintf("🛍 Ver bolsillo (%d)", n), cbViewPocket)))
	}
	return text, tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) designerView(s *session) (string, tgbotapi.InlineKeyboardMarkup) {
	step := s.wizard.Step()
	draft := s.wizard.Draft()
	cat := b.opts.Catalog

	var text strings.Builder
	fmt.Fprintf(&text, "*Paso %d de %d*\n%s\n\n", int(step), totalSteps, escapeMarkdown(stepTitles[step]))

	var rows [][]tgbotapi.InlineKeyboardButton
	switch step {
	case wizard.StepType:
		rows = optionRows(cat.ProjectTypes, prefixType, draft.Type.ID)
		writeOtherPrompt(&text, draft.Type, "Escribe en un mensaje qué tipo de proyecto necesitas.")
	case wizard.StepCategory:
		rows = optionRows(cat.ProjectCategories, prefixCategory, draft.Category.ID)
		writeOtherPrompt(&text, draft.Category, "Escribe en un mensaje la categoría de tu proyecto.")
	case wizard.StepTimeline:
		rows = optionRows(cat.Timelines, prefixTimeline, draft.Timeline)
	case wizard.StepIdea:
		rows = b.ideaRows(s, &text, draft)
	}

	nextLabel := "Siguiente ➡️"
	if step == wizard.StepIdea {
		nextLabel = "✅ Agregar al bolsillo"
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("⬅️ Atrás", cbPrev), button(nextLabel, cbNext)))
	return text.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func optionRows(group catalog.Group, prefix, selected string) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, o := range group.Visible() {
		label := o.Label
		if o.ID == selected {
			label = "✅ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(label, prefix+":"+o.ID)))
	}
	return rows
}

func writeOtherPrompt(text *strings.Builder, c models.Choice, prompt string) {
	if !c.IsOther() {
		return
	}
	if other := strings.TrimSpace(c.OtherText()); other != "" {
		fmt.Fprintf(text, "Otro: _%s_\n", escapeMarkdown(other))
		return
	}
	text.WriteString(escapeMarkdown(prompt) + "\n")
}

func (b *Bot) ideaRows(s *session, text *strings.Builder, draft models.ProjectDraft) [][]tgbotapi.InlineKeyboardButton {
	if strings.TrimSpace(draft.Idea) == "" {
		text.WriteString(escapeMarkdown(fmt.Sprintf("Escribe tu idea en un mensaje (mínimo %d caracteres).", refiner.MinIdeaLength)) + "\n")
	} else {
		fmt.Fprintf(text, "Tu idea: _%s_\n", escapeMarkdown(draft.Idea))
		if n := refiner.IdeaLength(draft.Idea); n < refiner.MinIdeaLength {
			text.WriteString(escapeMarkdown(fmt.Sprintf("Faltan %d caracteres.", refiner.MinIdeaLength-n)) + "\n")
		}
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	if b.opts.Assistant == nil {
		return rows
	}

	switch {
	case s.wizard.Refining():
		text.WriteString("\n" + escapeMarkdown("⏳ La IA está revisando tu idea...") + "\n")
	case s.wizard.Suggestion() != "":
		fmt.Fprintf(text, "\n💡 *Sugerencia de la IA:*\n%s\n", escapeMarkdown(s.wizard.Suggestion()))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("✨ Usar sugerencia", cbUseIdea)))
	}
	if refiner.IdeaLength(draft.Idea) >= refiner.MinIdeaLength && !s.wizard.Refining() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("🤖 Mejorar con IA", cbRefine)))
	}
	return rows
}

func (b *Bot) pocketView(s *session) (string, tgbotapi.InlineKeyboardMarkup) {
	items := s.pocket.Items()
	contact := s.pocket.Contact()

	var (
		text strings.Builder
		rows [][]tgbotapi.InlineKeyboardButton
	)
	text.WriteString("*Tu bolsillo* 🛍\n\n")
	if len(items) == 0 {
		text.WriteString(escapeMarkdown("Tu bolsillo está vacío. Diseña un proyecto para empezar.") + "\n\n")
	}
	hidden := 0
	for i, item := range items {
		var block strings.Builder
		fmt.Fprintf(&block, "*Proyecto %d*\n", i+1)
		for _, line := range pocket.ProjectLines(item.ProjectDraft, b.opts.Catalog) {
			fmt.Fprintf(&block, "%s: %s\n", escapeMarkdown(line.Label), escapeMarkdown(clip(line.Value, maxValueRunes)))
		}
		block.WriteString("\n")
		if hidden > 0 || utf8.RuneCountInString(text.String())+utf8.RuneCountInString(block.String()) > maxListRunes {
			hidden++
		} else {
			text.WriteString(block.String())
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button(fmt.Sprintf("🗑 Quitar proyecto %d", i+1), cbPocketRemove+item.ID)))
	}
	if hidden > 0 {
		fmt.Fprintf(&text, "_%s_\n\n", escapeMarkdown(fmt.Sprintf("... y %d proyectos más. Todos se incluyen en el mensaje de WhatsApp.", hidden)))
	}

	text.WriteString("*Tus datos de contacto*\n")
	writeContact(&text, contact)

	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(button("➕ Agregar proyecto", cbPocketAdd)),
		tgbotapi.NewInlineKeyboardRow(button("👤 Datos de contacto", cbContactEdit)),
	)
	if len(items) > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("📲 Enviar por WhatsApp", cbPocketSend)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("🧹 Vaciar todo", cbPocketClear)))
	return text.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// clip shortens s to at most n runes.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func writeContact(text *strings.Builder, contact models.ContactProfile) {
	var wrote bool
	for _, f := range models.ContactFieldOrder {
		value := strings.TrimSpace(contact.Value(f))
		if value == "" {
			continue
		}
		wrote = true
		fmt.Fprintf(text, "%s: %s\n", escapeMarkdown(pocket.ContactLabel(f)), escapeMarkdown(value))
	}
	if !wrote {
		text.WriteString(escapeMarkdown("Aún no has ingresado tus datos.") + "\n")
	}
}

func contactView(s *session) (string, tgbotapi.InlineKeyboardMarkup) {
	contact := s.pocket.Contact()

	var text strings.Builder
	text.WriteString("*Datos de contacto* 👤\n\n")
	writeContact(&text, contact)

	var rows [][]tgbotapi.InlineKeyboardButton
	if s.editing != "" {
		prompt := "Escribe tu " + strings.ToLower(pocket.ContactLabel(s.editing))
		switch {
		case s.editing.Required():
			prompt += " (obligatorio)"
		case strings.TrimSpace(contact.Value(s.editing)) != "":
			prompt += " o " + pocket.ClearMarker + " para borrarlo"
		}
		fmt.Fprintf(&text, "\n%s\n", escapeMarkdown(prompt+":"))
		if !s.editing.Required() || strings.TrimSpace(contact.Value(s.editing)) != "" {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("⏭ Omitir", cbContactSkip)))
		}
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("⬅️ Volver al bolsillo", cbViewPocket)))
	return text.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

const helpText = `Comandos disponibles:
/start - Inicio
/nuevo - Diseñar un proyecto
/bolsillo - Ver los proyectos guardados
/contacto - Editar tus datos de contacto
/enviar - Enviar tu solicitud por WhatsApp
/limpiar - Borrar proyectos y datos de contacto
/help - Mostrar esta ayuda

En el diseñador elige una opción con los botones. Cuando elijas "Otro" o llegues a la idea, escríbela en un mensaje.`
