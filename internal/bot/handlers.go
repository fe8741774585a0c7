package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/comproclick-bot/internal/models"
	"github.com/xaenox/comproclick-bot/internal/pocket"
	"github.com/xaenox/comproclick-bot/internal/refiner"
	"github.com/xaenox/comproclick-bot/internal/wizard"
)

const (
	toastStale   = "Esta opción ya no está disponible."
	toastRemoved = "Proyecto eliminado."
	toastCleared = "Se borraron tus proyectos y datos."
)

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	s := b.session(ctx, message.Chat.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	switch message.Command() {
	case "start":
		s.view = viewHome
		b.render(s)
	case "help":
		b.sendMessage(s.chatID, helpText)
	case "nuevo":
		s.view = viewDesigner
		b.render(s)
	case "bolsillo":
		s.view = viewPocket
		b.render(s)
	case "contacto":
		s.startContactForm()
		b.render(s)
	case "enviar":
		b.dispatch(s)
	case "limpiar":
		b.clearAll(s)
		b.sendMessage(s.chatID, toastCleared)
		b.render(s)
	default:
		b.sendMessage(s.chatID, "Comando desconocido. Usa /help para ver los comandos disponibles.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil || cq.Message.Chat == nil {
		b.answerCallback(cq.ID, "")
		return
	}
	s := b.session(ctx, cq.Message.Chat.ID)

	// Refinement waits on the model; keep the chat responsive meanwhile.
	if cq.Data == cbRefine {
		b.answerCallback(cq.ID, "")
		b.refineIdea(ctx, s)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	toast := b.routeCallback(s, cq.Data)
	b.answerCallback(cq.ID, toast)
}

// routeCallback applies a button press and returns the toast to show, if any.
func (b *Bot) routeCallback(s *session, data string) string {
	prefix, arg, _ := strings.Cut(data, ":")

	switch prefix {
	case "view":
		switch data {
		case cbViewHome:
			s.view = viewHome
		case cbViewDesigner:
			s.view = viewDesigner
		case cbViewPocket:
			s.view = viewPocket
			s.editing = ""
		default:
			return toastStale
		}
	case prefixType, prefixCategory, prefixTimeline:
		return b.selectOption(s, prefix, arg)
	case "nav":
		return b.navigate(s, arg)
	case "idea":
		if data != cbUseIdea || !b.atStep(s, wizard.StepIdea) {
			return toastStale
		}
		if err := s.wizard.UseSuggestion(); err != nil {
			return "No hay una sugerencia para usar."
		}
	case "pocket":
		switch {
		case data == cbPocketAdd:
			s.view = viewDesigner
		case data == cbPocketSend:
			b.dispatch(s)
			return ""
		case data == cbPocketClear:
			b.clearAll(s)
			b.render(s)
			return toastCleared
		case strings.HasPrefix(data, cbPocketRemove):
			s.pocket.Remove(strings.TrimPrefix(data, cbPocketRemove))
			s.view = viewPocket
			b.render(s)
			return toastRemoved
		default:
			return toastStale
		}
	case "contact":
		switch data {
		case cbContactEdit:
			s.startContactForm()
		case cbContactSkip:
			if s.view != viewContact || s.editing == "" {
				return toastStale
			}
			if s.editing.Required() && strings.TrimSpace(s.pocket.Contact().Value(s.editing)) == "" {
				return "Este dato es obligatorio."
			}
			b.nextContactField(s)
			return ""
		default:
			return toastStale
		}
	default:
		b.logger.Debug("Unknown callback data", zap.String("data", data), zap.Int64("chat_id", s.chatID))
		return toastStale
	}

	b.render(s)
	return ""
}

func (b *Bot) atStep(s *session, step wizard.Step) bool {
	return s.view == viewDesigner && s.wizard.Step() == step
}

func (b *Bot) selectOption(s *session, prefix, id string) string {
	var err error
	switch {
	case prefix == prefixType && b.atStep(s, wizard.StepType):
		err = s.wizard.SelectType(id)
	case prefix == prefixCategory && b.atStep(s, wizard.StepCategory):
		err = s.wizard.SelectCategory(id)
	case prefix == prefixTimeline && b.atStep(s, wizard.StepTimeline):
		err = s.wizard.SelectTimeline(id)
	default:
		return toastStale
	}
	if err != nil {
		b.logger.Debug("Option rejected", zap.Error(err), zap.Int64("chat_id", s.chatID))
		return toastStale
	}
	b.render(s)
	return ""
}

func (b *Bot) navigate(s *session, direction string) string {
	if s.view != viewDesigner {
		return toastStale
	}
	switch direction {
	case "next":
		step := s.wizard.Step()
		if err := s.wizard.Next(); err != nil {
			return b.guardMessage(s, step, err)
		}
		if s.view == viewPocket {
			b.sendMessage(s.chatID, "✅ Proyecto agregado a tu bolsillo.")
		}
	case "prev":
		s.wizard.Prev()
	default:
		return toastStale
	}
	b.render(s)
	return ""
}

func (b *Bot) guardMessage(s *session, step wizard.Step, err error) string {
	switch {
	case errors.Is(err, wizard.ErrRefineInFlight):
		return "Espera a que la IA termine de revisar tu idea."
	case !errors.Is(err, wizard.ErrStepIncomplete):
		b.logger.Error("Failed to complete project",
			zap.Error(err),
			zap.Int64("chat_id", s.chatID))
		return "No se pudo agregar el proyecto. Intenta de nuevo."
	}

	switch step {
	case wizard.StepType:
		return "Selecciona el tipo de proyecto y, si elegiste Otro, descríbelo."
	case wizard.StepCategory:
		return "Selecciona la categoría y, si elegiste Otro, descríbela."
	case wizard.StepTimeline:
		return "Selecciona el plazo del proyecto."
	default:
		return fmt.Sprintf("Describe tu idea con al menos %d caracteres.", refiner.MinIdeaLength)
	}
}

func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message) {
	text := strings.TrimSpace(message.Text)
	if text == "" {
		return
	}

	s := b.session(ctx, message.Chat.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.view {
	case viewDesigner:
		b.designerText(ctx, s, message.Text)
	case viewContact:
		b.contactText(s, text)
	default:
		b.sendMessage(s.chatID, "Usa /nuevo para diseñar un proyecto o /bolsillo para ver tu bolsillo.")
	}
}

func (b *Bot) designerText(ctx context.Context, s *session, text string) {
	draft := s.wizard.Draft()

	var err error
	switch s.wizard.Step() {
	case wizard.StepType:
		err = s.wizard.SetTypeOther(strings.TrimSpace(text))
	case wizard.StepCategory:
		err = s.wizard.SetCategoryOther(strings.TrimSpace(text))
	case wizard.StepTimeline:
		err = wizard.ErrWrongStep
	case wizard.StepIdea:
		s.wizard.SetIdea(text)
		if b.opts.AutoRefine && draft.Idea != text {
			s.wizard.ScheduleRefine(ctx, func(res refiner.Result) {
				s.mu.Lock()
				defer s.mu.Unlock()
				b.showRefinement(s, res)
			})
		}
	}
	if err != nil {
		b.sendErrorMessage(s.chatID, "Elige una opción con los botones.")
		return
	}
	b.render(s)
}

func (b *Bot) contactText(s *session, text string) {
	if s.editing == "" {
		s.startContactForm()
	}
	if err := s.pocket.SetContactField(s.editing, text); err != nil {
		b.logger.Debug("Contact value rejected",
			zap.Error(err),
			zap.String("field", string(s.editing)),
			zap.Int64("chat_id", s.chatID))
		b.sendErrorMessage(s.chatID, contactHint(s.editing))
		return
	}
	b.nextContactField(s)
}

func (b *Bot) nextContactField(s *session) {
	if s.advanceContactForm() {
		b.render(s)
		return
	}
	s.view = viewPocket
	b.sendMessage(s.chatID, "¡Gracias! Tus datos quedaron guardados.")
	b.render(s)
}

func contactHint(f models.ContactField) string {
	switch f {
	case models.FieldFullName:
		return "Escribe tu nombre completo (al menos 2 caracteres)."
	case models.FieldEmail:
		return "Ese email no parece válido. Ejemplo: nombre@empresa.com"
	}
	return "No se pudo guardar ese dato."
}

// refineIdea runs a refinement requested by the visitor. It holds the session
// lock only to report the result.
func (b *Bot) refineIdea(ctx context.Context, s *session) {
	s.mu.Lock()
	ready := b.atStep(s, wizard.StepIdea)
	s.mu.Unlock()
	if !ready {
		return
	}

	typing := tgbotapi.NewChatAction(s.chatID, tgbotapi.ChatTyping)
	_, _ = b.api.Request(typing)

	res, err := s.wizard.Refine(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case errors.Is(err, wizard.ErrRefineInFlight):
		b.sendMessage(s.chatID, "La IA ya está revisando tu idea.")
	case errors.Is(err, wizard.ErrStaleRefinement):
		b.logger.Debug("Refinement discarded", zap.Int64("chat_id", s.chatID))
	case err != nil:
		b.logger.Error("Refinement failed", zap.Error(err), zap.Int64("chat_id", s.chatID))
		b.sendErrorMessage(s.chatID, refiner.MessageFailed)
	default:
		b.showRefinement(s, res)
	}
}

// showRefinement reports a refinement outcome. Called with s.mu held.
func (b *Bot) showRefinement(s *session, res refiner.Result) {
	if !b.atStep(s, wizard.StepIdea) {
		return
	}
	switch res.Outcome {
	case refiner.OutcomeSuggested:
		b.render(s)
	case refiner.OutcomeFailed:
		b.sendErrorMessage(s.chatID, res.Message)
	default:
		b.sendMessage(s.chatID, res.Message)
	}
}

// dispatch sends the WhatsApp link, or sends the visitor to whatever is
// missing first.
func (b *Bot) dispatch(s *session) {
	link, err := s.pocket.Dispatch()
	switch {
	case errors.Is(err, pocket.ErrMissingContact):
		b.sendErrorMessage(s.chatID, "Antes de enviar, completa tu nombre y email.")
		s.startContactForm()
		b.render(s)
		return
	case errors.Is(err, pocket.ErrEmptyPocket):
		b.sendErrorMessage(s.chatID, "Tu bolsillo está vacío. Diseña al menos un proyecto antes de enviar.")
		s.view = viewDesigner
		b.render(s)
		return
	case err != nil:
		b.logger.Error("Failed to dispatch pocket", zap.Error(err), zap.Int64("chat_id", s.chatID))
		b.sendErrorMessage(s.chatID, "No se pudo preparar tu solicitud.")
		return
	}

	msg := tgbotapi.NewMessage(s.chatID, "Tu solicitud está lista. Toca el botón para enviarla por WhatsApp.")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("📲 Abrir WhatsApp", link)),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send dispatch link",
			zap.Error(err),
			zap.Int64("chat_id", s.chatID))
	}
}

func (b *Bot) clearAll(s *session) {
	s.pocket.ClearAll()
	s.wizard.Restart()
	s.editing = ""
	s.view = viewHome
}
