package pocket

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/comproclick-bot/internal/catalog"
	"github.com/xaenox/comproclick-bot/internal/models"
	"github.com/xaenox/comproclick-bot/internal/storage"
)

var testDestination = Destination{Host: "wa.me", Recipient: "+57 315 304 2476"}

func openPocket(t *testing.T, store storage.Storage) *Pocket {
	t.Helper()
	return Open(context.Background(), store, "chat-1", catalog.Default(), testDestination, zap.NewNop())
}

func jewelryDraft() models.ProjectDraft {
	return models.ProjectDraft{
		Type:     models.Pick("online_store"),
		Category: models.Pick("commerce"),
		Timeline: "short",
		Idea:     "Sell handmade jewelry online",
	}
}

func TestBuildOutboundMessageScenario(t *testing.T) {
	contact := models.ContactProfile{FullName: "Ada Lovelace", Email: "ada@example.com"}
	items := []models.ProjectItem{{ID: "1", ProjectDraft: jewelryDraft()}}

	want := "Hola Compro.click 👋, tengo las siguientes solicitudes de proyecto:\n\n" +
		"--- MIS DATOS DE CONTACTO ---\n" +
		"*Nombre completo:* Ada Lovelace\n" +
		"*Email:* ada@example.com\n" +
		"\n" +
		"--- PROYECTO 1 ---\n" +
		"*Tipo de proyecto:* Tienda Online\n" +
		"*Categoría:* Comercio\n" +
		"*Plazo:* Corto (1–2 sem)\n" +
		"*Idea de Proyecto:* Sell handmade jewelry online\n" +
		"\n" +
		"¡Espero su contacto para discutir más detalles!"

	assert.Equal(t, want, BuildOutboundMessage(contact, items, catalog.Default()))
}

func TestBuildOutboundMessageFullContactAndOtherFields(t *testing.T) {
	contact := models.ContactProfile{
		FullName:    "Ada Lovelace",
		CompanyName: "Analytical Engines",
		Phone:       "+44 20 0000",
		Email:       "ada@example.com",
		Country:     "UK",
	}
	items := []models.ProjectItem{
		{ID: "1", ProjectDraft: jewelryDraft()},
		{ID: "2", ProjectDraft: models.ProjectDraft{
			Type:        models.Pick(models.OtherID).WithOther("Kiosco"),
			Category:    models.Pick(models.OtherID).WithOther("Salud"),
			Timeline:    "long",
			Idea:        "Turnos para clínica",
			RefinedIdea: "Turnos en línea para clínica con recordatorios",
		}},
	}

	msg := BuildOutboundMessage(contact, items, catalog.Default())

	assert.Contains(t, msg, "--- MIS DATOS DE CONTACTO ---\n"+
		"*Nombre completo:* Ada Lovelace\n"+
		"*Email:* ada@example.com\n"+
		"*Teléfono:* +44 20 0000\n"+
		"*Empresa:* Analytical Engines\n"+
		"*País:* UK\n\n")
	assert.Contains(t, msg, "--- PROYECTO 2 ---\n"+
		"*Tipo de proyecto:* Otro\n"+
		"*Otro tipo:* Kiosco\n"+
		"*Categoría:* Otro\n"+
		"*Otra categoría:* Salud\n"+
		"*Plazo:* Largo (6+ sem)\n"+
		"*Idea de Proyecto:* Turnos para clínica\n"+
		"*Idea Refinada (IA):* Turnos en línea para clínica con recordatorios\n\n")
	assert.Less(t, strings.Index(msg, "PROYECTO 1"), strings.Index(msg, "PROYECTO 2"))
}

func TestBuildOutboundMessageOmitsStaleOtherText(t *testing.T) {
	item := models.ProjectItem{ID: "1", ProjectDraft: jewelryDraft()}
	item.Type = models.Choice{ID: "online_store", Other: "left over from a previous selection"}
	item.Category = models.Choice{ID: "commerce", Other: "also stale"}

	msg := BuildOutboundMessage(models.ContactProfile{}, []models.ProjectItem{item}, catalog.Default())
	assert.NotContains(t, msg, "Otro tipo")
	assert.NotContains(t, msg, "Otra categoría")
	assert.NotContains(t, msg, "left over")
}

func TestBuildOutboundMessageRefinedIdeaOnlyWhenDistinct(t *testing.T) {
	item := models.ProjectItem{ID: "1", ProjectDraft: jewelryDraft()}
	item.RefinedIdea = item.Idea

	msg := BuildOutboundMessage(models.ContactProfile{}, []models.ProjectItem{item}, catalog.Default())
	assert.NotContains(t, msg, "Idea Refinada")
}

func TestBuildOutboundMessageBlankAndUnknownValues(t *testing.T) {
	item := models.ProjectItem{ID: "1", ProjectDraft: models.ProjectDraft{
		Type:     models.Pick("website"),
		Category: models.Pick("gym"),
		Timeline: "",
		Idea:     " ",
	}}

	msg := BuildOutboundMessage(models.ContactProfile{FullName: "  "}, []models.ProjectItem{item}, catalog.Default())
	assert.Contains(t, msg, "*Tipo de proyecto:* Sitio web\n")
	assert.Contains(t, msg, "*Categoría:* gym\n")
	assert.Contains(t, msg, "*Plazo:* No especificado\n")
	assert.Contains(t, msg, "*Idea de Proyecto:* No especificado\n")
	assert.NotContains(t, msg, "Nombre completo", "blank contact fields are omitted")
}

func TestBuildOutboundMessageEmptyPocket(t *testing.T) {
	msg := BuildOutboundMessage(models.ContactProfile{FullName: "Ada"}, nil, catalog.Default())
	assert.True(t, strings.HasSuffix(msg, "*Nombre completo:* Ada\n\nAún no he definido proyectos.\n\n¡Espero su contacto para discutir más detalles!"))
}

func TestAddDraftAssignsUniqueIDsInOrder(t *testing.T) {
	p := openPocket(t, storage.NewMemoryStorage())

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		d := jewelryDraft()
		d.Idea = strings.Repeat("x", 10+i)
		item, err := p.AddDraft(d)
		require.NoError(t, err)
		require.NotEmpty(t, item.ID)
		require.False(t, seen[item.ID], "duplicate id %s", item.ID)
		seen[item.ID] = true
	}

	items := p.Items()
	require.Len(t, items, 20)
	for i, item := range items {
		assert.Equal(t, 10+i, len(item.Idea), "insertion order is preserved")
	}
}

func TestAddDraftRejectsDuplicateID(t *testing.T) {
	p := openPocket(t, storage.NewMemoryStorage())
	p.newID = func() string { return "fixed" }

	_, err := p.AddDraft(jewelryDraft())
	require.NoError(t, err)
	_, err = p.AddDraft(jewelryDraft())
	assert.Error(t, err)
	assert.Equal(t, 1, p.Len())
}

func TestRemoveIsIdempotent(t *testing.T) {
	p := openPocket(t, storage.NewMemoryStorage())
	first, _ := p.AddDraft(jewelryDraft())
	second, _ := p.AddDraft(jewelryDraft())

	assert.True(t, p.Remove(first.ID))
	after := p.Items()
	assert.False(t, p.Remove(first.ID))
	assert.Equal(t, after, p.Items())
	assert.False(t, p.Remove("missing"))

	require.Len(t, after, 1)
	assert.Equal(t, second.ID, after[0].ID)
}

func TestPocketPersistsAcrossSessions(t *testing.T) {
	store := storage.NewMemoryStorage()
	p := openPocket(t, store)
	item, err := p.AddDraft(jewelryDraft())
	require.NoError(t, err)
	require.NoError(t, p.SetContactField(models.FieldFullName, "Ada Lovelace"))

	reopened := openPocket(t, store)
	assert.Equal(t, []models.ProjectItem{item}, reopened.Items())
	assert.Equal(t, "Ada Lovelace", reopened.Contact().FullName)
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	p := openPocket(t, store)
	_, _ = p.AddDraft(jewelryDraft())
	require.NoError(t, p.SetContactField(models.FieldEmail, "ada@example.com"))

	p.ClearAll()

	assert.Empty(t, p.Items())
	assert.Equal(t, models.ContactProfile{}, p.Contact())
	_, err := store.Get(ctx, "chat-1", ContactKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.Get(ctx, "chat-1", ItemsKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSetContactFieldValidates(t *testing.T) {
	p := openPocket(t, storage.NewMemoryStorage())

	assert.ErrorIs(t, p.SetContactField(models.FieldEmail, "not-an-email"), models.ErrInvalidContact)
	assert.Empty(t, p.Contact().Email)

	require.NoError(t, p.SetContactField(models.FieldEmail, "  ada@example.com "))
	assert.Equal(t, "ada@example.com", p.Contact().Email)

	require.NoError(t, p.SetContactField(models.FieldPhone, ""))
	assert.ErrorIs(t, p.SetContactField("nickname", "x"), models.ErrUnknownContactField)
}

func TestSetContactFieldDashClearsOptional(t *testing.T) {
	p := openPocket(t, storage.NewMemoryStorage())
	_, err := p.AddDraft(jewelryDraft())
	require.NoError(t, err)
	require.NoError(t, p.SetContactField(models.FieldFullName, "Ada Lovelace"))
	require.NoError(t, p.SetContactField(models.FieldEmail, "ada@example.com"))
	require.NoError(t, p.SetContactField(models.FieldPhone, "+57 300 000 0000"))
	require.NoError(t, p.SetContactField(models.FieldCompanyName, "Analytical Engines"))

	require.NoError(t, p.SetContactField(models.FieldPhone, " - "))
	assert.Empty(t, p.Contact().Phone)
	assert.Equal(t, "Analytical Engines", p.Contact().CompanyName)

	msg := BuildOutboundMessage(p.Contact(), p.Items(), catalog.Default())
	assert.NotContains(t, msg, "Teléfono")
	assert.Contains(t, msg, "Analytical Engines")

	assert.ErrorIs(t, p.SetContactField(models.FieldEmail, "-"), models.ErrInvalidContact)
	assert.Equal(t, "ada@example.com", p.Contact().Email, "required fields are not cleared")
}

func TestDispatchPreconditions(t *testing.T) {
	p := openPocket(t, storage.NewMemoryStorage())
	for i := 0; i < 3; i++ {
		_, err := p.AddDraft(jewelryDraft())
		require.NoError(t, err)
	}
	require.NoError(t, p.SetContactField(models.FieldFullName, "Ada Lovelace"))

	link, err := p.Dispatch()
	assert.ErrorIs(t, err, ErrMissingContact, "email is mandatory even with three projects")
	assert.Empty(t, link)

	require.NoError(t, p.SetContactField(models.FieldEmail, "ada@example.com"))
	empty := openPocket(t, storage.NewMemoryStorage())
	require.NoError(t, empty.SetContactField(models.FieldFullName, "Ada Lovelace"))
	require.NoError(t, empty.SetContactField(models.FieldEmail, "ada@example.com"))
	_, err = empty.Dispatch()
	assert.ErrorIs(t, err, ErrEmptyPocket)

	link, err = p.Dispatch()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "https://wa.me/573153042476?text="))
}

func TestDeepLinkRoundTrip(t *testing.T) {
	msg := BuildOutboundMessage(
		models.ContactProfile{FullName: "Ada & Co", Email: "ada+test@example.com"},
		[]models.ProjectItem{{ID: "1", ProjectDraft: jewelryDraft()}},
		catalog.Default(),
	)

	link := DeepLink(testDestination, msg)
	assert.NotContains(t, link, "+", "spaces are %20 and plus signs are escaped")
	assert.NotContains(t, link, " ")

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "wa.me", u.Host)
	assert.Equal(t, "/573153042476", u.Path)
	assert.Equal(t, msg, u.Query().Get("text"))
}
