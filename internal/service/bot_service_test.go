package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fleetdocs/internal/extraction"
	"fleetdocs/internal/models"
)

type sentMessage struct {
	chatID   int64
	text     string
	keyboard *InlineKeyboardMarkup
}

type fakeMessenger struct {
	sent      []sentMessage
	answered  []string
	fileBytes []byte
}

func (m *fakeMessenger) SendMessage(_ context.Context, chatID int64, text string, keyboard *InlineKeyboardMarkup) error {
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text, keyboard: keyboard})
	return nil
}

func (m *fakeMessenger) AnswerCallbackQuery(_ context.Context, callbackID string) error {
	m.answered = append(m.answered, callbackID)
	return nil
}

func (m *fakeMessenger) DownloadFile(_ context.Context, _ string) ([]byte, error) {
	if m.fileBytes == nil {
		return []byte("jpeg-bytes"), nil
	}
	return m.fileBytes, nil
}

func (m *fakeMessenger) lastText() string {
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].text
}

const testChatID int64 = 4242

func newBot(t *testing.T, st *fakeStore, vision *fakeVision) (*BotService, *fakeMessenger) {
	t.Helper()
	messenger := &fakeMessenger{}
	processor := newProcessor(st, vision)
	bot := NewBotService(st, messenger, processor, t.TempDir(), zap.NewNop())
	return bot, messenger
}

func textUpdate(text string) TelegramUpdate {
	return TelegramUpdate{Message: &TelegramMessage{
		From: &TelegramUser{ID: testChatID, FirstName: "Ana"},
		Chat: TelegramChat{ID: testChatID},
		Text: text,
	}}
}

func callbackUpdate(data string) TelegramUpdate {
	return TelegramUpdate{CallbackQuery: &TelegramCallbackQuery{
		ID:      "cb-1",
		From:    &TelegramUser{ID: testChatID, FirstName: "Ana"},
		Message: &TelegramMessage{Chat: TelegramChat{ID: testChatID}},
		Data:    data,
	}}
}

func photoUpdate() TelegramUpdate {
	return TelegramUpdate{Message: &TelegramMessage{
		From: &TelegramUser{ID: testChatID, FirstName: "Ana"},
		Chat: TelegramChat{ID: testChatID},
		Photo: []TelegramPhotoSize{
			{FileID: "small", FileSize: 100},
			{FileID: "large", FileSize: 9000},
		},
	}}
}

func sessionOf(t *testing.T, st *fakeStore) *models.Session {
	t.Helper()
	user, err := st.GetUserByTelegramID(context.Background(), testChatID)
	require.NoError(t, err)
	require.NotNil(t, user)
	session, err := st.GetSessionByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, session)
	return session
}

func TestStartSendsMenuAndCreatesUser(t *testing.T) {
	st := newFakeStore()
	bot, messenger := newBot(t, st, &fakeVision{})

	bot.HandleUpdate(context.Background(), textUpdate("/start"))

	require.Len(t, messenger.sent, 1)
	assert.Contains(t, messenger.sent[0].text, "Ana")
	require.NotNil(t, messenger.sent[0].keyboard)
	assert.Len(t, messenger.sent[0].keyboard.InlineKeyboard, 3)

	session := sessionOf(t, st)
	assert.Equal(t, models.PendingNone, session.PendingAction)
}

func TestCancelFromIdleIsNoOp(t *testing.T) {
	st := newFakeStore()
	bot, messenger := newBot(t, st, &fakeVision{})

	bot.HandleUpdate(context.Background(), callbackUpdate(callbackCancel))

	assert.Equal(t, []string{"cb-1"}, messenger.answered)
	assert.Equal(t, "Cancelled.", messenger.lastText())
	assert.Equal(t, models.PendingNone, sessionOf(t, st).PendingAction)
}

func TestUploadFlowAsksForVehicleThenPhoto(t *testing.T) {
	st := newFakeStore()
	vehicle := &models.Vehicle{ID: uuid.New(), Plate: "1234ABC", Active: true}
	require.NoError(t, st.CreateVehicle(context.Background(), vehicle))
	bot, messenger := newBot(t, st, &fakeVision{})

	bot.HandleUpdate(context.Background(), callbackUpdate(callbackUploadTicket))
	assert.Equal(t, models.PendingPlateForTicket, sessionOf(t, st).PendingAction)
	require.NotNil(t, messenger.sent[len(messenger.sent)-1].keyboard)

	bot.HandleUpdate(context.Background(), callbackUpdate(callbackSelectVehicle+vehicle.ID.String()))

	session := sessionOf(t, st)
	assert.Equal(t, models.PendingUploadTicket, session.PendingAction)
	require.NotNil(t, session.CurrentVehicleID)
	assert.Equal(t, vehicle.ID, *session.CurrentVehicleID)
	assert.Contains(t, messenger.lastText(), "1234ABC")
}

func TestUploadWithCurrentVehicleSkipsSelection(t *testing.T) {
	st := newFakeStore()
	vehicle := &models.Vehicle{ID: uuid.New(), Plate: "1234ABC", Active: true}
	require.NoError(t, st.CreateVehicle(context.Background(), vehicle))
	bot, messenger := newBot(t, st, &fakeVision{})

	bot.HandleUpdate(context.Background(), textUpdate("1234 abc"))
	assert.Contains(t, messenger.lastText(), "1234ABC")

	bot.HandleUpdate(context.Background(), callbackUpdate(callbackUploadDocument))
	assert.Equal(t, models.PendingUploadDocument, sessionOf(t, st).PendingAction)
	assert.Contains(t, messenger.lastText(), "photo")
}

func TestTypedPlateCreatesVehicle(t *testing.T) {
	st := newFakeStore()
	bot, messenger := newBot(t, st, &fakeVision{})

	bot.HandleUpdate(context.Background(), callbackUpdate(callbackUploadTicket))
	// No vehicles exist yet, so the bot asks for a plate.
	assert.Contains(t, messenger.lastText(), "plate")

	bot.HandleUpdate(context.Background(), textUpdate("5678 DEF"))

	vehicle, err := st.GetVehicleByPlate(context.Background(), "5678DEF")
	require.NoError(t, err)
	require.NotNil(t, vehicle)
	assert.True(t, vehicle.Active)
	assert.Equal(t, models.PendingUploadTicket, sessionOf(t, st).PendingAction)
}

func TestRejectedPlateReprompts(t *testing.T) {
	st := newFakeStore()
	bot, messenger := newBot(t, st, &fakeVision{})

	bot.HandleUpdate(context.Background(), callbackUpdate(callbackUploadTicket))
	bot.HandleUpdate(context.Background(), textUpdate("??"))

	assert.Contains(t, messenger.lastText(), "does not look like a plate")
	assert.Equal(t, models.PendingPlateForTicket, sessionOf(t, st).PendingAction)
}

func TestNonImageDocumentRejected(t *testing.T) {
	st := newFakeStore()
	bot, messenger := newBot(t, st, &fakeVision{})

	bot.HandleUpdate(context.Background(), TelegramUpdate{Message: &TelegramMessage{
		From:     &TelegramUser{ID: testChatID},
		Chat:     TelegramChat{ID: testChatID},
		Document: &TelegramDocumentPayload{FileID: "f1", MimeType: "application/pdf", FileName: "doc.pdf"},
	}})

	assert.Contains(t, messenger.lastText(), "only read images")
	assert.Empty(t, st.documents)
}

func TestFuelPhotoAsksForOdometer(t *testing.T) {
	st := newFakeStore()
	vision := &fakeVision{raw: extraction.RawExtraction{
		DocType:                "fuel_ticket",
		VehicleIdentifierGuess: "9999ZZZ",
		Amounts:                extraction.RawAmounts{Total: "80,00"},
		Fuel:                   extraction.RawFuel{Liters: "45"},
	}}
	bot, messenger := newBot(t, st, vision)

	bot.HandleUpdate(context.Background(), photoUpdate())

	assert.Len(t, st.documents, 1)
	assert.Len(t, st.fuel, 1)
	assert.Contains(t, messenger.lastText(), "odometer")
	assert.Equal(t, models.PendingOdometerReading, sessionOf(t, st).PendingAction)
}

func TestOdometerNumberRecorded(t *testing.T) {
	st := newFakeStore()
	vision := &fakeVision{raw: extraction.RawExtraction{
		DocType:                "fuel_ticket",
		VehicleIdentifierGuess: "9999ZZZ",
		Amounts:                extraction.RawAmounts{Total: "80,00"},
		Fuel:                   extraction.RawFuel{Liters: "40"},
	}}
	bot, messenger := newBot(t, st, vision)

	bot.HandleUpdate(context.Background(), photoUpdate())
	bot.HandleUpdate(context.Background(), textUpdate("123456"))

	assert.Contains(t, messenger.lastText(), "123456")
	assert.Equal(t, models.PendingNone, sessionOf(t, st).PendingAction)
	for _, entry := range st.fuel {
		require.NotNil(t, entry.Kilometers)
		assert.Equal(t, 123456, *entry.Kilometers)
	}
}

func TestOdometerSkipLeavesEntryWithoutReading(t *testing.T) {
	st := newFakeStore()
	vision := &fakeVision{raw: extraction.RawExtraction{
		DocType:                "fuel_ticket",
		VehicleIdentifierGuess: "9999ZZZ",
		Amounts:                extraction.RawAmounts{Total: "80,00"},
		Fuel:                   extraction.RawFuel{Liters: "40"},
	}}
	bot, messenger := newBot(t, st, vision)

	bot.HandleUpdate(context.Background(), photoUpdate())
	bot.HandleUpdate(context.Background(), textUpdate("skip"))

	assert.Contains(t, messenger.lastText(), "skipped")
	assert.Equal(t, models.PendingNone, sessionOf(t, st).PendingAction)
	for _, entry := range st.fuel {
		assert.Nil(t, entry.Kilometers)
	}
}

func TestOdometerGarbageReprompts(t *testing.T) {
	st := newFakeStore()
	vision := &fakeVision{raw: extraction.RawExtraction{
		DocType:                "fuel_ticket",
		VehicleIdentifierGuess: "9999ZZZ",
		Amounts:                extraction.RawAmounts{Total: "80,00"},
		Fuel:                   extraction.RawFuel{Liters: "40"},
	}}
	bot, messenger := newBot(t, st, vision)

	bot.HandleUpdate(context.Background(), photoUpdate())
	bot.HandleUpdate(context.Background(), textUpdate("not a number"))

	assert.Contains(t, messenger.lastText(), "number")
	assert.Equal(t, models.PendingOdometerReading, sessionOf(t, st).PendingAction)
}

func TestVehicleListCommand(t *testing.T) {
	st := newFakeStore()
	for i := 0; i < 2; i++ {
		require.NoError(t, st.CreateVehicle(context.Background(), &models.Vehicle{
			ID: uuid.New(), Plate: fmt.Sprintf("%d%d%d%dABC", i, i, i, i), Active: true,
		}))
	}
	require.NoError(t, st.CreateVehicle(context.Background(), &models.Vehicle{
		ID: uuid.New(), Plate: "0000OLD", Active: false,
	}))
	bot, messenger := newBot(t, st, &fakeVision{})

	bot.HandleUpdate(context.Background(), textUpdate("/vehicles"))

	last := messenger.sent[len(messenger.sent)-1]
	require.NotNil(t, last.keyboard)
	assert.Len(t, last.keyboard.InlineKeyboard, 2)
}

func TestPhotoBeforeVehicleIsStashedUntilPlate(t *testing.T) {
	st := newFakeStore()
	vision := &fakeVision{raw: extraction.RawExtraction{
		DocType: "fuel_ticket",
		Amounts: extraction.RawAmounts{Total: "80,00"},
		Fuel:    extraction.RawFuel{Liters: "40"},
	}}
	bot, messenger := newBot(t, st, vision)

	// No vehicles exist, so the upload flow asks for a plate first.
	bot.HandleUpdate(context.Background(), callbackUpdate(callbackUploadTicket))
	assert.Contains(t, messenger.lastText(), "plate")

	// The photo arrives before the plate; it is held, not processed.
	bot.HandleUpdate(context.Background(), photoUpdate())
	assert.Empty(t, st.documents)
	assert.Equal(t, "large", sessionOf(t, st).PendingFileID)
	assert.Contains(t, messenger.lastText(), "Which vehicle")

	bot.HandleUpdate(context.Background(), textUpdate("5678 DEF"))

	require.Len(t, st.documents, 1)
	assert.Len(t, st.fuel, 1)
	session := sessionOf(t, st)
	assert.Empty(t, session.PendingFileID)
	for _, doc := range st.documents {
		require.NotNil(t, doc.VehicleID)
		vehicle, err := st.GetVehicleByID(context.Background(), *doc.VehicleID)
		require.NoError(t, err)
		assert.Equal(t, "5678DEF", vehicle.Plate)
	}
}

func TestImageDocumentKeepsReportedMime(t *testing.T) {
	st := newFakeStore()
	vision := &fakeVision{raw: extraction.RawExtraction{
		DocType:                "workshop_invoice",
		VehicleIdentifierGuess: "3333DDD",
		Amounts:                extraction.RawAmounts{Total: "121,00"},
	}}
	bot, _ := newBot(t, st, vision)

	bot.HandleUpdate(context.Background(), TelegramUpdate{Message: &TelegramMessage{
		From:     &TelegramUser{ID: testChatID, FirstName: "Ana"},
		Chat:     TelegramChat{ID: testChatID},
		Document: &TelegramDocumentPayload{FileID: "f-png", MimeType: "image/png", FileName: "scan.png"},
	}})

	require.Len(t, st.documents, 1)
	for _, doc := range st.documents {
		assert.Equal(t, "image/png", doc.MimeType)
		assert.True(t, strings.HasSuffix(doc.FilePath, ".png"), doc.FilePath)
	}
	assert.Equal(t, "image/png", vision.mime)
}

func TestUnknownTextGetsHelp(t *testing.T) {
	st := newFakeStore()
	bot, messenger := newBot(t, st, &fakeVision{})

	bot.HandleUpdate(context.Background(), textUpdate("hello there"))

	assert.Contains(t, messenger.lastText(), "/start")
	assert.Equal(t, models.PendingNone, sessionOf(t, st).PendingAction)
}
