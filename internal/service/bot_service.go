package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fleetdocs/internal/extraction"
	"fleetdocs/internal/models"
	"fleetdocs/internal/store"
)

// Messenger is the outbound Telegram surface the bot needs. Satisfied by
// TelegramClient; tests substitute a recording fake.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

const (
	callbackUploadTicket   = "action_upload_ticket"
	callbackUploadDocument = "action_upload_document"
	callbackCancel         = "action_cancel"
	callbackSelectVehicle  = "sel_v_" // prefix, followed by the vehicle UUID
)

// BotService drives the per-user conversation: menu, vehicle selection,
// uploads and the odometer follow-up. Updates for the same chat are
// serialized with a per-chat lock; different chats proceed concurrently.
type BotService struct {
	store     store.Store
	telegram  Messenger
	processor *ProcessorService
	uploadDir string
	logger    *zap.Logger

	mu        sync.Mutex
	chatLocks map[int64]*sync.Mutex
}

func NewBotService(st store.Store, telegram Messenger, processor *ProcessorService, uploadDir string, logger *zap.Logger) *BotService {
	return &BotService{
		store:     st,
		telegram:  telegram,
		processor: processor,
		uploadDir: uploadDir,
		logger:    logger,
		chatLocks: make(map[int64]*sync.Mutex),
	}
}

func (s *BotService) lockChat(chatID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.chatLocks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		s.chatLocks[chatID] = lock
	}
	return lock
}

// HandleUpdate dispatches one Telegram update. Errors are logged and
// reported to the user; they never propagate to the transport layer.
func (s *BotService) HandleUpdate(ctx context.Context, update TelegramUpdate) {
	var chatID int64
	var from *TelegramUser

	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		chatID = update.CallbackQuery.Message.Chat.ID
		from = update.CallbackQuery.From
	case update.Message != nil:
		chatID = update.Message.Chat.ID
		from = update.Message.From
	default:
		return
	}
	if from == nil {
		return
	}

	lock := s.lockChat(chatID)
	lock.Lock()
	defer lock.Unlock()

	user, session, err := s.ensureSession(ctx, from)
	if err != nil {
		s.logger.Error("Failed to load session", zap.Int64("chat_id", chatID), zap.Error(err))
		s.reply(ctx, chatID, "Something went wrong, please try again.")
		return
	}

	if update.CallbackQuery != nil {
		if err := s.telegram.AnswerCallbackQuery(ctx, update.CallbackQuery.ID); err != nil {
			s.logger.Warn("Failed to answer callback", zap.Error(err))
		}
		s.handleCallback(ctx, chatID, user, session, update.CallbackQuery.Data)
		return
	}

	s.handleMessage(ctx, chatID, user, session, update.Message)
}

func (s *BotService) ensureSession(ctx context.Context, from *TelegramUser) (*models.User, *models.Session, error) {
	user, err := s.store.GetUserByTelegramID(ctx, from.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		name := from.FirstName
		if name == "" {
			name = from.Username
		}
		user = &models.User{
			ID:         uuid.New(),
			TelegramID: from.ID,
			Name:       name,
			CreatedAt:  time.Now(),
		}
		if err := s.store.CreateUser(ctx, user); err != nil {
			return nil, nil, fmt.Errorf("create user: %w", err)
		}
	}

	session, err := s.store.GetSessionByUserID(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup session: %w", err)
	}
	if session == nil {
		session = &models.Session{
			ID:        uuid.New(),
			UserID:    user.ID,
			UpdatedAt: time.Now(),
		}
		if err := s.store.SaveSession(ctx, session); err != nil {
			return nil, nil, fmt.Errorf("create session: %w", err)
		}
	}
	return user, session, nil
}

func (s *BotService) saveSession(ctx context.Context, session *models.Session) {
	session.UpdatedAt = time.Now()
	if err := s.store.SaveSession(ctx, session); err != nil {
		s.logger.Error("Failed to save session", zap.String("user_id", session.UserID.String()), zap.Error(err))
	}
}

func (s *BotService) handleCallback(ctx context.Context, chatID int64, user *models.User, session *models.Session, data string) {
	switch {
	case data == callbackUploadTicket:
		s.startUpload(ctx, chatID, session, models.PendingUploadTicket, models.PendingPlateForTicket)
	case data == callbackUploadDocument:
		s.startUpload(ctx, chatID, session, models.PendingUploadDocument, models.PendingPlateForDoc)
	case data == callbackCancel:
		s.resetToIdle(ctx, session)
		s.reply(ctx, chatID, "Cancelled.")
	case strings.HasPrefix(data, callbackSelectVehicle):
		s.selectVehicleByID(ctx, chatID, user, session, strings.TrimPrefix(data, callbackSelectVehicle))
	default:
		s.logger.Warn("Unknown callback", zap.String("data", data))
	}
}

// startUpload moves the conversation toward an upload: straight to "send the
// photo" when a vehicle is already selected, otherwise to plate selection.
func (s *BotService) startUpload(ctx context.Context, chatID int64, session *models.Session, uploadState, plateState models.PendingAction) {
	if session.CurrentVehicleID != nil {
		session.PendingAction = uploadState
		s.saveSession(ctx, session)
		s.reply(ctx, chatID, "Send a photo of the document.")
		return
	}

	session.PendingAction = plateState
	s.saveSession(ctx, session)
	s.sendVehicleKeyboard(ctx, chatID, "Which vehicle is it for? Pick one or type the plate.")
}

func (s *BotService) selectVehicleByID(ctx context.Context, chatID int64, user *models.User, session *models.Session, rawID string) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		s.logger.Warn("Bad vehicle callback id", zap.String("raw", rawID))
		return
	}
	vehicle, err := s.store.GetVehicleByID(ctx, id)
	if err != nil || vehicle == nil {
		s.reply(ctx, chatID, "That vehicle no longer exists. Try /vehicles.")
		return
	}
	s.bindVehicle(ctx, chatID, user, session, vehicle)
}

// bindVehicle sets the current vehicle and advances a pending plate state to
// the matching upload state. A photo stashed before the vehicle was known is
// processed right away.
func (s *BotService) bindVehicle(ctx context.Context, chatID int64, user *models.User, session *models.Session, vehicle *models.Vehicle) {
	session.CurrentVehicleID = &vehicle.ID

	if session.PendingFileID != "" {
		fileID, mimeType := session.PendingFileID, session.PendingFileMime
		session.PendingFileID = ""
		session.PendingFileMime = ""
		session.PendingAction = models.PendingNone
		s.saveSession(ctx, session)
		s.reply(ctx, chatID, fmt.Sprintf("Vehicle %s selected.", vehicle.Plate))
		s.processUpload(ctx, chatID, user, session, fileID, mimeType)
		return
	}

	switch session.PendingAction {
	case models.PendingPlateForTicket:
		session.PendingAction = models.PendingUploadTicket
		s.saveSession(ctx, session)
		s.reply(ctx, chatID, fmt.Sprintf("Vehicle %s selected. Send a photo of the fuel ticket.", vehicle.Plate))
	case models.PendingPlateForDoc:
		session.PendingAction = models.PendingUploadDocument
		s.saveSession(ctx, session)
		s.reply(ctx, chatID, fmt.Sprintf("Vehicle %s selected. Send a photo of the document.", vehicle.Plate))
	default:
		s.saveSession(ctx, session)
		s.reply(ctx, chatID, fmt.Sprintf("Vehicle %s selected.", vehicle.Plate))
	}
}

func (s *BotService) handleMessage(ctx context.Context, chatID int64, user *models.User, session *models.Session, msg *TelegramMessage) {
	if msg == nil {
		return
	}

	if len(msg.Photo) > 0 {
		s.handleUploadedFile(ctx, chatID, user, session, largestPhoto(msg.Photo), "image/jpeg")
		return
	}
	if msg.Document != nil {
		if strings.HasPrefix(msg.Document.MimeType, "image/") {
			s.handleUploadedFile(ctx, chatID, user, session, msg.Document.FileID, msg.Document.MimeType)
			return
		}
		s.reply(ctx, chatID, "I can only read images. Send the document as a photo or an image file.")
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch strings.ToLower(text) {
	case "/start":
		s.resetToIdle(ctx, session)
		s.sendMenu(ctx, chatID, user)
		return
	case "/cancel", "cancel":
		s.resetToIdle(ctx, session)
		s.reply(ctx, chatID, "Cancelled.")
		return
	case "/vehicles", "/vehiculos":
		s.sendVehicleKeyboard(ctx, chatID, "Your vehicles:")
		return
	}

	switch session.PendingAction {
	case models.PendingPlateForTicket, models.PendingPlateForDoc:
		s.handlePlateInput(ctx, chatID, user, session, text)
	case models.PendingOdometerReading:
		s.handleOdometerInput(ctx, chatID, session, text)
	default:
		if plate := extraction.NormalizePlate(text); plate != "" && looksLikePlate(plate) {
			s.quickSelectPlate(ctx, chatID, session, plate)
			return
		}
		s.reply(ctx, chatID, "I did not understand that. Use /start for the menu or /vehicles to pick a vehicle.")
	}
}

func (s *BotService) handlePlateInput(ctx context.Context, chatID int64, user *models.User, session *models.Session, text string) {
	plate := extraction.NormalizePlate(text)
	if plate == "" {
		s.reply(ctx, chatID, "That does not look like a plate. Type it like 1234ABC, or /cancel.")
		return
	}

	vehicle, err := s.findOrCreateVehicle(ctx, plate)
	if err != nil {
		s.logger.Error("Failed to resolve vehicle", zap.String("plate", plate), zap.Error(err))
		s.reply(ctx, chatID, "Could not look up that vehicle, please try again.")
		return
	}
	s.bindVehicle(ctx, chatID, user, session, vehicle)
}

// quickSelectPlate lets a user switch vehicles by just typing a plate,
// outside any pending flow.
func (s *BotService) quickSelectPlate(ctx context.Context, chatID int64, session *models.Session, plate string) {
	vehicle, err := s.findOrCreateVehicle(ctx, plate)
	if err != nil {
		s.logger.Error("Failed to resolve vehicle", zap.String("plate", plate), zap.Error(err))
		s.reply(ctx, chatID, "Could not look up that vehicle, please try again.")
		return
	}
	session.CurrentVehicleID = &vehicle.ID
	s.saveSession(ctx, session)
	s.reply(ctx, chatID, fmt.Sprintf("Now working with vehicle %s.", vehicle.Plate))
}

func (s *BotService) findOrCreateVehicle(ctx context.Context, plate string) (*models.Vehicle, error) {
	vehicle, err := s.store.GetVehicleByPlate(ctx, plate)
	if err != nil {
		return nil, err
	}
	if vehicle != nil {
		return vehicle, nil
	}

	vehicle = &models.Vehicle{
		ID:        uuid.New(),
		Plate:     plate,
		Active:    true,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateVehicle(ctx, vehicle); err != nil {
		return nil, err
	}
	s.logger.Info("Vehicle created from chat", zap.String("plate", plate))
	return vehicle, nil
}

// handleUploadedFile routes an incoming image. While the bot is still
// waiting for a vehicle the file is stashed and processed once the plate
// question is answered; otherwise it is processed immediately.
func (s *BotService) handleUploadedFile(ctx context.Context, chatID int64, user *models.User, session *models.Session, fileID, mimeType string) {
	waitingForPlate := session.PendingAction == models.PendingPlateForTicket ||
		session.PendingAction == models.PendingPlateForDoc
	if waitingForPlate && session.CurrentVehicleID == nil {
		session.PendingFileID = fileID
		session.PendingFileMime = mimeType
		s.saveSession(ctx, session)
		s.reply(ctx, chatID, "Got the photo. Which vehicle is it for? Pick one or type the plate.")
		return
	}
	s.processUpload(ctx, chatID, user, session, fileID, mimeType)
}

func (s *BotService) processUpload(ctx context.Context, chatID int64, user *models.User, session *models.Session, fileID, mimeType string) {
	data, err := s.telegram.DownloadFile(ctx, fileID)
	if err != nil {
		s.logger.Error("Failed to download photo", zap.Error(err))
		s.reply(ctx, chatID, "Could not download the photo, please send it again.")
		return
	}

	path := filepath.Join(s.uploadDir, uuid.New().String()+extensionFor(mimeType))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error("Failed to store upload", zap.String("path", path), zap.Error(err))
		s.reply(ctx, chatID, "Could not store the photo, please try again.")
		return
	}

	userID := user.ID
	doc := &models.Document{
		ID:         uuid.New(),
		VehicleID:  session.CurrentVehicleID,
		UserID:     &userID,
		DocType:    models.DocumentTypeOther,
		FilePath:   path,
		MimeType:   mimeType,
		Status:     models.DocumentStatusPending,
		Currency:   "EUR",
		UploadedAt: time.Now(),
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		s.logger.Error("Failed to create document", zap.Error(err))
		s.reply(ctx, chatID, "Could not register the upload, please try again.")
		return
	}

	s.reply(ctx, chatID, "Got it, reading the document...")
	ok, summary := s.processor.ProcessDocument(ctx, doc.ID)
	s.reply(ctx, chatID, summary)

	session.PendingAction = models.PendingNone
	session.PendingFileID = ""
	session.PendingFileMime = ""

	if ok && s.needsOdometer(ctx, doc.ID, session) {
		session.PendingAction = models.PendingOdometerReading
		s.saveSession(ctx, session)
		s.reply(ctx, chatID, "What is the odometer reading? Send the kilometers, or \"skip\".")
		return
	}
	s.saveSession(ctx, session)
}

// needsOdometer reports whether the processed document produced a fuel entry
// that still lacks a reading.
func (s *BotService) needsOdometer(ctx context.Context, documentID uuid.UUID, session *models.Session) bool {
	doc, err := s.store.GetDocumentByID(ctx, documentID)
	if err != nil || doc == nil || doc.DocType != models.DocumentTypeFuelTicket {
		return false
	}
	entry, err := s.store.GetFuelEntryByDocumentID(ctx, documentID)
	if err != nil || entry == nil {
		return false
	}
	if doc.VehicleID != nil {
		// The plate on the ticket decides the vehicle, so the session
		// follows the document and the odometer lands on the right entry.
		session.CurrentVehicleID = doc.VehicleID
	}
	return entry.Kilometers == nil
}

func (s *BotService) handleOdometerInput(ctx context.Context, chatID int64, session *models.Session, text string) {
	if strings.EqualFold(text, "skip") {
		session.PendingAction = models.PendingNone
		s.saveSession(ctx, session)
		s.reply(ctx, chatID, "Okay, skipped the odometer reading.")
		return
	}

	km, err := strconv.Atoi(strings.ReplaceAll(text, ".", ""))
	if err != nil || km < 0 {
		s.reply(ctx, chatID, "Send the odometer as a number, or \"skip\".")
		return
	}

	if session.CurrentVehicleID == nil {
		session.PendingAction = models.PendingNone
		s.saveSession(ctx, session)
		s.reply(ctx, chatID, "No vehicle selected, skipped the reading.")
		return
	}

	entry, err := s.store.LatestFuelEntryWithoutOdometer(ctx, *session.CurrentVehicleID)
	if err != nil {
		s.logger.Error("Failed to find fuel entry for odometer", zap.Error(err))
		s.reply(ctx, chatID, "Could not save the reading, please try again.")
		return
	}

	session.PendingAction = models.PendingNone
	s.saveSession(ctx, session)

	if entry == nil {
		s.reply(ctx, chatID, "There is no recent refueling waiting for a reading.")
		return
	}
	if err := s.store.SetFuelEntryKilometers(ctx, entry.ID, km); err != nil {
		s.logger.Error("Failed to save odometer", zap.Error(err))
		s.reply(ctx, chatID, "Could not save the reading, please try again.")
		return
	}
	s.reply(ctx, chatID, fmt.Sprintf("Odometer recorded: %d km.", km))
}

func (s *BotService) resetToIdle(ctx context.Context, session *models.Session) {
	session.PendingAction = models.PendingNone
	session.PendingFileID = ""
	session.PendingFileMime = ""
	s.saveSession(ctx, session)
}

func (s *BotService) sendMenu(ctx context.Context, chatID int64, user *models.User) {
	keyboard := &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
		{{Text: "Upload fuel ticket", CallbackData: callbackUploadTicket}},
		{{Text: "Upload document", CallbackData: callbackUploadDocument}},
		{{Text: "Cancel", CallbackData: callbackCancel}},
	}}
	greeting := "What do you want to do?"
	if user.Name != "" {
		greeting = fmt.Sprintf("Hi %s! What do you want to do?", user.Name)
	}
	if err := s.telegram.SendMessage(ctx, chatID, greeting, keyboard); err != nil {
		s.logger.Error("Failed to send menu", zap.Error(err))
	}
}

func (s *BotService) sendVehicleKeyboard(ctx context.Context, chatID int64, text string) {
	vehicles, err := s.store.ListActiveVehicles(ctx)
	if err != nil {
		s.logger.Error("Failed to list vehicles", zap.Error(err))
		s.reply(ctx, chatID, "Could not load the vehicle list, please try again.")
		return
	}
	if len(vehicles) == 0 {
		s.reply(ctx, chatID, "No vehicles yet. Type a plate to register one.")
		return
	}

	var rows [][]InlineKeyboardButton
	for _, v := range vehicles {
		label := v.Plate
		if v.Alias != "" {
			label = fmt.Sprintf("%s (%s)", v.Plate, v.Alias)
		}
		rows = append(rows, []InlineKeyboardButton{{
			Text:         label,
			CallbackData: callbackSelectVehicle + v.ID.String(),
		}})
	}
	if err := s.telegram.SendMessage(ctx, chatID, text, &InlineKeyboardMarkup{InlineKeyboard: rows}); err != nil {
		s.logger.Error("Failed to send vehicle list", zap.Error(err))
	}
}

func (s *BotService) reply(ctx context.Context, chatID int64, text string) {
	if text == "" {
		return
	}
	if err := s.telegram.SendMessage(ctx, chatID, text, nil); err != nil {
		s.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func largestPhoto(sizes []TelegramPhotoSize) string {
	best := sizes[0]
	for _, size := range sizes[1:] {
		if size.FileSize > best.FileSize {
			best = size
		}
	}
	return best.FileID
}

// looksLikePlate requires both digits and letters, so ordinary words are not
// mistaken for a quick vehicle selection.
func looksLikePlate(plate string) bool {
	var hasDigit, hasLetter bool
	for _, r := range plate {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'A' && r <= 'Z':
			hasLetter = true
		}
	}
	return hasDigit && hasLetter && len(plate) <= 10
}
