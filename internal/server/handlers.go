package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/havenmind/haven/internal/assessment"
	"github.com/havenmind/haven/internal/crisis"
	"github.com/havenmind/haven/internal/report"
	"github.com/havenmind/haven/internal/store"
	"github.com/havenmind/haven/internal/users"
)

const (
	defaultMoodWindowDays = 7
	chatHistoryLimit      = 50
	reportChatLimit       = 200
	reportMoodWindowDays  = 30
)

type hotline struct {
	Region string `json:"region"`
	Number string `json:"number"`
}

var crisisHotlines = []hotline{
	{Region: "US", Number: "988"},
	{Region: "UK", Number: "116 123"},
	{Region: "EU", Number: "112"},
}

const supportReply = "Thank you for sharing that with me. It sounds like you're going through a difficult time. Would you like to talk more about what's on your mind?"

const crisisReply = "I'm really concerned about what you've shared. Please reach out to a crisis support service right now. You don't have to face this alone."

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name"`
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	identity, err := h.users.Authenticate(request.Email, request.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "login failed")
		return
	}
	h.respondAuth(c, identity)
}

func (h *httpHandler) handleAnonymousLogin(c *gin.Context) {
	identity, err := h.users.CreateAnonymous()
	if err != nil {
		h.logger.Error("anonymous login failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "login failed")
		return
	}
	h.respondAuth(c, identity)
}

func (h *httpHandler) respondAuth(c *gin.Context, identity store.Identity) {
	token, _, err := h.tokens.IssueToken(identity.ClientID)
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "login failed")
		return
	}
	respondOK(c, gin.H{
		"user":  userPayload{ID: identity.ClientID, Email: identity.Email, Name: identity.Name},
		"token": token,
	})
}

type registerPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request registerPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := h.users.Register(request.Name, request.Email, request.Password); err != nil {
		switch {
		case errors.Is(err, users.ErrInvalidRegistration):
			respondError(c, http.StatusBadRequest, "Name, email and a password of at least 6 characters are required")
		case errors.Is(err, users.ErrEmailTaken):
			respondError(c, http.StatusConflict, "Email already registered")
		default:
			h.logger.Error("registration failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "registration failed")
		}
		return
	}
	respondOK(c, nil)
}

type chatPayload struct {
	Message string `json:"message"`
}

func (h *httpHandler) handleChat(c *gin.Context) {
	clientID, ok := h.clientID(c)
	if !ok {
		return
	}
	var request chatPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Message) == "" {
		respondError(c, http.StatusBadRequest, "message is required")
		return
	}

	classification := "support"
	reply := supportReply
	if crisis.Detect(request.Message) {
		classification = "crisis"
		reply = crisisReply
	}
	if _, err := h.store.AppendChat(clientID, request.Message, reply, classification); err != nil {
		h.logger.Error("failed to append chat", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "chat failed")
		return
	}

	payload := gin.H{"type": classification, "message": reply}
	if classification == "crisis" {
		payload["hotlines"] = crisisHotlines
	}
	respondOK(c, payload)
}

type chatHistoryEntryPayload struct {
	At       time.Time `json:"at"`
	Message  string    `json:"message"`
	Response string    `json:"response"`
}

func (h *httpHandler) handleChatHistory(c *gin.Context) {
	clientID, ok := h.clientID(c)
	if !ok {
		return
	}
	exchanges, err := h.store.ChatHistory(clientID, chatHistoryLimit)
	if err != nil {
		h.logger.Error("failed to load chat history", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "history failed")
		return
	}
	entries := make([]chatHistoryEntryPayload, 0, len(exchanges))
	for _, exchange := range exchanges {
		entries = append(entries, chatHistoryEntryPayload{
			At:       exchange.CreatedAt,
			Message:  exchange.Message,
			Response: exchange.Response,
		})
	}
	respondData(c, entries)
}

type moodPointPayload struct {
	Date  string `json:"date"`
	Score int    `json:"score"`
	Note  string `json:"note,omitempty"`
}

func (h *httpHandler) handleMoodSeries(c *gin.Context) {
	clientID, ok := h.clientID(c)
	if !ok {
		return
	}
	days := defaultMoodWindowDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(c, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}
	entries, err := h.store.Moods(clientID, days)
	if err != nil {
		h.logger.Error("failed to load moods", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "moods failed")
		return
	}
	points := make([]moodPointPayload, 0, len(entries))
	for _, entry := range entries {
		points = append(points, moodPointPayload{Date: entry.Day, Score: entry.Score, Note: entry.Note})
	}
	respondData(c, points)
}

type moodAddPayload struct {
	Score int    `json:"score"`
	Note  string `json:"note"`
}

func (h *httpHandler) handleMoodAdd(c *gin.Context) {
	clientID, ok := h.clientID(c)
	if !ok {
		return
	}
	var request moodAddPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := h.store.AddMood(clientID, store.DayKey(h.now()), request.Score, request.Note); err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidMoodScore):
			respondError(c, http.StatusBadRequest, "score must be between 1 and 5")
		case errors.Is(err, store.ErrMoodAlreadyLogged):
			respondError(c, http.StatusConflict, "Mood already logged for today")
		default:
			h.logger.Error("failed to add mood", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "mood failed")
		}
		return
	}
	respondOK(c, nil)
}

func (h *httpHandler) handleMoodSummary(c *gin.Context) {
	clientID, ok := h.clientID(c)
	if !ok {
		return
	}
	average, count, err := h.store.MoodSummary(clientID, defaultMoodWindowDays)
	if err != nil {
		h.logger.Error("failed to summarize moods", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "summary failed")
		return
	}
	respondData(c, gin.H{"average": average, "count": count})
}

type assessmentSubmitPayload struct {
	Answers []int `json:"answers"`
	Total   int   `json:"total"`
}

// handleAssessmentSubmit rescores the answers server side; the client total
// is informational only.
func (h *httpHandler) handleAssessmentSubmit(c *gin.Context) {
	clientID, ok := h.clientID(c)
	if !ok {
		return
	}
	var request assessmentSubmitPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	snapshot, err := assessment.LocalSnapshot(request.Answers, h.now())
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	snapshot.Source = assessment.SourceRemote
	if _, err := h.store.SaveAssessment(clientID, snapshot); err != nil {
		h.logger.Error("failed to save assessment", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "assessment failed")
		return
	}
	respondData(c, snapshot)
}

func (h *httpHandler) handleAssessmentLast(c *gin.Context) {
	clientID, ok := h.clientID(c)
	if !ok {
		return
	}
	snapshot, err := h.store.LastAssessment(clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, "No assessment found")
			return
		}
		h.logger.Error("failed to load assessment", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "assessment failed")
		return
	}
	respondData(c, snapshot)
}

type surveyPayload struct {
	Answers []int   `json:"answers"`
	Score   float64 `json:"score"`
	Comment string  `json:"comment"`
}

func (h *httpHandler) handleSurvey(surveyType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID, ok := h.clientID(c)
		if !ok {
			return
		}
		var request surveyPayload
		if err := c.ShouldBindJSON(&request); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body")
			return
		}
		answersJSON := ""
		if len(request.Answers) > 0 {
			encoded, err := json.Marshal(request.Answers)
			if err != nil {
				respondError(c, http.StatusBadRequest, "invalid answers")
				return
			}
			answersJSON = string(encoded)
		}
		if err := h.store.SaveSurvey(clientID, surveyType, answersJSON, int(request.Score), request.Comment); err != nil {
			h.logger.Error("failed to save survey", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "survey failed")
			return
		}
		respondOK(c, nil)
	}
}

type cognitivePayload struct {
	Situation        string `json:"situation"`
	AutomaticThought string `json:"automaticThought"`
	EmotionIntensity int    `json:"emotionIntensity"`
	Evidence         string `json:"evidence"`
	Alternative      string `json:"alternative"`
	ReRate           int    `json:"reRate"`
	BeforeFeeling    int    `json:"beforeFeeling"`
	AfterFeeling     int    `json:"afterFeeling"`
}

func (h *httpHandler) handleCognitiveSave(c *gin.Context) {
	clientID, ok := h.clientID(c)
	if !ok {
		return
	}
	var request cognitivePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	record := store.CognitiveRecord{
		Situation:        request.Situation,
		AutomaticThought: request.AutomaticThought,
		EmotionIntensity: request.EmotionIntensity,
		Evidence:         request.Evidence,
		Alternative:      request.Alternative,
		ReRate:           request.ReRate,
		BeforeFeeling:    request.BeforeFeeling,
		AfterFeeling:     request.AfterFeeling,
	}
	if _, err := h.store.AppendCognitive(clientID, record); err != nil {
		if errors.Is(err, store.ErrInvalidCognitiveRecord) {
			respondError(c, http.StatusBadRequest, "situation and automatic thought are required")
			return
		}
		h.logger.Error("failed to save cognitive record", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "save failed")
		return
	}
	respondOK(c, nil)
}

func (h *httpHandler) handleReport(c *gin.Context) {
	clientID, ok := h.clientID(c)
	if !ok {
		return
	}
	moods, err := h.store.Moods(clientID, reportMoodWindowDays)
	if err != nil {
		h.logger.Error("failed to load moods", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "report failed")
		return
	}
	assessments, err := h.store.Assessments(clientID)
	if err != nil {
		h.logger.Error("failed to load assessments", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "report failed")
		return
	}
	chat, err := h.store.ChatHistory(clientID, reportChatLimit)
	if err != nil {
		h.logger.Error("failed to load chat history", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "report failed")
		return
	}
	cognitive, err := h.store.CognitiveRecords(clientID)
	if err != nil {
		h.logger.Error("failed to load cognitive records", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "report failed")
		return
	}
	respondData(c, report.Build(report.Input{
		Moods:       moods,
		Assessments: assessments,
		Chat:        chat,
		Cognitive:   cognitive,
		GeneratedAt: h.now(),
	}))
}
