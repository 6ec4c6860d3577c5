// Package syncclient calls the wellbeing backend over a pluggable transport.
// The live transport speaks HTTP; the simulation transport answers every
// endpoint deterministically so the pipeline works without a backend.
package syncclient

import (
	"encoding/json"
	"time"
)

// Envelope is the uniform response wrapper every endpoint returns. Endpoint
// payloads arrive in Data; the auth and chat endpoints carry extra top-level
// fields.
type Envelope struct {
	OK       bool            `json:"ok"`
	Message  string          `json:"message,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	Type     string          `json:"type,omitempty"`
	Hotlines []Hotline       `json:"hotlines,omitempty"`
	User     *User           `json:"user,omitempty"`
	Token    string          `json:"token,omitempty"`
}

// User is the account portion of an auth response. The ID doubles as the
// client correlation identifier attached to later requests.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name"`
}

// AuthResult bundles the account and session token issued on login.
type AuthResult struct {
	User  User
	Token string
}

// Hotline is one crisis support contact included with crisis chat replies.
type Hotline struct {
	Region string `json:"region"`
	Number string `json:"number"`
}

// ChatReply is the backend response to one chat message.
type ChatReply struct {
	Type     string
	Message  string
	Hotlines []Hotline
}

// ChatHistoryEntry is one prior exchange returned by the history endpoint.
type ChatHistoryEntry struct {
	At       time.Time `json:"at"`
	Message  string    `json:"message"`
	Response string    `json:"response"`
}

// MoodPoint is one day of the remote mood series.
type MoodPoint struct {
	Date  string `json:"date"`
	Score int    `json:"score"`
	Note  string `json:"note,omitempty"`
}

// MoodSummary is the remote rolling average.
type MoodSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// SurveySubmission is the body of a usability or satisfaction survey post.
type SurveySubmission struct {
	Answers []int   `json:"answers,omitempty"`
	Score   float64 `json:"score,omitempty"`
	Comment string  `json:"comment,omitempty"`
}

// CognitiveSubmission mirrors a completed reframing exercise on the wire.
type CognitiveSubmission struct {
	Situation        string `json:"situation"`
	AutomaticThought string `json:"automaticThought"`
	EmotionIntensity int    `json:"emotionIntensity"`
	Evidence         string `json:"evidence,omitempty"`
	Alternative      string `json:"alternative,omitempty"`
	ReRate           int    `json:"reRate"`
	BeforeFeeling    int    `json:"beforeFeeling"`
	AfterFeeling     int    `json:"afterFeeling"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type moodRequest struct {
	Score int    `json:"score"`
	Note  string `json:"note,omitempty"`
}

type assessmentSubmitRequest struct {
	Answers []int `json:"answers"`
	Total   int   `json:"total"`
}
