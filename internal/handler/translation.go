package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/metyhq/mety-api/internal/cohere"
)

// TranslationHandler proxies chat and translation requests to the
// language-model provider.
type TranslationHandler struct {
	logger *slog.Logger
	llm    *cohere.Client
}

// NewTranslationHandler creates a new TranslationHandler.
func NewTranslationHandler(logger *slog.Logger, llm *cohere.Client) *TranslationHandler {
	return &TranslationHandler{
		logger: logger,
		llm:    llm,
	}
}

// TranslationResponse is the body returned by the translation endpoints.
// TranslatedText is null when the provider returned no text content.
type TranslationResponse struct {
	OriginalText   string  `json:"originalText"`
	TranslatedText *string `json:"translatedText"`
	TargetLanguage string  `json:"targetLanguage"`
}

// TranslateToFrench handles GET /translation?text=
// Requires the API key guard with translate scope.
func (h *TranslationHandler) TranslateToFrench(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if text == "" {
		writeError(w, http.StatusBadRequest, "Missing text query parameter")
		return
	}

	translated, err := h.llm.TranslateToFrench(r.Context(), text)
	if err != nil {
		h.logger.Error("translation failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to translate text")
		return
	}

	writeJSON(w, http.StatusOK, TranslationResponse{
		OriginalText:   text,
		TranslatedText: softText(translated),
		TargetLanguage: "French",
	})
}

// translateRequest is the body of POST /translate.
type translateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"targetLanguage"`
}

// Translate handles POST /translate
// Requires the API key guard with translate scope.
func (h *TranslationHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Text == "" || req.TargetLanguage == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	translated, err := h.llm.Translate(r.Context(), req.Text, req.TargetLanguage)
	if err != nil {
		h.logger.Error("translation failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to translate text")
		return
	}

	writeJSON(w, http.StatusOK, TranslationResponse{
		OriginalText:   req.Text,
		TranslatedText: softText(translated),
		TargetLanguage: req.TargetLanguage,
	})
}

// chatResponse is the body returned by the chat endpoint.
// Response is null when the provider returned no text content.
type chatResponse struct {
	Message  string  `json:"message"`
	Response *string `json:"response"`
}

// Chat handles GET /cohere/{message}
// Requires the API key guard with read scope.
func (h *TranslationHandler) Chat(w http.ResponseWriter, r *http.Request) {
	message := chi.URLParam(r, "message")

	reply, err := h.llm.Chat(r.Context(), message)
	if err != nil {
		h.logger.Error("chat failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to generate response")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Message:  message,
		Response: softText(reply),
	})
}

// softText maps an empty provider result to null rather than "".
func softText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
