package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"ncc.gov.ng/nora/internal/chat"
	"ncc.gov.ng/nora/internal/core"
)

const maxBodyBytes = 1 << 20

type APIHandler struct {
	chatService *core.ChatService
	maxDuration time.Duration
}

func NewAPIHandler(cs *core.ChatService, maxDuration time.Duration) *APIHandler {
	return &APIHandler{chatService: cs, maxDuration: maxDuration}
}

// ChatHandler serves POST /api/chat. Errors before the first chunk are JSON
// responses; after that the status is committed and a failure is reported in
// the X-Nora-Error trailer.
func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, core.InvalidFormatMessage)
		return
	}
	env, err := core.DecodeEnvelope(body)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.maxDuration)
	defer cancel()

	completion, err := h.chatService.Open(ctx, env)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	defer completion.Stream.Close()

	first, err := completion.Stream.Recv()
	if err != nil && !errors.Is(err, io.EOF) {
		h.writeFailure(w, r, err)
		return
	}

	header := w.Header()
	header.Set("Content-Type", "text/plain; charset=utf-8")
	header.Set("Cache-Control", "no-cache")
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("Trailer", chat.StreamErrorTrailer)
	header.Set(chat.TierHeader, string(completion.Tier))
	header.Set(chat.ModelHeader, completion.Model)
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	chunks := 0
	write := func(chunk string) error {
		if chunk == "" {
			return nil
		}
		if _, err := io.WriteString(w, chunk); err != nil {
			return err
		}
		chunks++
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
		return nil
	}

	streamErr := err
	if streamErr == nil {
		streamErr = write(first)
	}
	for streamErr == nil {
		var chunk string
		chunk, streamErr = completion.Stream.Recv()
		if streamErr == nil {
			streamErr = write(chunk)
		}
	}

	if errors.Is(streamErr, io.EOF) {
		logger.Info().Int("chunks", chunks).Str("model", completion.Model).Msg("Completion stream finished")
		return
	}
	logger.Error().Err(streamErr).Int("chunks", chunks).Msg("Completion stream failed")
	header.Set(chat.StreamErrorTrailer, streamErr.Error())
}

func (h *APIHandler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())

	var (
		reqErr *core.RequestError
		cfgErr *core.ConfigError
		upErr  *core.UpstreamError
	)
	switch {
	case errors.As(err, &reqErr):
		logger.Warn().Str("error", reqErr.Message).Msg("Rejected chat request")
		writeError(w, http.StatusBadRequest, reqErr.Message)
	case errors.As(err, &cfgErr):
		logger.Error().Str("setting", cfgErr.Setting).Msg("Provider is not configured")
		writeError(w, http.StatusInternalServerError, cfgErr.Error())
	case errors.As(err, &upErr):
		logger.Error().Err(upErr.Err).Str("provider", upErr.Provider).Msg("Upstream completion failed")
		writeError(w, http.StatusInternalServerError, upErr.Error())
	default:
		logger.Error().Err(err).Msg("Unexpected chat failure")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(chat.ErrorResponse{Error: message})
}
