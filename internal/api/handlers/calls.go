package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/acme/text-to-call/internal/domain"
	callsvc "github.com/acme/text-to-call/internal/service/call"
)

type triggerCallRequest struct {
	Text         string `json:"text"`
	TemplateKey  string `json:"template_key"`
	UseTemplate  bool   `json:"use_template"`
	VoiceType    string `json:"voice_type"`
	Locale       string `json:"locale"`
	Container    string `json:"container"`
	BlobName     string `json:"blob_name"`
	CallerNumber string `json:"caller_number"`
	CalleeNumber string `json:"callee_number"`
}

type callResponse struct {
	ID             uuid.UUID `json:"id"`
	Stage          string    `json:"stage"`
	CalleeNumber   string    `json:"callee_number"`
	CallerNumber   string    `json:"caller_number"`
	Container      string    `json:"container"`
	BlobName       string    `json:"blob_name"`
	AudioURI       string    `json:"audio_uri,omitempty"`
	ScriptURI      string    `json:"script_uri,omitempty"`
	ProviderCallID string    `json:"provider_call_id,omitempty"`
	AttemptCount   int       `json:"attempt_count"`
	LastError      *string   `json:"last_error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type listCallsResponse struct {
	Calls     []callResponse `json:"calls"`
	NextToken string         `json:"next_token,omitempty"`
}

func (h *HandlerSet) triggerCall(ctx *fiber.Ctx) error {
	var req triggerCallRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	input := callsvc.TriggerCallInput{
		Text:         req.Text,
		TemplateKey:  req.TemplateKey,
		UseTemplate:  req.UseTemplate,
		VoiceType:    req.VoiceType,
		Locale:       req.Locale,
		Container:    req.Container,
		BlobName:     req.BlobName,
		CallerNumber: req.CallerNumber,
		CalleeNumber: req.CalleeNumber,
	}

	record, err := h.calls.TriggerCall(ctx.Context(), input)
	if err != nil {
		return translateError(err)
	}

	return ctx.Status(http.StatusAccepted).JSON(toCallResponse(record))
}

func (h *HandlerSet) getCall(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid call id")
	}

	record, err := h.calls.GetCall(ctx.Context(), id)
	if err != nil {
		return translateError(err)
	}

	return ctx.Status(http.StatusOK).JSON(toCallResponse(record))
}

func (h *HandlerSet) listCalls(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	state, err := callsvc.DecodePagingState(ctx.Query("token"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid paging token")
	}

	page, err := h.calls.ListRecentCalls(ctx.Context(), limit, state)
	if err != nil {
		return translateError(err)
	}

	resp := listCallsResponse{
		Calls:     make([]callResponse, 0, len(page.Calls)),
		NextToken: callsvc.EncodePagingState(page.PagingState),
	}
	for i := range page.Calls {
		resp.Calls = append(resp.Calls, toCallResponse(&page.Calls[i]))
	}

	return ctx.Status(http.StatusOK).JSON(resp)
}

func toCallResponse(call *domain.Call) callResponse {
	return callResponse{
		ID:             call.ID,
		Stage:          string(call.Stage),
		CalleeNumber:   call.CalleeNumber,
		CallerNumber:   call.CallerNumber,
		Container:      call.Container,
		BlobName:       call.BlobName,
		AudioURI:       call.AudioURI,
		ScriptURI:      call.ScriptURI,
		ProviderCallID: call.ProviderCallID,
		AttemptCount:   call.AttemptCount,
		LastError:      call.LastError,
		CreatedAt:      call.CreatedAt,
		UpdatedAt:      call.UpdatedAt,
	}
}
