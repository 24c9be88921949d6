package handlers

import (
	"context"
	"fmt"

	"github.com/gdg-garage/qr-checkin/internal/models"
	"github.com/gdg-garage/qr-checkin/internal/registration"
)

type RegistrationHandler struct {
	service *registration.Service
}

func NewRegistrationHandler(service *registration.Service) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

type RegistrationRequest struct {
	Body struct {
		FirstName string `json:"firstName" required:"false" doc:"First name"`
		LastName  string `json:"lastName" required:"false" doc:"Last name"`
		Phone     string `json:"phone" required:"false" doc:"Phone number"`
		Email     string `json:"email" required:"false" doc:"Email address, one registration per address"`
	}
}

type RegistrationResponse struct {
	Body struct {
		ID           string               `json:"id"`
		Payload      string               `json:"payload" doc:"Text encoded in the QR code"`
		Registration *models.Registration `json:"registration"`
	}
}

func (h *RegistrationHandler) HandleCreate(ctx context.Context, input *RegistrationRequest) (*RegistrationResponse, error) {
	res, err := h.service.Submit(ctx, models.Attendee{
		FirstName: input.Body.FirstName,
		LastName:  input.Body.LastName,
		Phone:     input.Body.Phone,
		Email:     input.Body.Email,
	})
	if err != nil {
		return nil, httpError(err)
	}

	resp := &RegistrationResponse{}
	resp.Body.ID = res.Registration.ID
	resp.Body.Payload = res.Payload
	resp.Body.Registration = res.Registration
	return resp, nil
}

type RegistrationIDInput struct {
	ID string `path:"id" doc:"Registration identifier"`
}

type GetRegistrationOutput struct {
	Body *models.Registration
}

func (h *RegistrationHandler) HandleGet(ctx context.Context, input *RegistrationIDInput) (*GetRegistrationOutput, error) {
	reg, err := h.service.Get(ctx, input.ID)
	if err != nil {
		return nil, httpError(err)
	}
	return &GetRegistrationOutput{Body: reg}, nil
}

type QRCodeOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

func (h *RegistrationHandler) HandleQRCode(ctx context.Context, input *RegistrationIDInput) (*QRCodeOutput, error) {
	png, filename, err := h.service.QRCode(ctx, input.ID)
	if err != nil {
		return nil, httpError(err)
	}
	return &QRCodeOutput{
		ContentType:        "image/png",
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", filename),
		Body:               png,
	}, nil
}
