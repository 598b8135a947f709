package errx

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// HTTPErrorResponse is the JSON body written for every failed request
type HTTPErrorResponse struct {
	Error     string         `json:"error"`
	Code      string         `json:"code"`
	Type      string         `json:"type"`
	Status    int            `json:"status"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// ToHTTPResponse converts an Error to an HTTPErrorResponse
func (e *Error) ToHTTPResponse() HTTPErrorResponse {
	return HTTPErrorResponse{
		Error:   e.Message,
		Code:    e.Code,
		Type:    string(e.Type),
		Status:  e.HTTPStatus,
		Details: e.Details,
	}
}

// FiberHandler is a fiber.ErrorHandler that renders *Error values and
// falls back to a generic internal error for anything else.
func FiberHandler(c *fiber.Ctx, err error) error {
	requestID := c.GetRespHeader(fiber.HeaderXRequestID)
	if requestID == "" {
		requestID = c.Get(fiber.HeaderXRequestID)
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(HTTPErrorResponse{
			Error:     fe.Message,
			Code:      "HTTP_ERROR",
			Type:      string(TypeMalformed),
			Status:    fe.Code,
			RequestID: requestID,
		})
	}

	var e *Error
	if errors.As(err, &e) {
		resp := e.ToHTTPResponse()
		resp.RequestID = requestID
		return c.Status(e.HTTPStatus).JSON(resp)
	}

	return c.Status(fiber.StatusInternalServerError).JSON(HTTPErrorResponse{
		Error:     "An unexpected error occurred",
		Code:      "INTERNAL_ERROR",
		Type:      string(TypeInternal),
		Status:    fiber.StatusInternalServerError,
		RequestID: requestID,
	})
}
