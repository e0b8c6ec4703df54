package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/maximillian1508/easyrent-backend/internal/dtos"
	"github.com/maximillian1508/easyrent-backend/internal/middleware"
	"github.com/maximillian1508/easyrent-backend/internal/utils"
)

var validate = validator.New()

// formatValidationErrors converts validator errors into a user-friendly format.
func formatValidationErrors(errs validator.ValidationErrors) []dtos.ValidationErrorDetail {
	var details []dtos.ValidationErrorDetail
	for _, err := range errs {
		var message string
		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("Field '%s' is required", err.Field())
		case "oneof":
			message = fmt.Sprintf("Field '%s' must be one of [%s]", err.Field(), err.Param())
		default:
			message = fmt.Sprintf("Field validation for '%s' failed on the '%s' tag", err.Field(), err.Tag())
		}
		details = append(details, dtos.ValidationErrorDetail{
			Field:   err.Field(),
			Message: message,
			Code:    "validation_" + err.Tag(),
		})
	}
	return details
}

// decodeAndValidate writes the error response itself and reports whether
// the handler should continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid JSON payload", nil, err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		if validationErrs, ok := err.(validator.ValidationErrors); ok {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "Validation error", formatValidationErrors(validationErrs))
		} else {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "Validation error", nil, err)
		}
		return false
	}
	return true
}

func callerID(r *http.Request) (uuid.UUID, error) {
	ctxUserID, _ := r.Context().Value(middleware.ContextKeyUserID).(string)
	if ctxUserID == "" {
		return uuid.Nil, &utils.AppError{StatusCode: http.StatusUnauthorized, Code: utils.ErrCodeUnauthorized, Message: "Missing userID in context"}
	}
	id, err := uuid.Parse(ctxUserID)
	if err != nil {
		return uuid.Nil, &utils.AppError{StatusCode: http.StatusBadRequest, Code: utils.ErrCodeInvalidPayload, Message: "Invalid userID format", Err: err}
	}
	return id, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := mux.Vars(r)[name]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &utils.AppError{StatusCode: http.StatusBadRequest, Code: utils.ErrCodeInvalidPayload, Message: fmt.Sprintf("Invalid %s %q", name, raw), Err: err}
	}
	return id, nil
}

func queryUUID(r *http.Request, name string, required bool) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		if required {
			return nil, &utils.AppError{StatusCode: http.StatusBadRequest, Code: utils.ErrCodeValidation, Message: fmt.Sprintf("Missing '%s' query param", name)}
		}
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, &utils.AppError{StatusCode: http.StatusBadRequest, Code: utils.ErrCodeInvalidPayload, Message: fmt.Sprintf("Invalid %s %q", name, raw), Err: err}
	}
	return &id, nil
}
