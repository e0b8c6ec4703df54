package controllers

import (
	"net/http"

	"github.com/maximillian1508/easyrent-backend/internal/dtos"
	"github.com/maximillian1508/easyrent-backend/internal/services"
	"github.com/maximillian1508/easyrent-backend/internal/utils"
)

type ApplicationController struct {
	applications *services.ApplicationService
	tenancy      *services.TenancyService
}

func NewApplicationController(applications *services.ApplicationService, tenancy *services.TenancyService) *ApplicationController {
	return &ApplicationController{applications: applications, tenancy: tenancy}
}

// POST /api/v1/applications
func (c *ApplicationController) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	var req dtos.SubmitApplicationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	app, err := c.applications.Submit(r.Context(), services.SubmitApplicationInput{
		UserID:     userID,
		PropertyID: req.PropertyID,
		RoomID:     req.RoomID,
		StartDate:  req.StartDate,
		StayLength: req.StayLength,
	})
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, app)
}

// GET /api/v1/applications/eligibility
func (c *ApplicationController) EligibilityHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	ok, err := c.applications.CanApply(r.Context(), userID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.EligibilityResponse{CanApply: ok})
}

// GET /api/v1/applications/active?property_id=&room_id=
func (c *ApplicationController) ActiveHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	propertyID, err := queryUUID(r, "property_id", true)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	roomID, err := queryUUID(r, "room_id", false)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	active, err := c.applications.HasActiveApplication(r.Context(), userID, *propertyID, roomID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ActiveApplicationResponse{HasActiveApplication: active})
}

// POST /api/v1/applications/{id}/decision
func (c *ApplicationController) DecisionHandler(w http.ResponseWriter, r *http.Request) {
	logger := utils.Logger.WithField("handler", "DecisionHandler")

	applicationID, err := pathUUID(r, "id")
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	var req dtos.DecisionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := c.tenancy.Decide(r.Context(), applicationID, req.Decision)
	if err != nil {
		logger.WithError(err).WithField("application_id", applicationID).Warn("Decision failed")
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.DecisionResponse{
		Application: res.Application,
		Contract:    res.Contract,
		Deposit:     res.Deposit,
	})
}

// POST /api/v1/applications/{id}/cancel
func (c *ApplicationController) CancelHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	applicationID, err := pathUUID(r, "id")
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	app, err := c.tenancy.Cancel(r.Context(), applicationID, userID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, app)
}
