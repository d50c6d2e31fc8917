package auth

import (
	"net/http"

	"postfeed/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Signup handles PUT /auth/signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in SignupInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.SendError(w, r, err)
		return
	}
	userID, err := h.svc.Signup(r.Context(), in)
	if err != nil {
		utils.SendError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"message": "User created!", "userId": userID})
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.SendError(w, r, err)
		return
	}
	token, userID, err := h.svc.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		utils.SendError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"token": token, "userId": userID.Hex()})
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		utils.SendError(w, r, err)
		return
	}
	status, err := h.svc.GetStatus(r.Context(), userID)
	if err != nil {
		utils.SendError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": status})
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		utils.SendError(w, r, err)
		return
	}
	var in struct {
		Status string `json:"status"`
	}
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.SendError(w, r, err)
		return
	}
	if err := h.svc.UpdateStatus(r.Context(), userID, in.Status); err != nil {
		utils.SendError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "User updated."})
}
