package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"workorder-tracker/internal/domain"
	"workorder-tracker/internal/service"
	"workorder-tracker/internal/twofactor"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type enrollRequest struct {
	Email    string `json:"email" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Username string `json:"username"`
}

type viewerEnrollRequest struct {
	Phone string `json:"phone" binding:"required"`
}

type signInRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password"`
}

type verifyCodeRequest struct {
	AuthyID string `json:"authy_id" binding:"required"`
	Code    string `json:"code" binding:"required"`
}

type requestCodeRequest struct {
	Login string `json:"login" binding:"required"`
}

type viewerCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// bindJSON reports binding failures as invalid input and returns false.
func (h *Handler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.writeError(c, domain.E(domain.KindInvalidInput, err.Error(), nil))
		return false
	}
	return true
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	res, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionToResponse(res))
}

func (h *Handler) enroll(c *gin.Context) {
	var req enrollRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.auth.Enroll(c.Request.Context(), twofactor.EnrollInput{
		Email:    req.Email,
		Phone:    req.Phone,
		Username: req.Username,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": userToResponse(user)})
}

func (h *Handler) enrollViewer(c *gin.Context) {
	var req viewerEnrollRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.auth.EnrollViewer(c.Request.Context(), viewer(c), req.Phone)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userToResponse(user)})
}

func (h *Handler) signIn(c *gin.Context) {
	var req signInRequest
	if !h.bindJSON(c, &req) {
		return
	}
	res, err := h.auth.SignIn(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionToResponse(res))
}

func (h *Handler) verifyCode(c *gin.Context) {
	var req verifyCodeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	res, err := h.auth.VerifyCode(c.Request.Context(), req.AuthyID, req.Code)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionToResponse(res))
}

func (h *Handler) requestCode(c *gin.Context) {
	var req requestCodeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	res, err := h.auth.RequestCode(c.Request.Context(), req.Login)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionToResponse(res))
}

func (h *Handler) verifyViewerCode(c *gin.Context) {
	var req viewerCodeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.auth.VerifyViewerCode(c.Request.Context(), viewer(c), req.Code)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true, "user": userToResponse(user)})
}
