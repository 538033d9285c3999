package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/invoice_backend/config"
	"github.com/mmdatafocus/invoice_backend/models"
	"github.com/mmdatafocus/invoice_backend/utils"
)

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// signupResponse is the login info plus a warning when the company was
// created but its logo could not be stored.
type signupResponse struct {
	*models.LoginInfo
	Warning string `json:"warning,omitempty"`
}

// signupHandler accepts JSON, or multipart form fields with an optional
// Logo image. A bad logo is rejected before anything is created; a logo
// that cannot be stored afterwards leaves the signup in place.
func signupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSignup
		var logo *imageUpload
		if strings.HasPrefix(c.ContentType(), "multipart/") {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSizeBytes+multipartOverhead)
			if err := c.ShouldBind(&input); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
				return
			}
			if _, err := c.FormFile("Logo"); !errors.Is(err, http.ErrMissingFile) {
				img, ok := readImage(c, "Logo", "authHandlers", "signupHandler")
				if !ok {
					return
				}
				logo = img
			}
		} else if !bindJSON(c, &input) {
			return
		}

		ctx := c.Request.Context()
		info, err := models.Signup(ctx, &input)
		if err != nil {
			respondError(c, "authHandlers", "signupHandler", err)
			return
		}
		res := signupResponse{LoginInfo: info}
		if logo != nil {
			if _, err := saveCompanyLogo(ctx, requestIDFromHeaders(c), info.Company.CompanyID, logo); err != nil {
				config.LogError(config.GetLogger(), "authHandlers", "signupHandler", "save logo", info.Company.CompanyID, err)
				res.Warning = "Company was created but the logo could not be saved"
			}
		}
		c.JSON(http.StatusOK, res)
	}
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if !bindJSON(c, &req) {
			return
		}
		info, err := models.Login(c.Request.Context(), req.Email, req.Password, req.RememberMe)
		if err != nil {
			respondError(c, "authHandlers", "loginHandler", err)
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

// logoutHandler revokes the caller's token for the rest of its lifetime.
func logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		token, _ := utils.GetTokenFromContext(ctx)
		claims, err := utils.JwtValidate(token)
		if err != nil {
			respondError(c, "authHandlers", "logoutHandler", utils.ErrorUnauthorized)
			return
		}
		if err := utils.RevokeToken(ctx, token, claims.ExpiresAt); err != nil {
			respondError(c, "authHandlers", "logoutHandler", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
