package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/domain"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthRequest struct {
	InitData string `json:"init_data"`
}

// Auth validates Telegram WebApp init data, upserts the profile and issues
// a session token. Profiles whose Telegram ID is in the configured admin
// list get the admin role.
func (h *Handler) Auth(c *gin.Context) {
	var req AuthRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	if len(req.InitData) > 4096 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "init_data too long"})
		return
	}

	values, ok := service.ValidateTelegramInitData(req.InitData, h.BotToken)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or stale telegram data"})
		return
	}

	userJSON := values.Get("user")
	if userJSON == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user not found"})
		return
	}

	var tgUser struct {
		ID        int64  `json:"id"`
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
	}
	if err := json.Unmarshal([]byte(userJSON), &tgUser); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user json"})
		return
	}

	ctx := c.Request.Context()

	profile, err := h.ProfileRepo.GetByTelegramID(ctx, tgUser.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if profile == nil {
		displayName := tgUser.FirstName
		if displayName == "" {
			displayName = tgUser.Username
		}
		profile = &domain.Profile{
			TelegramID:  tgUser.ID,
			Role:        h.roleFor(tgUser.ID),
			DisplayName: displayName,
		}
		if err := h.ProfileRepo.Create(ctx, profile); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create profile"})
			return
		}
	} else if wanted := h.roleFor(tgUser.ID); profile.Role != wanted && wanted == domain.RoleAdmin {
		if err := h.ProfileRepo.SetRole(ctx, profile.ID, wanted); err == nil {
			profile.Role = wanted
		}
	}

	token, err := service.GenerateJWT(profile.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	h.AuditService.Log(ctx, profile.ID, domain.AuditActionLogin, domain.AuditCategoryAuth, nil)

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"profile": gin.H{
			"id":           profile.ID,
			"telegram_id":  profile.TelegramID,
			"role":         profile.Role,
			"display_name": profile.DisplayName,
		},
	})
}

func (h *Handler) roleFor(telegramID int64) domain.Role {
	for _, id := range h.Config.AdminTelegramIDs {
		if id == telegramID {
			return domain.RoleAdmin
		}
	}
	return domain.RoleUser
}
