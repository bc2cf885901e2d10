package http

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"campaign-bot-backend/internal/bot"
	"campaign-bot-backend/internal/common/config"
	"campaign-bot-backend/internal/common/logger"
	fulfillment "campaign-bot-backend/internal/features/fulfillment/service"
	"campaign-bot-backend/internal/platform/telegram"
)

// NewRouter builds the gin engine serving the two inbound surfaces:
// the Telegram webhook and the OAuth callback.
func NewRouter(cfg *config.Config, botRouter *bot.Router, orchestrator *fulfillment.Orchestrator) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.Server.Origin},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
	}))

	log := logger.With("http")

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/telegram/webhook", func(c *gin.Context) {
		var upd telegram.Update
		if err := c.ShouldBindJSON(&upd); err != nil {
			log.Warn().Err(err).Msg("malformed webhook update")
			c.Status(http.StatusBadRequest)
			return
		}
		botRouter.HandleUpdate(c.Request.Context(), &upd)
		// Always 200 so Telegram does not redeliver; user-visible
		// failures were already answered in chat.
		c.Status(http.StatusOK)
	})

	router.GET("/auth/callback", func(c *gin.Context) {
		if c.Query("denied") != "" {
			c.String(http.StatusOK, "Authorization cancelled. You can return to Telegram.")
			return
		}

		token := c.Query("oauth_token")
		verifier := c.Query("oauth_verifier")
		if token == "" || verifier == "" {
			c.String(http.StatusBadRequest, "Missing oauth_token or oauth_verifier.")
			return
		}

		err := orchestrator.ResolveAuthorizationCallback(c.Request.Context(), token, verifier)
		switch {
		case err == nil:
			c.String(http.StatusOK, "All set! You can return to Telegram.")
		case errors.Is(err, fulfillment.ErrGrantExpired):
			c.String(http.StatusGone, "This authorization link expired. Open the task again in Telegram to restart.")
		case errors.Is(err, fulfillment.ErrGrantInvalid):
			c.String(http.StatusBadRequest, "This authorization link was already used or is invalid.")
		default:
			log.Error().Err(err).Msg("authorization callback failed")
			c.String(http.StatusOK, "We hit a problem finishing the task; check Telegram for details.")
		}
	})

	return router
}
