package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hopelink/givecoin/internal/webhook"
)

func (s *Server) coinbaseWebhook(c *gin.Context) {
	// The signature covers the raw body bit-for-bit, so the body must not
	// pass through any JSON binding first.
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, webhook.ErrInvalidPayload)
		return
	}

	signature := c.GetHeader(webhook.SignatureHeader)
	if err := s.webhookSvc.Ingest(c.Request.Context(), payload, signature); err != nil {
		AbortWithError(c, err)
		return
	}

	c.String(http.StatusOK, "OK")
}
