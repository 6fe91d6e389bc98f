package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	donationdomain "github.com/hopelink/givecoin/internal/donation/domain"
	"go.uber.org/zap"
)

func (s *Server) createCharge(c *gin.Context) {
	allowed, err := s.limiter.Allow(c.Request.Context(), c.ClientIP())
	if err != nil {
		// Redis being down must not block donations.
		s.log.Warn("rate limiter unavailable", zap.Error(err))
	} else if !allowed {
		AbortWithError(c, ErrTooManyRequests)
		return
	}

	var req donationdomain.CreateChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, donationdomain.ErrMissingAmount)
		return
	}

	resp, err := s.donationSvc.CreateCharge(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"charge_id":  resp.ChargeID,
		"hosted_url": resp.HostedURL,
		"order_id":   resp.OrderID,
	})
}

func (s *Server) chargeStatus(c *gin.Context) {
	chargeID := strings.TrimSpace(c.Param("chargeId"))
	if chargeID == "" {
		AbortWithError(c, donationdomain.ErrInvalidChargeID)
		return
	}

	resp, err := s.donationSvc.ChargeStatus(c.Request.Context(), chargeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"charge":   resp.Charge,
		"timeline": resp.Timeline,
	})
}

func (s *Server) listDonations(c *gin.Context) {
	donations, err := s.donationSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"donations": donations,
		"total":     len(donations),
	})
}

func (s *Server) getDonation(c *gin.Context) {
	orderID := strings.TrimSpace(c.Param("orderId"))

	donation, err := s.donationSvc.GetByOrderID(c.Request.Context(), orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"donation": donation,
	})
}
