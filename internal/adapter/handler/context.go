package handler

import (
	"github.com/labstack/echo/v4"

	"canteen/internal/domain"
	"canteen/internal/identity"
	"canteen/internal/usecase"
)

const (
	ctxDevice   = "canteen.device"
	ctxDecision = "canteen.decision"
	ctxPhase    = "canteen.phase"
)

func deviceFrom(c echo.Context) usecase.Device {
	dev, _ := c.Get(ctxDevice).(usecase.Device)
	return dev
}

func decisionFrom(c echo.Context) identity.Decision {
	d, _ := c.Get(ctxDecision).(identity.Decision)
	return d
}

func phaseFrom(c echo.Context) identity.Phase {
	p, _ := c.Get(ctxPhase).(identity.Phase)
	return p
}

// userID is the subject of the identity the guard granted.
func userID(c echo.Context) string {
	if s := identityFrom(c).Session; s != nil {
		return s.UserID
	}
	return ""
}

func identityFrom(c echo.Context) domain.Identity {
	return decisionFrom(c).Identity
}
