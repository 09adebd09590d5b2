package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Molayo2025/capstone-project/internal/auth"
	"github.com/Molayo2025/capstone-project/internal/config"
	"github.com/Molayo2025/capstone-project/internal/ledger"
)

func NewRouter(eng *ledger.Engine, idp *auth.Service, rl config.RateLimitConfig, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware(log))
	r.Use(RateLimitMiddleware(rl.RPS, rl.Burst))
	RegisterHandlers(r, eng, idp)
	return r
}
