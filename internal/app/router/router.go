package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	estimationhandler "helioscope/internal/feature/estimation/transport/handler"
	reporthandler "helioscope/internal/feature/reports/transport/handler"
	"helioscope/internal/platform/http/handler"
	jwtmw "helioscope/internal/platform/jwt"
	"helioscope/internal/platform/metrics"
)

// Handlers はルーターに登録するハンドラー群です。Reports と Metrics は nil を許容します。
type Handlers struct {
	Estimate *estimationhandler.EstimateHandler
	Reports  *reporthandler.ReportHandler
	Metrics  *metrics.Recorder
	Checks   map[string]handler.Check

	// CORSOrigins はブラウザからのアップロードを許可するオリジンです。空ならCORSを設定しません。
	CORSOrigins []string
}

func NewRouter(h Handlers) *gin.Engine {
	r := gin.Default()
	if len(h.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: h.CORSOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	// 認証不要
	// 導通確認用
	r.GET("/healthz", handler.Health)
	r.HEAD("/healthz", handler.Health)
	// 依存先（Redis・DB）の疎通確認
	r.GET("/readyz", handler.Ready(h.Checks))
	if h.Metrics != nil {
		r.GET("/metrics", h.Metrics.Handler())
	}

	// JWT_SECRET が設定されている場合のみ /v1 に認証を掛ける
	v1 := r.Group("/v1")
	if jwtmw.Enabled() {
		v1.Use(jwtmw.AuthRequired(jwtmw.ScopeEstimates))
	}
	{
		v1.GET("/locations", h.Estimate.Locations)
		v1.POST("/estimates", h.Estimate.Estimate)
		if h.Reports != nil {
			v1.GET("/estimates/:id", h.Reports.Get)
		}
	}

	return r
}
