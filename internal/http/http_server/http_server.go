package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abrar71/swaggerfilesv2" // swagger embed files

	"nftsalesgo/internal/http/salehandler"
	"nftsalesgo/internal/services/market"
	"nftsalesgo/internal/ws"
)

const shutdownTimeout = 10 * time.Second

type httpServer struct {
	listenPort uint16
	srv        http.Server
	ln         net.Listener
	svc        market.IMarketService
	wsSrv      *ws.WsServer
	ctx        context.Context
}

func NewHttpServer(ctx context.Context, listenPort uint16, wsSrv *ws.WsServer, svc market.IMarketService) *httpServer {
	return &httpServer{
		listenPort: listenPort,
		wsSrv:      wsSrv,
		svc:        svc,
		ctx:        ctx,
	}
}

// Routes builds the gin engine. wsSrv may be nil, in which case /ws is not
// mounted.
func Routes(svc market.IMarketService, wsSrv *ws.WsServer) *gin.Engine {
	r := gin.New()
	r.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(zap.L(), true))

	r.StaticFS("/swagger-apis", http.FS(swaggerfilesv2.FS))
	r.Static("/api-specs", "api_specs")
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	if wsSrv != nil {
		r.GET("/ws", wsSrv.Handle)
	}
	salehandler.New(svc).Register(r)
	return r
}

// Start blocks serving requests until Dispose is called.
func (h *httpServer) Start() error {
	var err error
	h.ln, err = net.Listen("tcp", fmt.Sprintf(":%d", h.listenPort))
	if err != nil {
		return err
	}

	h.srv = http.Server{
		Handler:           Routes(h.svc, h.wsSrv),
		ReadHeaderTimeout: 5 * time.Second,
	}
	zap.L().Info("http_listening", zap.Uint16("port", h.listenPort))

	if err := h.srv.Serve(h.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Dispose waits up to shutdownTimeout for in-flight requests.
func (h *httpServer) Dispose() error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(h.ctx), shutdownTimeout)
	defer cancel()

	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err
	}
	return nil
}
