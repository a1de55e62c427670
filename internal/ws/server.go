package ws

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"nftsalesgo/internal/sales"
	"nftsalesgo/internal/services/market"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 12 * time.Second
	pingPeriod     = 3 * time.Second // must be < pongWait
	maxMessageSize = 512
	requestTimeout = 1900 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true }, // dev-only
}

type WsServer struct {
	hub    *Hub
	subMgr *subscriptionManager
	router *Router
	svc    market.IMarketService
}

func NewWsServer(h *Hub, rdc *redis.Client, svc market.IMarketService) *WsServer {
	srv := &WsServer{
		hub:    h,
		subMgr: newSubscriptionManager(rdc, h),
		router: NewRouter(requestTimeout),
		svc:    svc,
	}
	srv.registerHandlers()
	return srv
}

// Handle upgrades GET /ws?sale_id=<id>&user_id=<caller> and joins the sale
// room.
func (s *WsServer) Handle(ginCtx *gin.Context) {
	saleID, err := strconv.ParseUint(ginCtx.Query("sale_id"), 10, 64)
	userID := ginCtx.Query("user_id")
	if err != nil || userID == "" {
		ginCtx.JSON(http.StatusBadRequest, gin.H{"error": "sale_id and user_id are required"})
		return
	}

	rawConn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(maxMessageSize)
	_ = rawConn.SetReadDeadline(time.Now().Add(pongWait))
	rawConn.SetPongHandler(func(string) error {
		return rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	conn := &clientConn{rawConn: rawConn, userID: userID}
	s.hub.Join(saleID, conn)
	s.subMgr.Subscribe(saleID)

	if err := s.pushSnapshot(ginCtx.Request.Context(), saleID, conn); err != nil {
		if errors.Is(err, sales.ErrNotFound) {
			_ = conn.writeJSON(Reply{Event: EventError, Body: ErrorBody{Error: err.Error()}})
		} else {
			zap.L().Warn("ws.snapshot", zap.Uint64("sale_id", saleID), zap.Error(err))
		}
	}

	done := make(chan struct{})
	go s.reader(saleID, conn, done)
	go s.pinger(conn, done)
}

func (s *WsServer) registerHandlers() {
	Register(s.router, EventBid,
		func(ctx context.Context, cc *ConnContext, req AmountRequest) (*market.BidResult, error) {
			return s.svc.PlaceBid(ctx, cc.SaleID, cc.UserID, req.Amount)
		},
	)
	Register(s.router, EventBuy,
		func(ctx context.Context, cc *ConnContext, req AmountRequest) (*market.Settlement, error) {
			return s.svc.BuyNFT(ctx, cc.SaleID, cc.UserID, req.Amount)
		},
	)
	Register(s.router, EventSnapshot,
		func(ctx context.Context, cc *ConnContext, _ struct{}) (*sales.Sale, error) {
			return s.svc.GetSale(ctx, cc.SaleID)
		},
	)
}

func (s *WsServer) pushSnapshot(ctx context.Context, saleID uint64, conn *clientConn) error {
	ctx, cancel := context.WithTimeout(ctx, 4*time.Second)
	defer cancel()

	sale, err := s.svc.GetSale(ctx, saleID)
	if err != nil {
		return err
	}
	return conn.writeJSON(Reply{Event: EventSnapshot, Body: sale})
}

func (s *WsServer) reader(saleID uint64, conn *clientConn, done chan struct{}) {
	defer func() {
		close(done)
		s.hub.Leave(saleID, conn)
		s.subMgr.Unsubscribe(saleID)
	}()

	cc := &ConnContext{SaleID: saleID, UserID: conn.userID}
	for {
		var env Envelope
		if err := conn.rawConn.ReadJSON(&env); err != nil {
			return
		}

		_ = conn.writeJSON(s.router.Serve(context.Background(), cc, env))
	}
}

func (s *WsServer) pinger(conn *clientConn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				_ = conn.rawConn.Close()
				return
			}
		}
	}
}
