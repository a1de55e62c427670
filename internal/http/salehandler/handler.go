package salehandler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"nftsalesgo/internal/fees"
	"nftsalesgo/internal/sales"
	"nftsalesgo/internal/services/market"
)

type Handler struct {
	svc market.IMarketService
}

func New(svc market.IMarketService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/sales", h.list)
	r.GET("/sales/:id", h.info)
	r.GET("/sales/:id/events", h.events)
	r.POST("/sales", h.create)
	r.PUT("/sales/:id", h.update)
	r.POST("/sales/:id/bid", h.bid)
	r.POST("/sales/:id/buy", h.buy)
	r.POST("/sales/:id/finalize", h.finalize)
	r.POST("/sales/:id/reclaim", h.reclaim)

	r.GET("/admin/config", h.config)
	r.PUT("/admin/config/timing", h.updateTiming)
	r.PUT("/admin/config/fees", h.updateFees)
	r.POST("/admin/sales/:id/cancel", h.cancel)
	r.POST("/admin/withdrawals", h.withdraw)
}

// @Summary		Get sale details
// @Tags			Sales
// @Param			id	path		int	true	"Sale ID"	default(1)
// @Success		200	{object}	sales.Sale
// @Failure		404	{object}	ErrorResponse
// @Router			/sales/{id} [get]
func (h *Handler) info(c *gin.Context) {
	id, ok := saleID(c)
	if !ok {
		return
	}
	sale, err := h.svc.GetSale(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// @Summary		List sales
// @Description	Retrieves a paginated list of sales, optionally filtered by status and seller.
// @Tags			Sales
// @Param			status	query		string	false	"Status filter"			Enums(OPEN,CLOSED,CANCELLED)
// @Param			seller	query		string	false	"Seller filter"
// @Param			limit	query		int		false	"Max results (0‑100)"	minimum(0)	maximum(100)	default(10)
// @Param			offset	query		int		false	"Offset for pagination"	minimum(0)	default(0)
// @Success		200		{array}		sales.Sale
// @Failure		400		{object}	ErrorResponse
// @Router			/sales [get]
func (h *Handler) list(c *gin.Context) {
	var q ListSalesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	out, err := h.svc.ListSales(c.Request.Context(), sales.Filter{
		Status: sales.Status(q.Status),
		Seller: q.Seller,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary		Sale history
// @Description	Audit events of one sale, oldest first.
// @Tags			Sales
// @Param			id	path		int	true	"Sale ID"
// @Success		200	{array}		sales.Event
// @Failure		404	{object}	ErrorResponse
// @Router			/sales/{id}/events [get]
func (h *Handler) events(c *gin.Context) {
	id, ok := saleID(c)
	if !ok {
		return
	}
	out, err := h.svc.Events(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary		Create a sale
// @Description	The caller lists a token it holds; custody moves to the marketplace.
// @Tags			Sales
// @Param			X-Caller-ID	header		string			true	"Seller identity"
// @Param			body		body		CreateSaleBody	true	"Listing"
// @Success		201			{object}	sales.Sale
// @Failure		400			{object}	ErrorResponse
// @Failure		403			{object}	ErrorResponse
// @Router			/sales [post]
func (h *Handler) create(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	var body CreateSaleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	sale, err := h.svc.CreateSale(c.Request.Context(), market.CreateSaleInput{
		Seller:    caller,
		Type:      sales.Type(body.SaleType),
		TokenID:   body.TokenID,
		AskPrice:  body.AskPrice,
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

// @Summary		Update a sale
// @Description	Seller changes price and window before the sale starts.
// @Tags			Sales
// @Param			X-Caller-ID	header		string			true	"Seller identity"
// @Param			id			path		int				true	"Sale ID"
// @Param			body		body		UpdateSaleBody	true	"New terms"
// @Success		200			{object}	sales.Sale
// @Failure		409			{object}	ErrorResponse
// @Router			/sales/{id} [put]
func (h *Handler) update(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := saleID(c)
	if !ok {
		return
	}
	var body UpdateSaleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	sale, err := h.svc.UpdateSale(c.Request.Context(), market.UpdateSaleInput{
		SaleID:    id,
		Caller:    caller,
		AskPrice:  body.AskPrice,
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// @Summary		Place a bid
// @Tags			Sales
// @Param			X-Caller-ID	header		string		true	"Bidder identity"
// @Param			id			path		int			true	"Sale ID"
// @Param			body		body		AmountBody	true	"Bid"
// @Success		202			{object}	market.BidResult
// @Failure		409			{object}	ErrorResponse
// @Router			/sales/{id}/bid [post]
func (h *Handler) bid(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := saleID(c)
	if !ok {
		return
	}
	var body AmountBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	res, err := h.svc.PlaceBid(c.Request.Context(), id, caller, body.Amount)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, res)
}

// @Summary		Buy a direct sale
// @Tags			Sales
// @Param			X-Caller-ID	header		string		true	"Buyer identity"
// @Param			id			path		int			true	"Sale ID"
// @Param			body		body		AmountBody	true	"Payment, must equal the ask price"
// @Success		200			{object}	market.Settlement
// @Failure		409			{object}	ErrorResponse
// @Router			/sales/{id}/buy [post]
func (h *Handler) buy(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := saleID(c)
	if !ok {
		return
	}
	var body AmountBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	res, err := h.svc.BuyNFT(c.Request.Context(), id, caller, body.Amount)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary		Finalize an auction
// @Description	Permissionless settlement of an elapsed auction.
// @Tags			Sales
// @Param			id	path		int	true	"Sale ID"
// @Success		200	{object}	market.Settlement
// @Failure		409	{object}	ErrorResponse
// @Router			/sales/{id}/finalize [post]
func (h *Handler) finalize(c *gin.Context) {
	id, ok := saleID(c)
	if !ok {
		return
	}
	res, err := h.svc.FinalizeAuction(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary		Reclaim an expired sale
// @Description	Returns an unsold, elapsed listing to its seller.
// @Tags			Sales
// @Param			id	path		int	true	"Sale ID"
// @Success		200	{object}	sales.Sale
// @Failure		409	{object}	ErrorResponse
// @Router			/sales/{id}/reclaim [post]
func (h *Handler) reclaim(c *gin.Context) {
	id, ok := saleID(c)
	if !ok {
		return
	}
	sale, err := h.svc.FinalizeExpiredSale(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// @Summary		Current configuration
// @Tags			Admin
// @Success		200	{object}	market.Settings
// @Router			/admin/config [get]
func (h *Handler) config(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Settings())
}

// @Summary		Replace timing configuration
// @Tags			Admin
// @Param			X-Caller-ID	header	string		true	"Admin identity"
// @Param			body		body	TimingBody	true	"Durations in seconds"
// @Success		204
// @Failure		403	{object}	ErrorResponse
// @Router			/admin/config/timing [put]
func (h *Handler) updateTiming(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	var body TimingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	err := h.svc.AdminUpdateTimeConfigs(c.Request.Context(), caller, sales.TimingConfig{
		MaxSaleDuration:       seconds(body.MaxSaleDuration),
		MinSaleDuration:       seconds(body.MinSaleDuration),
		MinTimeDifference:     seconds(body.MinTimeDifference),
		ExtensionDuration:     seconds(body.ExtensionDuration),
		MinSaleUpdateDuration: seconds(body.MinSaleUpdateDuration),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary		Replace fee configuration
// @Tags			Admin
// @Param			X-Caller-ID	header	string		true	"Admin identity"
// @Param			body		body	FeesBody	true	"Rates and caps in basis points"
// @Success		204
// @Failure		400	{object}	ErrorResponse
// @Router			/admin/config/fees [put]
func (h *Handler) updateFees(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	var body FeesBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	err := h.svc.AdminUpdateFeeConfigs(c.Request.Context(), caller, fees.Config{
		PrimaryFeeBps:           body.PrimarySaleFeeBps,
		SecondaryFeeBps:         body.SecondarySaleFeeBps,
		UpperCapPrimaryFeeBps:   body.UppercapPrimarySaleFeeBps,
		UpperCapSecondaryFeeBps: body.UppercapSecondarySaleFeeBps,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary		Cancel a sale
// @Description	Admin emergency brake; a reason is mandatory.
// @Tags			Admin
// @Param			X-Caller-ID	header		string			true	"Admin identity"
// @Param			id			path		int				true	"Sale ID"
// @Param			body		body		CancelSaleBody	true	"Reason"
// @Success		200			{object}	market.CancelResult
// @Failure		400			{object}	ErrorResponse
// @Router			/admin/sales/{id}/cancel [post]
func (h *Handler) cancel(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := saleID(c)
	if !ok {
		return
	}
	var body CancelSaleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	res, err := h.svc.AdminCancelReserveSale(c.Request.Context(), caller, id, body.Reason)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary		Emergency withdrawal
// @Description	Force-moves tokens out of marketplace custody.
// @Tags			Admin
// @Param			X-Caller-ID	header	string			true	"Admin identity"
// @Param			body		body	WithdrawalBody	true	"Tokens and destination"
// @Success		204
// @Failure		403	{object}	ErrorResponse
// @Router			/admin/withdrawals [post]
func (h *Handler) withdraw(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	var body WithdrawalBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.svc.AdminEmergencyWithdrawal(c.Request.Context(), caller, body.TokenIDs, body.Destination); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// helpers

func saleID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid sale id", Code: "INVALID_REQUEST"})
		return 0, false
	}
	return id, true
}

func callerID(c *gin.Context) (string, bool) {
	caller := c.GetHeader(CallerHeader)
	if caller == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: CallerHeader + " header is required", Code: "UNAUTHORIZED"})
		return "", false
	}
	return caller, true
}

func seconds(n int64) time.Duration { return time.Duration(n) * time.Second }
