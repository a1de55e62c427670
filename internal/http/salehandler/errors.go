package salehandler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nftsalesgo/internal/sales"
)

type errorKind struct {
	err    error
	status int
	code   string
}

var errorKinds = []errorKind{
	{sales.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},

	{sales.ErrUnauthorized, http.StatusForbidden, "UNAUTHORIZED"},
	{sales.ErrNotOwner, http.StatusForbidden, "NOT_OWNER"},
	{sales.ErrReasonRequired, http.StatusBadRequest, "REASON_REQUIRED"},

	{sales.ErrInvalidWindow, http.StatusBadRequest, "INVALID_WINDOW"},
	{sales.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
	{sales.ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
	{sales.ErrInvalidConfig, http.StatusBadRequest, "INVALID_CONFIG"},
	{sales.ErrFeeExceedsCap, http.StatusBadRequest, "FEE_EXCEEDS_CAP"},
	{sales.ErrWrongSaleType, http.StatusBadRequest, "WRONG_SALE_TYPE"},

	{sales.ErrNotStarted, http.StatusConflict, "NOT_STARTED"},
	{sales.ErrEnded, http.StatusConflict, "ENDED"},
	{sales.ErrSaleStillActive, http.StatusConflict, "SALE_STILL_ACTIVE"},
	{sales.ErrSaleNotOpen, http.StatusConflict, "SALE_NOT_OPEN"},
	{sales.ErrSaleAlreadyStarted, http.StatusConflict, "SALE_ALREADY_STARTED"},
	{sales.ErrSaleHasBuyer, http.StatusConflict, "SALE_HAS_BUYER"},
	{sales.ErrSaleNotOver, http.StatusConflict, "SALE_NOT_OVER"},
	{sales.ErrPriceMismatch, http.StatusConflict, "PRICE_MISMATCH"},
	{sales.ErrBelowAsk, http.StatusConflict, "BELOW_ASK"},
	{sales.ErrBidTooLow, http.StatusConflict, "BID_TOO_LOW"},
	{sales.ErrStaleSale, http.StatusConflict, "STALE_SALE"},
	{sales.ErrTokenListed, http.StatusConflict, "TOKEN_LISTED"},
}

// abortWithError maps an engine error to its HTTP status and stable code.
// Anything outside the taxonomy is an infrastructure failure.
func abortWithError(c *gin.Context, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			c.JSON(k.status, ErrorResponse{Error: err.Error(), Code: k.code})
			return
		}
	}
	zap.L().Error("salehandler.internal", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: "INTERNAL"})
}
