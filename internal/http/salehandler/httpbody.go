package salehandler

import (
	"time"

	"github.com/shopspring/decimal"
)

// CallerHeader carries the identity of the account making the request.
const CallerHeader = "X-Caller-ID"

type CreateSaleBody struct {
	SaleType  string          `json:"sale_type"  binding:"required,oneof=AUCTION DIRECT" example:"AUCTION"`
	TokenID   string          `json:"token_id"   binding:"required"                  example:"token-1"`
	AskPrice  decimal.Decimal `json:"ask_price"                                       example:"1.0"`
	StartTime time.Time       `json:"start_time" binding:"required"                  example:"2025-07-28T16:00:00Z"`
	EndTime   time.Time       `json:"end_time"   binding:"required"                  example:"2025-07-28T18:00:00Z"`
} // @name CreateSaleRequest

type UpdateSaleBody struct {
	AskPrice  decimal.Decimal `json:"ask_price"                     example:"1.5"`
	StartTime time.Time       `json:"start_time" binding:"required" example:"2025-07-28T16:00:00Z"`
	EndTime   time.Time       `json:"end_time"   binding:"required" example:"2025-07-28T18:00:00Z"`
} // @name UpdateSaleRequest

type AmountBody struct {
	Amount decimal.Decimal `json:"amount" example:"1.0"`
} // @name AmountRequest

type CancelSaleBody struct {
	Reason string `json:"reason" example:"fraud report"`
} // @name CancelSaleRequest

type WithdrawalBody struct {
	TokenIDs    []string `json:"token_ids"   binding:"required,min=1,dive,required" example:"token-1"`
	Destination string   `json:"destination" binding:"required"                     example:"recovery-wallet"`
} // @name WithdrawalRequest

// TimingBody is expressed in seconds.
type TimingBody struct {
	MaxSaleDuration       int64 `json:"max_sale_duration"        binding:"gt=0"  example:"2592000"`
	MinSaleDuration       int64 `json:"min_sale_duration"        binding:"gt=0"  example:"3600"`
	MinTimeDifference     int64 `json:"min_time_difference"      binding:"gte=0" example:"86400"`
	ExtensionDuration     int64 `json:"extension_duration"       binding:"gte=0" example:"600"`
	MinSaleUpdateDuration int64 `json:"min_sale_update_duration" binding:"gte=0" example:"0"`
} // @name TimingConfigRequest

type FeesBody struct {
	PrimarySaleFeeBps           int64 `json:"primary_sale_fee_bps"            binding:"gte=0,lte=10000" example:"500"`
	SecondarySaleFeeBps         int64 `json:"secondary_sale_fee_bps"          binding:"gte=0,lte=10000" example:"400"`
	UppercapPrimarySaleFeeBps   int64 `json:"uppercap_primary_sale_fee_bps"   binding:"gte=0,lte=10000" example:"1000"`
	UppercapSecondarySaleFeeBps int64 `json:"uppercap_secondary_sale_fee_bps" binding:"gte=0,lte=10000" example:"1000"`
} // @name FeeConfigRequest

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
} // @name ErrorResponse

type ListSalesQuery struct {
	Status string `form:"status"  binding:"omitempty,oneof=OPEN CLOSED CANCELLED"`
	Seller string `form:"seller"`
	Limit  int    `form:"limit,default=10"  binding:"gte=0,lte=100"`
	Offset int    `form:"offset,default=0"  binding:"gte=0"`
} // @name ListSalesQuery
