package http

import (
	"strconv"

	"github.com/shopspring/decimal"
)

func decimalOf(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
