package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plot is a managed land parcel. Expense imports only read ID and Name.
type Plot struct {
	ID          string
	Name        string
	Acreage     decimal.Decimal
	CropVariety string
	CreatedAt   time.Time
}
