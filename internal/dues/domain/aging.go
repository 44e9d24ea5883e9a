package domain

import "github.com/shopspring/decimal"

type Bucket string

const (
	Bucket0To30  Bucket = "0-30"
	Bucket31To60 Bucket = "31-60"
	Bucket61To90 Bucket = "61-90"
	BucketOver90 Bucket = "90+"
)

// Buckets lists every aging bucket from least to most severe.
var Buckets = []Bucket{Bucket0To30, Bucket31To60, Bucket61To90, BucketOver90}

// BucketFor maps overdue days to a bucket; both ends are inclusive.
func BucketFor(days int) Bucket {
	switch {
	case days <= 30:
		return Bucket0To30
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

type BucketTotal struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// CalculateAging sums open balances per bucket. Every bucket is present in
// the result. Settled dues are ignored.
func CalculateAging(dues []FeeDue) map[Bucket]BucketTotal {
	out := make(map[Bucket]BucketTotal, len(Buckets))
	for _, bucket := range Buckets {
		out[bucket] = BucketTotal{Amount: decimal.Zero}
	}
	for i := range dues {
		if !dues[i].IsOpen() {
			continue
		}
		bucket := BucketFor(dues[i].OverdueDays)
		total := out[bucket]
		total.Count++
		total.Amount = total.Amount.Add(dues[i].BalanceAmount)
		out[bucket] = total
	}
	return out
}
