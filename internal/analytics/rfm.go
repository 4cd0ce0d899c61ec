// Package analytics segments customers by recency, frequency and monetary
// value.
package analytics

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/joseph-ayodele/paperia/internal/common"
	"github.com/joseph-ayodele/paperia/internal/entity"
)

const (
	// DefaultClusters is the segment count used after the elbow scan.
	DefaultClusters = 3
	maxElbowK       = 10
	seed            = 42
)

// Customer is one row of RFM input. JSON keys follow the column names the
// sales dashboard posts.
type Customer struct {
	CustomerID string  `json:"CustomerID,omitempty"`
	Recency    float64 `json:"Recency"`
	Frequency  float64 `json:"Frequency"`
	Monetary   float64 `json:"Monetary"`
}

// SegmentedCustomer is an input row tagged with its cluster.
type SegmentedCustomer struct {
	Customer
	Cluster int `json:"Cluster"`
}

type Segmentation struct {
	Customers []SegmentedCustomer `json:"segmented_customers"`
	Inertia   []float64           `json:"inertia"`
	Centroids [][3]float64        `json:"centroids"`
}

// Segment standardizes the features, records the elbow inertia for
// k = 1..10 (capped at the row count) and assigns each customer to one of
// DefaultClusters clusters.
func Segment(customers []Customer) (*Segmentation, error) {
	if len(customers) == 0 {
		return nil, common.NewAppError("NO_CUSTOMERS", "at least one customer row is required", common.ErrInvalidInput)
	}
	for i, c := range customers {
		for _, v := range []float64{c.Recency, c.Frequency, c.Monetary} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, common.NewAppError("INVALID_ROW", "row "+itoa(i)+" has a non-finite value", common.ErrInvalidInput)
			}
		}
	}

	points := standardize(customers)

	var inertia []float64
	for k := 1; k <= maxElbowK && k <= len(points); k++ {
		inertia = append(inertia, kmeans(points, k, seed).inertia)
	}

	k := DefaultClusters
	if k > len(points) {
		k = len(points)
	}
	fit := kmeans(points, k, seed)

	out := &Segmentation{Inertia: inertia, Centroids: fit.centroids}
	for i, c := range customers {
		out.Customers = append(out.Customers, SegmentedCustomer{Customer: c, Cluster: fit.labels[i]})
	}
	return out, nil
}

// standardize returns z-scores per feature using the population standard
// deviation. A constant feature maps to zero.
func standardize(customers []Customer) [][3]float64 {
	rows := make([][3]float64, len(customers))
	column := make([]float64, len(customers))
	for j := 0; j < 3; j++ {
		for i, c := range customers {
			column[i] = [3]float64{c.Recency, c.Frequency, c.Monetary}[j]
		}
		mean, std := stat.PopMeanStdDev(column, nil)
		for i, v := range column {
			if std == 0 {
				rows[i][j] = 0
				continue
			}
			rows[i][j] = stat.StdScore(v, mean, std)
		}
	}
	return rows
}

// FromInvoices derives RFM rows from stored invoices: days since the latest
// invoice, invoice count and summed totals per customer. Rows come back
// ordered by customer name.
func FromInvoices(invoices []*entity.Invoice, now time.Time) []Customer {
	type acc struct {
		name  string
		last  time.Time
		count int
		total float64
	}
	byCustomer := map[string]*acc{}
	for _, inv := range invoices {
		key := inv.CustomerID.String()
		a, ok := byCustomer[key]
		if !ok {
			a = &acc{name: inv.CustomerName}
			if a.name == "" {
				a.name = key
			}
			byCustomer[key] = a
		}
		if inv.Date.After(a.last) {
			a.last = inv.Date
		}
		a.count++
		a.total += inv.Total
	}

	out := make([]Customer, 0, len(byCustomer))
	for _, a := range byCustomer {
		days := math.Floor(now.Sub(a.last).Hours() / 24)
		if days < 0 {
			days = 0
		}
		out = append(out, Customer{CustomerID: a.name, Recency: days, Frequency: float64(a.count), Monetary: a.total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out
}
