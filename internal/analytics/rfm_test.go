package analytics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/joseph-ayodele/paperia/internal/common"
	"github.com/joseph-ayodele/paperia/internal/entity"
)

func threeGroups() []Customer {
	return []Customer{
		{CustomerID: "a1", Recency: 1, Frequency: 40, Monetary: 9000},
		{CustomerID: "a2", Recency: 2, Frequency: 42, Monetary: 9100},
		{CustomerID: "a3", Recency: 3, Frequency: 41, Monetary: 8900},
		{CustomerID: "b1", Recency: 100, Frequency: 10, Monetary: 2000},
		{CustomerID: "b2", Recency: 101, Frequency: 11, Monetary: 2100},
		{CustomerID: "b3", Recency: 102, Frequency: 9, Monetary: 1900},
		{CustomerID: "c1", Recency: 300, Frequency: 1, Monetary: 50},
		{CustomerID: "c2", Recency: 301, Frequency: 2, Monetary: 60},
		{CustomerID: "c3", Recency: 302, Frequency: 1, Monetary: 40},
		{CustomerID: "c4", Recency: 299, Frequency: 2, Monetary: 55},
		{CustomerID: "c5", Recency: 303, Frequency: 1, Monetary: 45},
	}
}

func TestSegment_SeparatesGroups(t *testing.T) {
	seg, err := Segment(threeGroups())
	require.NoError(t, err)
	require.Len(t, seg.Customers, 11)
	require.Len(t, seg.Centroids, 3)

	cluster := map[string]int{}
	for _, c := range seg.Customers {
		cluster[c.CustomerID] = c.Cluster
		assert.GreaterOrEqual(t, c.Cluster, 0)
		assert.Less(t, c.Cluster, 3)
	}
	for _, group := range [][]string{{"a1", "a2", "a3"}, {"b1", "b2", "b3"}, {"c1", "c2", "c3", "c4", "c5"}} {
		for _, id := range group[1:] {
			assert.Equal(t, cluster[group[0]], cluster[id], "%s with %s", id, group[0])
		}
	}
	assert.NotEqual(t, cluster["a1"], cluster["b1"])
	assert.NotEqual(t, cluster["b1"], cluster["c1"])
	assert.NotEqual(t, cluster["a1"], cluster["c1"])
}

func TestSegment_ElbowInertia(t *testing.T) {
	rows := threeGroups()
	seg, err := Segment(rows)
	require.NoError(t, err)

	require.Len(t, seg.Inertia, 10)
	// with one cluster the inertia is the total squared z-score: n per feature
	assert.InDelta(t, float64(len(rows)*3), seg.Inertia[0], 1e-9)
	assert.Less(t, seg.Inertia[2], seg.Inertia[0]*0.05)
}

func TestSegment_Deterministic(t *testing.T) {
	first, err := Segment(threeGroups())
	require.NoError(t, err)
	second, err := Segment(threeGroups())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSegment_EdgeCases(t *testing.T) {
	_, err := Segment(nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	seg, err := Segment([]Customer{{Recency: 1, Frequency: 1, Monetary: 10}, {Recency: 5, Frequency: 1, Monetary: 20}})
	require.NoError(t, err)
	assert.Len(t, seg.Inertia, 2)
	assert.Len(t, seg.Centroids, 2)
	assert.NotEqual(t, seg.Customers[0].Cluster, seg.Customers[1].Cluster)
	assert.InDelta(t, 0, seg.Inertia[1], 1e-12)
}

func TestStandardize_ConstantFeature(t *testing.T) {
	rows := standardize([]Customer{{Recency: 1, Frequency: 3}, {Recency: 3, Frequency: 3}})
	assert.Equal(t, [3]float64{-1, 0, 0}, rows[0])
	assert.Equal(t, [3]float64{1, 0, 0}, rows[1])
}

func TestStandardize_ZeroMeanUnitVariance(t *testing.T) {
	rows := standardize(threeGroups())
	for j := 0; j < 3; j++ {
		col := make([]float64, len(rows))
		for i := range rows {
			col[i] = rows[i][j]
		}
		mean, variance := stat.PopMeanVariance(col, nil)
		assert.InDelta(t, 0, mean, 1e-9)
		assert.InDelta(t, 1, variance, 1e-9)
	}
}

func TestSegmentation_JSONShape(t *testing.T) {
	seg, err := Segment(threeGroups()[:3])
	require.NoError(t, err)

	b, err := json.Marshal(seg)
	require.NoError(t, err)

	var body struct {
		Customers []map[string]any `json:"segmented_customers"`
		Inertia   []float64        `json:"inertia"`
		Centroids [][]float64      `json:"centroids"`
	}
	require.NoError(t, json.Unmarshal(b, &body))
	require.Len(t, body.Customers, 3)
	row := body.Customers[0]
	assert.Equal(t, "a1", row["CustomerID"])
	for _, key := range []string{"Recency", "Frequency", "Monetary", "Cluster"} {
		assert.Contains(t, row, key)
	}
	assert.Len(t, body.Inertia, 3)
	assert.Len(t, body.Centroids, 3)
}

func TestFromInvoices(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	acme, budi := uuid.New(), uuid.New()
	invoices := []*entity.Invoice{
		{CustomerID: acme, CustomerName: "Acme", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Total: 100},
		{CustomerID: acme, CustomerName: "Acme", Date: time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC), Total: 50},
		{CustomerID: budi, CustomerName: "Budi", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Total: 75},
	}

	rows := FromInvoices(invoices, now)
	assert.Equal(t, []Customer{
		{CustomerID: "Acme", Recency: 10, Frequency: 2, Monetary: 150},
		{CustomerID: "Budi", Recency: 90, Frequency: 1, Monetary: 75},
	}, rows)
}
