package costsummary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	s := New("2024-01-01", "2024-01-31")
	s.Add("2024-01-01", "EC2", 10, "USD")
	s.Add("2024-01-02", "EC2", 5, "EUR")
	s.Add("2024-01-02", "S3", 1, "USD")

	assert.Equal(t, 16.0, s.TotalCost)
	assert.Equal(t, &ServiceCost{Cost: 15, Unit: "USD"}, s.CostsByService["EC2"])
	assert.Equal(t, []DateServiceCost{{ServiceName: "EC2", Cost: 5}, {ServiceName: "S3", Cost: 1}}, s.CostsByDate["2024-01-02"])
}

func TestTotalEqualsServiceSum(t *testing.T) {
	s := New("", "")
	for i := 0; i < 100; i++ {
		s.Add("2024-01-01", []string{"a", "b", "c"}[i%3], float64(i)*0.01, "USD")
	}
	sum := 0.0
	for _, sc := range s.CostsByService {
		sum += sc.Cost
	}
	assert.InDelta(t, s.TotalCost, sum, 1e-9)
}

func TestMerge(t *testing.T) {
	a := New("2024-01-01", "2024-01-31")
	a.Add("2024-01-01", "VM", 1, "EUR")

	b := New("2024-01-01", "2024-01-31")
	b.Add("2024-01-03", "VM", 2, "EUR")
	b.Add("2024-01-02", "Storage", 3, "EUR")

	a.Merge(b)
	a.Merge(nil)
	assert.Equal(t, 6.0, a.TotalCost)
	assert.Equal(t, 3.0, a.CostsByService["VM"].Cost)
	require.Contains(t, a.CostsByService, "Storage")
	assert.Equal(t, "EUR", a.CostsByService["Storage"].Unit)
	assert.Len(t, a.CostsByDate, 3)
}
