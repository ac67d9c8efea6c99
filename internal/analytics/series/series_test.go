package series

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNullPointsRoundTripThroughJSON(t *testing.T) {
	c := New("2024-01", "2024-02", "2024-03")
	c.Add("approved", []*float64{Value(10), nil, Value(0)})

	raw, err := json.Marshal(c)
	require.NoError(t, err)
	require.JSONEq(t, `{"labels":["2024-01","2024-02","2024-03"],"datasets":[{"label":"approved","data":[10,null,0],"color":"#2563eb"}]}`, string(raw))

	var back Chart
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Nil(t, back.Datasets[0].Data[1])
	require.NotNil(t, back.Datasets[0].Data[2])
	require.Equal(t, 0.0, *back.Datasets[0].Data[2])
}

func TestFromPointsFallsBackToZeroFilledLabels(t *testing.T) {
	c := FromPoints("aging", nil, "0-15", "16-30")
	require.Equal(t, []string{"0-15", "16-30"}, c.Labels)
	require.Len(t, c.Datasets, 1)
	require.Equal(t, []float64{0, 0}, c.Values(0))
	require.NotNil(t, c.Datasets[0].Data[0])
}

func TestAddAlignsAndColours(t *testing.T) {
	c := New("a", "b")
	c.AddFloats("first", []float64{1, 2, 3})
	c.Add("second", []*float64{Value(5)})
	require.Len(t, c.Datasets[0].Data, 2)
	require.Nil(t, c.Datasets[1].Data[1])
	require.Equal(t, Palette[0], c.Datasets[0].Color)
	require.Equal(t, Palette[1], c.Datasets[1].Color)
	require.Equal(t, Palette[0], Color(len(Palette)))
}
