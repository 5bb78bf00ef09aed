package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOrder() *Order {
	return &Order{
		ClientName: "Ivan Petrov",
		PickupAt:   time.Date(2026, 10, 20, 10, 30, 0, 0, time.UTC),
		Lines:      []Line{{ProductID: 7, Category: "Хляб", Quantity: 2}},
	}
}

func TestOrderValidate(t *testing.T) {
	require.NoError(t, validOrder().Validate())

	cases := map[string]struct {
		mutate func(o *Order)
		want   error
	}{
		"short name":       {func(o *Order) { o.ClientName = " Iv " }, ErrInvalidClientName},
		"zero pickup":      {func(o *Order) { o.PickupAt = time.Time{} }, ErrInvalidPickup},
		"negative advance": {func(o *Order) { o.AdvancePayment = -1 }, ErrNegativeAdvance},
		"no lines":         {func(o *Order) { o.Lines = nil }, ErrNoLines},
		"unselected":       {func(o *Order) { o.Lines[0].ProductID = UnselectedProduct }, ErrInvalidProduct},
		"zero quantity":    {func(o *Order) { o.Lines[0].Quantity = 0 }, ErrInvalidQuantity},
		"cake on bread":    {func(o *Order) { o.Lines[0].Cake = &CakeDetails{Inscription: "Happy"} }, ErrCakeDetailsNotAllowed},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			o := validOrder()
			tc.mutate(o)
			require.ErrorIs(t, o.Validate(), tc.want)
		})
	}
}

func TestNormalizeClearsCakeDetailsForStandardLines(t *testing.T) {
	o := validOrder()
	o.Lines = append(o.Lines, Line{ProductID: 9, Category: "Торти", Quantity: 1, Cake: &CakeDetails{Inscription: " Честит рожден ден "}})
	o.Lines[0].Cake = &CakeDetails{Photo: "12"}

	o.Normalize()

	assert.Nil(t, o.Lines[0].Cake)
	require.NotNil(t, o.Lines[1].Cake)
	assert.Equal(t, "Честит рожден ден", o.Lines[1].Cake.Inscription)
	assert.Equal(t, "cake", o.Lines[1].Kind())
	assert.Equal(t, "standard", o.Lines[0].Kind())
}

func TestCloneDoesNotShareLines(t *testing.T) {
	o := validOrder()
	o.Lines[0].Cake = &CakeDetails{Inscription: "a"}
	clone := o.Clone()
	clone.Lines[0].Quantity = 9
	clone.Lines[0].Cake.Inscription = "b"

	assert.Equal(t, float64(2), o.Lines[0].Quantity)
	assert.Equal(t, "a", o.Lines[0].Cake.Inscription)
}

func TestMatchProduct(t *testing.T) {
	p := Product{Code: "1204", Name: `Торта "Гараш"`, Category: "Торти", Aliases: []string{"garash"}}

	assert.True(t, MatchProduct(p, ""))
	assert.True(t, MatchProduct(p, "12"))
	assert.False(t, MatchProduct(p, "13"))
	assert.True(t, MatchProduct(p, ".торта гараш"))
	assert.True(t, MatchProduct(p, ".GARASH"))
	assert.False(t, MatchProduct(p, ".торта шоко"))
	assert.True(t, p.IsCake())
}

func TestOrderCompleteAndLineLookup(t *testing.T) {
	o := validOrder()
	o.Lines[0].ID = 3
	assert.False(t, o.Complete())

	line, err := o.Line(3)
	require.NoError(t, err)
	line.Complete = true
	assert.True(t, o.Complete())

	_, err = o.Line(42)
	require.ErrorIs(t, err, ErrLineNotFound)
}
