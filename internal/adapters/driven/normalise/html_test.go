package normalise

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTML_Normalise(t *testing.T) {
	n := NewHTML()

	extracted, err := n.Normalise(context.Background(), "order.html", []byte(`<!DOCTYPE html>
<html>
<head>
  <title>Order Confirmation &amp; Receipt</title>
  <style>body { color: red; }</style>
</head>
<body>
  <script>trackOrder();</script>
  <h1>Thanks for your order</h1>
  <p>Home Depot order total <b>$89.99</b></p>
  <!-- internal note -->
</body>
</html>`))
	require.NoError(t, err)

	assert.Equal(t, "Order Confirmation & Receipt", extracted.Title)
	assert.Contains(t, extracted.Text, "Thanks for your order")
	assert.Contains(t, extracted.Text, "Home Depot order total $89.99")
	assert.NotContains(t, extracted.Text, "trackOrder")
	assert.NotContains(t, extracted.Text, "color: red")
	assert.NotContains(t, extracted.Text, "internal note")
	assert.NotContains(t, extracted.Text, "<")
}

func TestHTML_Normalise_TitleFallsBackToFilename(t *testing.T) {
	n := NewHTML()

	extracted, err := n.Normalise(context.Background(), "utility-bill.html",
		[]byte("<p>Electric bill $120.00</p>"))
	require.NoError(t, err)

	assert.Equal(t, "utility bill", extracted.Title)
}

func TestStripHTML_BlockBoundariesBecomeNewlines(t *testing.T) {
	text := stripHTML("<p>first paragraph</p><p>second paragraph</p>")

	assert.Equal(t, "first paragraph\nsecond paragraph", text)
}

func TestStripHTML_DecodesEntities(t *testing.T) {
	text := stripHTML("<p>coffee &amp; pastries &mdash; $12.50</p>")

	assert.Contains(t, text, "coffee & pastries")
	assert.Contains(t, text, "$12.50")
}
