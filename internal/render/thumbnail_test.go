package render

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThumbnailPreservesAspect(t *testing.T) {
	r := NewImageRenderer()
	doc, err := r.Open(context.Background(), encodePNG(t, testImage(400, 200)))
	require.NoError(t, err)
	defer doc.Close()

	thumb, err := Thumbnail(context.Background(), r, doc, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, thumb.Bounds().Dx())
	assert.Equal(t, 50, thumb.Bounds().Dy())
}
