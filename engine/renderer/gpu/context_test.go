package gpu_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu/gputest"
)

func TestNewContextCreatesDefaultTextures(t *testing.T) {
	rec := gputest.NewRecorder()
	ctx, err := gpu.NewContext(rec, gpu.WithDebug(true))
	require.NoError(t, err)

	assert.True(t, ctx.Debug())
	assert.Equal(t, gputest.Version, ctx.Version())
	for _, dim := range gpu.Dimensions {
		tex := ctx.DefaultTexture(dim)
		require.NotNil(t, tex, dim)
		assert.Equal(t, dim, tex.Dimension())
		assert.Equal(t, gpu.FormatRGBA8Unorm, tex.Format())

		staging := tex.(*gputest.Texture).Desc.Data
		for _, b := range staging.Pixels {
			assert.Equal(t, byte(0xff), b)
		}
	}
	cube := ctx.DefaultTexture(gpu.DimensionCube).(*gputest.Texture)
	assert.Equal(t, uint32(6), cube.Desc.Data.Layers)
	assert.Nil(t, ctx.DefaultTexture("4d"))
}

func TestContextReleaseFreesDefaults(t *testing.T) {
	rec := gputest.NewRecorder()
	ctx, err := gpu.NewContext(rec)
	require.NoError(t, err)
	assert.False(t, ctx.Debug())

	tex := ctx.DefaultTexture(gpu.Dimension2D).(*gputest.Texture)
	ctx.Release()
	assert.True(t, tex.Released)
	assert.Nil(t, ctx.DefaultTexture(gpu.Dimension2D))
}

type failingTextures struct {
	*gputest.Recorder
}

func (failingTextures) NewTexture(gpu.TextureDesc) (gpu.Texture, error) {
	return nil, errors.New("out of memory")
}

func TestNewContextPropagatesTextureFailure(t *testing.T) {
	_, err := gpu.NewContext(failingTextures{gputest.NewRecorder()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")
}

func TestTextureFormatAspects(t *testing.T) {
	assert.True(t, gpu.FormatDepth24PlusStencil8.IsDepth())
	assert.True(t, gpu.FormatDepth24PlusStencil8.HasStencil())
	assert.True(t, gpu.FormatDepth32Float.IsDepth())
	assert.False(t, gpu.FormatDepth32Float.HasStencil())
	assert.False(t, gpu.FormatRGBA8Unorm.IsDepth())
	assert.Equal(t, 16, gpu.FormatRGBA32Float.TexelSize())
	assert.False(t, gpu.FormatUndefined.Valid())
}
