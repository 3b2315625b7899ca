package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/maltedev/fidget-scraper/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAddManualNormalizes(t *testing.T) {
	merger := &recordingMerger{}
	img := new(MockImages)
	img.On("Download", mock.Anything, "https://cdn.test/p.jpg", "Acme", "pulse - clicker_Titanium_Zirconium + Copper").
		Return("acme/pulse_-_clicker_titanium_zirconium___copper.jpg", nil)

	p := New(Dependencies{Catalog: merger, Images: img}, DefaultOptions())
	entry, err := p.AddManual(context.Background(), "Acme", ManualEntry{
		Name:       "pulse - clicker",
		Dimensions: "40x15",
		Weight:     "12",
		Material:   []string{"ti", " ", "Zr+Cu"},
		ImageURL:   " https://cdn.test/p.jpg ",
	})
	require.NoError(t, err)

	assert.Equal(t, "Pulse Clicker", entry.Name)
	assert.Equal(t, "40×15mm", entry.Dimensions)
	assert.Equal(t, "12g", entry.Weight)
	assert.Equal(t, []string{"Titanium", "Zirconium + Copper"}, entry.Material)
	assert.Empty(t, entry.ButtonSize)
	assert.Equal(t, "images/acme/pulse_-_clicker_titanium_zirconium___copper.jpg", entry.Image)
	assert.Equal(t, []catalog.Entry{*entry}, merger.entries["Acme"])
	img.AssertExpectations(t)
}

func TestAddManualVariantsGetDistinctImageNames(t *testing.T) {
	merger := &recordingMerger{}
	img := new(MockImages)
	img.On("Download", mock.Anything, "HTTP://cdn.test/orbit.jpg", "Acme", "Orbit_Titanium").Return("acme/orbit_titanium.jpg", nil)
	img.On("Download", mock.Anything, "HTTP://cdn.test/orbit.jpg", "Acme", "Orbit_Copper").Return("acme/orbit_copper.jpg", nil)

	p := New(Dependencies{Catalog: merger, Images: img}, DefaultOptions())
	ctx := context.Background()
	ti, err := p.AddManual(ctx, "Acme", ManualEntry{Name: "Orbit", Material: []string{"ti"}, ImageURL: "HTTP://cdn.test/orbit.jpg"})
	require.NoError(t, err)
	cu, err := p.AddManual(ctx, "Acme", ManualEntry{Name: "Orbit", Material: []string{"cu"}, ImageURL: "HTTP://cdn.test/orbit.jpg"})
	require.NoError(t, err)

	assert.NotEqual(t, ti.Image, cu.Image)
	img.AssertExpectations(t)
}

func TestAddManualKeepsLocalImagePath(t *testing.T) {
	merger := &recordingMerger{}
	img := new(MockImages)

	p := New(Dependencies{Catalog: merger, Images: img}, DefaultOptions())
	entry, err := p.AddManual(context.Background(), "Acme", ManualEntry{
		Name:     "Nova",
		Material: []string{"Brass"},
		ImageURL: " images/acme/nova_brass.jpg ",
	})
	require.NoError(t, err)
	assert.Equal(t, "images/acme/nova_brass.jpg", entry.Image)
	img.AssertNotCalled(t, "Download", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddManualAbortsOnFailedDownload(t *testing.T) {
	merger := &recordingMerger{}
	img := new(MockImages)
	img.On("Download", mock.Anything, mock.Anything, "Acme", "Nova_Brass").Return("", errors.New("bad status: 404 Not Found"))

	p := New(Dependencies{Catalog: merger, Images: img}, DefaultOptions())
	entry, err := p.AddManual(context.Background(), "Acme", ManualEntry{
		Name:     "Nova",
		Material: []string{"Brass"},
		ImageURL: "https://cdn.test/missing.jpg",
	})
	require.Error(t, err)
	assert.Nil(t, entry)
	assert.Empty(t, merger.entries["Acme"])
}

func TestAddManualWithoutImage(t *testing.T) {
	merger := &recordingMerger{}
	p := New(Dependencies{Catalog: merger, Images: new(MockImages)}, DefaultOptions())

	entry, err := p.AddManual(context.Background(), "Acme", ManualEntry{Name: "Nova", Material: []string{"Brass"}})
	require.NoError(t, err)
	assert.Empty(t, entry.Image)
	assert.Equal(t, catalog.NotSpecified, entry.Weight)
}

func TestAddManualValidation(t *testing.T) {
	p := New(Dependencies{Catalog: &recordingMerger{}}, DefaultOptions())
	ctx := context.Background()

	_, err := p.AddManual(ctx, "", ManualEntry{Name: "Nova", Material: []string{"Ti"}})
	assert.ErrorIs(t, err, ErrInvalidEntry)

	_, err = p.AddManual(ctx, "Acme", ManualEntry{Material: []string{"Ti"}})
	assert.ErrorIs(t, err, ErrInvalidEntry)

	_, err = p.AddManual(ctx, "Acme", ManualEntry{Name: "Nova", Material: []string{"  "}})
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestAddManualUnknownGroup(t *testing.T) {
	p := New(Dependencies{Catalog: &recordingMerger{err: &catalog.GroupNotFoundError{Name: "Nope"}}}, DefaultOptions())
	_, err := p.AddManual(context.Background(), "Nope", ManualEntry{Name: "Nova", Material: []string{"Ti"}})
	assert.ErrorIs(t, err, catalog.ErrGroupNotFound)
}
