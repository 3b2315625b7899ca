package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maltedev/fidget-scraper/internal/fetcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

var orbit = &fetcher.RawProduct{
	Title:       "Orbit - Titanium",
	Description: "A 30x20x10 spinner.",
	ImageURL:    "https://cdn.test/products/orbit.jpg",
	SourceURL:   "https://acme.test/orbit",
}

const goodReply = `Sure! {"name":"Orbit","dimensions":"30x20x10","image":"https://cdn.test/products/orbit.jpg","button_size":"12","variants":[{"material":"Ti","weight":25},{"material":"Copper","weight":""},{"material":"","weight":"30g"}]}`

func fastOptions() Options {
	return Options{MaxAttempts: 3, RetryDelay: time.Millisecond}
}

func TestExtractSuccess(t *testing.T) {
	llm := new(MockCompleter)
	llm.On("Complete", mock.Anything, BuildPrompt(orbit)).Return(goodReply, nil).Once()

	p, err := New(llm, fastOptions(), nil).Extract(context.Background(), orbit)
	require.NoError(t, err)

	assert.Equal(t, Text("Orbit"), p.Name)
	assert.Equal(t, Text("30x20x10"), p.Dimensions)
	assert.Equal(t, Text("12"), p.ButtonSize)
	require.Len(t, p.Variants, 1)
	assert.Equal(t, Variant{Material: "Ti", Weight: "25"}, p.Variants[0])
	llm.AssertNumberOfCalls(t, "Complete", 1)
}

func TestExtractRetriesThenGivesUp(t *testing.T) {
	llm := new(MockCompleter)
	llm.On("Complete", mock.Anything, mock.Anything).Return("I cannot help with that.", nil)

	p, err := New(llm, fastOptions(), nil).Extract(context.Background(), orbit)
	assert.Nil(t, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionFailed)
	assert.ErrorIs(t, err, ErrNoJSON)
	llm.AssertNumberOfCalls(t, "Complete", 3)
}

func TestExtractRetriesOnTransportAndParseErrors(t *testing.T) {
	llm := new(MockCompleter)
	llm.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("connection refused")).Once()
	llm.On("Complete", mock.Anything, mock.Anything).Return(`{"name": oops}`, nil).Once()
	llm.On("Complete", mock.Anything, mock.Anything).Return(goodReply, nil).Once()

	start := time.Now()
	opts := Options{MaxAttempts: 3, RetryDelay: 20 * time.Millisecond}
	p, err := New(llm, opts, nil).Extract(context.Background(), orbit)
	require.NoError(t, err)
	assert.Equal(t, Text("Orbit"), p.Name)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	llm.AssertNumberOfCalls(t, "Complete", 3)
}

func TestExtractStopsWhenCancelled(t *testing.T) {
	llm := new(MockCompleter)
	llm.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("boom"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	opts := Options{MaxAttempts: 3, RetryDelay: time.Hour}
	_, err := New(llm, opts, nil).Extract(ctx, orbit)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	llm.AssertNumberOfCalls(t, "Complete", 1)
}

func TestBuildPromptEmbedsPageFields(t *testing.T) {
	prompt := BuildPrompt(orbit)
	assert.Contains(t, prompt, "Product title: Orbit - Titanium\n")
	assert.Contains(t, prompt, "Description text: A 30x20x10 spinner.\n")
	assert.Contains(t, prompt, `"image": "https://cdn.test/products/orbit.jpg",`)
	assert.Contains(t, prompt, "Use × character between dimensions")
}

func TestParseIsGreedy(t *testing.T) {
	p, err := Parse("```json\n{\"name\": \"Orbit\", \"variants\": []}\n```")
	require.NoError(t, err)
	assert.Equal(t, Text("Orbit"), p.Name)

	// trailing prose with a brace pulls the capture past the object
	_, err = Parse(`{"name": "Orbit"} note: use {braces} carefully`)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoJSON)

	_, err = Parse("no json here")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestTextAcceptsNumbersAndNull(t *testing.T) {
	p, err := Parse(`{"name": null, "dimensions": " 30x20 ", "variants": [{"material": "Ti", "weight": 25.5}, {"material": "Cu", "weight": 1e2}]}`)
	require.NoError(t, err)
	assert.Equal(t, Text(""), p.Name)
	assert.Equal(t, Text("30x20"), p.Dimensions)
	assert.Equal(t, Text("25.5"), p.Variants[0].Weight)
	assert.Equal(t, Text("100"), p.Variants[1].Weight)

	_, err = Parse(`{"name": true}`)
	assert.Error(t, err)
}
