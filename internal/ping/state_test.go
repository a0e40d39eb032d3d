package ping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStateStartsUnpinged(t *testing.T) {
	state := NewState("sitemap")
	assert.Equal(t, "sitemap", state.SitemapSlug)
	assert.Equal(t, CodeNoPingsYet, state.Code)
	assert.Zero(t, state.LatestTime)
}

func TestStateUpdate(t *testing.T) {
	tests := []struct {
		name         string
		responses    []Response
		expectedCode string
		expectedTime int64
	}{
		{
			name: "both engines succeed",
			responses: []Response{
				{Engine: "google", Status: "200", Time: 100},
				{Engine: "bing", Status: "200", Time: 101},
			},
			expectedCode: CodeSucceeded,
			expectedTime: 101,
		},
		{
			name: "google fails first",
			responses: []Response{
				{Engine: "google", Status: "503", Time: 100},
				{Engine: "bing", Status: "200", Time: 101},
			},
			expectedCode: CodeNoGoogle,
			expectedTime: 101,
		},
		{
			name: "bing fails last",
			responses: []Response{
				{Engine: "google", Status: "200", Time: 100},
				{Engine: "bing", Status: "timeout", Time: 101},
			},
			expectedCode: CodeNoBing,
			expectedTime: 100,
		},
		{
			name: "both engines fail",
			responses: []Response{
				{Engine: "google", Status: "500", Time: 100},
				{Engine: "bing", Status: "500", Time: 101},
			},
			expectedCode: CodeFailed,
			expectedTime: 0,
		},
		{
			name: "single engine succeeds",
			responses: []Response{
				{Engine: "google", Status: "200", Time: 100},
			},
			expectedCode: CodeSucceeded,
			expectedTime: 100,
		},
		{
			name: "single engine fails",
			responses: []Response{
				{Engine: "google", Status: "404", Time: 100},
			},
			expectedCode: CodeNoGoogle,
			expectedTime: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewState("sitemap")
			state.Update(tt.responses)

			assert.Equal(t, tt.expectedCode, state.Code)
			assert.Equal(t, tt.expectedTime, state.LatestTime)
		})
	}
}
