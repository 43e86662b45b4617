package composer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXWeightedLength(t *testing.T) {
	tests := []struct {
		name string
		s    string
		want int
	}{
		{name: "ascii", s: "abc", want: 3},
		{name: "empty", s: "", want: 0},
		{name: "hangul weighs two", s: "원", want: 2},
		{name: "indicator line", s: "한국은행 기준금리: 3.50 % (2024년01월15일)", want: 42},
		{name: "emoji weighs two", s: "🤖", want: 2},
		{name: "general punctuation weighs one", s: "—", want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, XWeightedLength(tt.s))
		})
	}
}

func TestFitToLimit(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		limit       int
		want        string
		wantDropped int
		wantErr     bool
	}{
		{
			name:  "fits",
			text:  "aaaa\nbbbb",
			limit: 9,
			want:  "aaaa\nbbbb",
		},
		{
			name:        "drops trailing lines",
			text:        "aaaa\nbbbb\ncccc",
			limit:       10,
			want:        "aaaa\nbbbb",
			wantDropped: 1,
		},
		{
			name:        "drops down to one line",
			text:        "aaaa\nbbbb\ncccc",
			limit:       5,
			want:        "aaaa",
			wantDropped: 2,
		},
		{
			name:    "first line too long",
			text:    "aaaaaaaa\nb",
			limit:   5,
			wantErr: true,
		},
		{
			name:    "single line too long",
			text:    strings.Repeat("가", 141),
			limit:   XMaxWeightedLength,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			length := RuneLength
			if tt.limit == XMaxWeightedLength {
				length = XWeightedLength
			}

			got, dropped, err := FitToLimit(tt.text, tt.limit, length)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPostTooLong)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantDropped, dropped)
		})
	}
}

func TestFitToLimit_fiveIndicatorsFitX(t *testing.T) {
	text := strings.Join([]string{
		"한국은행 기준금리: 3.50 % (2024년01월15일)",
		"콜금리(익일물): 3.543 % (2024년01월12일)",
		"원/달러 환율(종가): 1,316.5 원 (2024년01월15일)",
		"코스피지수: 2,525.05  (2024년01월15일)",
		"코스닥지수: 859.71  (2024년01월15일)",
	}, "\n")

	got, dropped, err := FitToLimit(text, XMaxWeightedLength, XWeightedLength)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.Equal(t, text, got)
}
