package markup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"chatvault/internal/model"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"exporter default", "02-Feb-24 10:23 PM", time.Date(2024, 2, 2, 22, 23, 0, 0, time.UTC)},
		{"24 hour", "02-Feb-24 22:23", time.Date(2024, 2, 2, 22, 23, 0, 0, time.UTC)},
		{"iso-ish", "2024-02-02 22:23:45", time.Date(2024, 2, 2, 22, 23, 45, 0, time.UTC)},
		{"surrounding whitespace", "  02-Feb-24 10:23 PM ", time.Date(2024, 2, 2, 22, 23, 0, 0, time.UTC)},
		{"empty", "", model.EpochSentinel},
		{"garbage", "yesterday-ish", model.EpochSentinel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTimestamp(tt.in))
		})
	}
}

func TestRestoredVideoEmbeds_DedupsURLs(t *testing.T) {
	body := "a https://x.example/v.mp4 b https://x.example/v.mp4 c https://x.example/w.webm"
	embeds := RestoredVideoEmbeds(body)
	assert.Len(t, embeds, 2)
	assert.Equal(t, "https://x.example/v.mp4", embeds[0].EmbedURL)
	assert.Equal(t, "https://x.example/w.webm", embeds[1].EmbedURL)
}

func TestRestoredVideoEmbeds_IgnoresNonVideoURLs(t *testing.T) {
	assert.Empty(t, RestoredVideoEmbeds("see https://x.example/page.html and https://x.example/pic.png"))
}
