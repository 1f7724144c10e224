package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpzouying/tiktok-reply-mcp/reply"
	"github.com/xpzouying/tiktok-reply-mcp/tiktok"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{URL: "  " + testURL + " "}.WithDefaults()

	assert.Equal(t, testURL, cfg.URL)
	assert.Equal(t, reply.DefaultTone, cfg.Tone)
	assert.Equal(t, reply.DefaultMaxLength, cfg.MaxResponseLength)
	assert.Equal(t, reply.DefaultAccountName, cfg.AccountName)
	require.NotNil(t, cfg.ExcludeOwner)
	assert.True(t, *cfg.ExcludeOwner)

	off := false
	cfg = Config{URL: testURL, ExcludeOwner: &off, MaxResponseLength: 80}.WithDefaults()
	assert.False(t, *cfg.ExcludeOwner)
	assert.Equal(t, 80, cfg.MaxResponseLength)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"valid", Config{URL: testURL}, true},
		{"empty", Config{}, false},
		{"no scheme", Config{URL: "www.tiktok.com/@a/video/1"}, false},
		{"no host", Config{URL: "https:///video/1"}, false},
		{"negative length", Config{URL: testURL, MaxResponseLength: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestConfigOwnerFilter(t *testing.T) {
	f := Config{URL: testURL, OwnerHandle: "@Someone"}.WithDefaults().OwnerFilter()
	assert.True(t, f.Enabled)
	assert.Equal(t, "@Someone", f.Handle)

	f = Config{URL: testURL}.WithDefaults().OwnerFilter()
	assert.Equal(t, "@owner", f.Handle)

	f = Config{URL: "https://vm.tiktok.com/ZMabc/"}.WithDefaults().OwnerFilter()
	assert.Equal(t, reply.DefaultAccountName, f.Handle)

	off := false
	f = Config{URL: testURL, ExcludeOwner: &off}.OwnerFilter()
	assert.False(t, f.Enabled)
}

func TestConfigReplyOptions(t *testing.T) {
	cfg := Config{URL: testURL, Tone: "drôle"}.WithDefaults()

	opts := cfg.ReplyOptions(nil)
	assert.Equal(t, "Vidéo TikTok", opts.VideoTitle)
	assert.Equal(t, "drôle", opts.Tone)

	opts = cfg.ReplyOptions(&tiktok.VideoMetadata{Title: tiktok.TitleNotFound, Hashtags: []string{"#a"}})
	assert.Equal(t, "Vidéo TikTok", opts.VideoTitle)
	assert.Equal(t, []string{"#a"}, opts.Hashtags)

	opts = cfg.ReplyOptions(&tiktok.VideoMetadata{Title: "Routine"})
	assert.Equal(t, "Routine", opts.VideoTitle)
}

func TestRegistryKeyLockIsReleased(t *testing.T) {
	r := NewRegistry()
	unlock := r.lock("a")
	unlock()
	unlock = r.lock("a")
	unlock()

	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	assert.Empty(t, r.locks)
}
