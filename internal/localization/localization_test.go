package localization_test

import (
	"testing"
	"testing/fstest"

	"wangsammo/backend/internal/localization"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefault_LoadsBothLanguages(t *testing.T) {
	l, err := localization.NewDefault()
	require.NoError(t, err)

	assert.True(t, l.Supports("th"))
	assert.True(t, l.Supports("en"))
	assert.Equal(t, "รอดำเนินการ", l.GetString("th", "status.open"))
	assert.Equal(t, "Open", l.GetString("en", "status.open"))
	assert.Equal(t, "ไม่พบเรื่องร้องเรียนที่มีรหัสนี้", l.GetString("th", "error.notFound"))
}

func TestGetString_Fallbacks(t *testing.T) {
	l, err := localization.NewLocalizer(fstest.MapFS{
		"th.json":    {Data: []byte(`{"greeting": "สวัสดี", "only.th": "ไทย"}`)},
		"en.json":    {Data: []byte(`{"greeting": "Hello"}`)},
		"README.txt": {Data: []byte("ignored")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello", l.GetString("en", "greeting"))
	assert.Equal(t, "ไทย", l.GetString("en", "only.th"), "falls back to Thai")
	assert.Equal(t, "สวัสดี", l.GetString("de", "greeting"))
	assert.Equal(t, "missing.key", l.GetString("th", "missing.key"))
	assert.False(t, l.Supports("README"))
}

func TestNewLocalizer_InvalidJSON(t *testing.T) {
	_, err := localization.NewLocalizer(fstest.MapFS{
		"th.json": {Data: []byte(`{not json`)},
	})
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	l, err := localization.NewDefault()
	require.NoError(t, err)

	assert.Equal(t, "You earned 10 points!", l.Format("en", "message.pointsEarned", map[string]any{"points": 10}))
	assert.Equal(t, "คุณได้รับ 10 คะแนน!", l.Format("th", "message.pointsEarned", map[string]any{"points": 10}))
}

func TestResolve(t *testing.T) {
	l, err := localization.NewDefault()
	require.NoError(t, err)

	tests := []struct {
		name, explicit, accept, want string
	}{
		{"default", "", "", "th"},
		{"explicit wins", "en", "th-TH", "en"},
		{"explicit unsupported", "fr", "", "th"},
		{"accept language", "", "en-US,en;q=0.9", "en"},
		{"accept skips unsupported", "", "fr-FR, en;q=0.5", "en"},
		{"case insensitive", "EN", "", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, l.Resolve(tt.explicit, tt.accept))
		})
	}
}
