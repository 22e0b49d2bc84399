package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	tests := []struct {
		in   string
		want Summary
	}{
		{"", Summary{Platform: Web, Camera: CameraUpload, Auth: true, Purchases: false, AdNetwork: "adsense"}},
		{"Web", Summary{Platform: Web, Camera: CameraUpload, Auth: true, Purchases: false, AdNetwork: "adsense"}},
		{"mobile", Summary{Platform: Mobile, Camera: CameraNative, Auth: false, Purchases: true, AdNetwork: "admob"}},
		{"android", Summary{Platform: Mobile, Camera: CameraNative, Auth: false, Purchases: true, AdNetwork: "admob"}},
	}
	for _, tt := range tests {
		c, err := For(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, Summarize(c), tt.in)
	}

	_, err := For("desktop")
	assert.Error(t, err)
}
