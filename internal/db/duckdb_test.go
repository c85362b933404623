package db

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Liando18/development-geotax/internal/overlay"
)

func TestViewName(t *testing.T) {
	tests := []struct {
		dataset overlay.Dataset
		want    string
	}{
		{overlay.LandParcels, "bidang_tanah"},
		{overlay.LandValueZones, "zona_nilai_tanah"},
		{overlay.Dataset("Mixed-Case; DROP"), "mixed_casedrop"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ViewName(tt.dataset))
	}
}
