package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/kiwari-pos/opsdash/internal/codec"
	"github.com/kiwari-pos/opsdash/internal/engine"
	"github.com/kiwari-pos/opsdash/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportDemoCollection(t *testing.T) {
	out, err := execute(t, "export", uuid.NewString(), "inventory", "--source", "demo")
	require.NoError(t, err)

	var items []model.InventoryItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	assert.Len(t, items, 5)
}

func TestExportDemoAllToCBORFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.cbor")

	out, err := execute(t, "export", uuid.NewString(), "--source", "demo", "--format", "cbor", "-o", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var ds engine.Dataset
	require.NoError(t, codec.Unmarshal(codec.CBOR, data, &ds))
	assert.Len(t, ds.Orders, 4)
	assert.Len(t, ds.Customers, 3)
	require.NotNil(t, ds.Settings)
}

func TestExportErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown collection", []string{"export", uuid.NewString(), "payments", "--source", "demo"}, "unknown collection"},
		{"bad format", []string{"export", uuid.NewString(), "--source", "demo", "--format", "xml"}, "xml"},
		{"bad source", []string{"export", uuid.NewString(), "--source", "s3"}, "invalid source"},
		{"no database", []string{"export", uuid.NewString(), "--database-url", ""}, "database url is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
