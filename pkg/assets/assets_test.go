package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solyn-ai/solyn/pkg/config"
	"github.com/solyn-ai/solyn/pkg/models"
)

func catalog() []models.Asset {
	return []models.Asset{
		{ID: "1", Name: "Sea View Apartment", Content: "two bedrooms near the beach", Remark: "discount available"},
		{ID: "2", Name: "Downtown Loft", Content: "open plan, sea glimpse", Remark: ""},
		{ID: "3", Name: "Garden House", Content: "quiet suburb", Remark: "sea view from roof"},
		{ID: "4", Name: "Parking Spot", Content: "underground", Remark: ""},
	}
}

func TestRankWeightsNameOverContentOverRemark(t *testing.T) {
	ranked := Rank(catalog(), []string{"sea"}, 10)

	require.Len(t, ranked, 3)
	// name hit beats content hit beats remark hit
	assert.Equal(t, "1", ranked[0].ID)
	assert.Equal(t, "2", ranked[1].ID)
	assert.Equal(t, "3", ranked[2].ID)
}

func TestRankKeepsTopK(t *testing.T) {
	ranked := Rank(catalog(), []string{"sea"}, 2)
	assert.Len(t, ranked, 2)
}

func TestRankDropsZeroScores(t *testing.T) {
	assert.Empty(t, Rank(catalog(), []string{"yacht"}, 3))
	assert.Empty(t, Rank(catalog(), []string{"", "  "}, 3))
	assert.Empty(t, Rank(nil, []string{"sea"}, 3))
}

func TestRankIsCaseInsensitive(t *testing.T) {
	ranked := Rank(catalog(), []string{"SEA"}, 10)
	assert.Len(t, ranked, 3)
}

func TestCatalogFetchesFromService(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"assets":[{"id":"1","name":"Sea View Apartment","content":"two bedrooms"}]}`))
	}))
	defer server.Close()

	cfg := config.DefaultAssetsConfig()
	cfg.BaseURL = server.URL
	svc := NewService(cfg, nil)

	assets, err := svc.Catalog(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "Sea View Apartment", assets[0].Name)
	assert.Equal(t, "/api/v1/tenants/tenant-1/assets", gotPath)
}

func TestCatalogSurfacesUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := config.DefaultAssetsConfig()
	cfg.BaseURL = server.URL
	svc := NewService(cfg, nil)

	_, err := svc.Catalog(context.Background(), "tenant-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
