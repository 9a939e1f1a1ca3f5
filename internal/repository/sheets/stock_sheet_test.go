package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestAppendRows(t *testing.T) {
	var (
		path string
		body struct {
			Values [][]interface{} `json:"values"`
		}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.Equal(t, "USER_ENTERED", r.URL.Query().Get("valueInputOption"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	repo, err := newRepository(context.Background(), "sheet-id", nil,
		option.WithEndpoint(server.URL+"/"), option.WithoutAuthentication())
	require.NoError(t, err)

	err = repo.AppendRows(context.Background(), "Stock!A:E", [][]interface{}{{"2024-03-15", "rice", 9, 10, "no"}})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(path, "/v4/spreadsheets/sheet-id/values/"), path)
	require.True(t, strings.HasSuffix(path, ":append"), path)
	require.Len(t, body.Values, 1)
	require.Equal(t, "rice", body.Values[0][1])
}

func TestAppendRowsValidation(t *testing.T) {
	repo, err := newRepository(context.Background(), "sheet-id", nil,
		option.WithEndpoint("http://127.0.0.1:0/"), option.WithoutAuthentication())
	require.NoError(t, err)

	require.Error(t, repo.AppendRows(context.Background(), "", [][]interface{}{{"x"}}))
	require.NoError(t, repo.AppendRows(context.Background(), "Stock!A:E", nil))
}
