package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := NewRecorder()
	scoped := NewScopedAPI("crawler", NewScopedAPI("clan", rec))

	scoped.ReportBroken("fetch", 1)
	scoped.ReportWarning("lookup", 2)
	scoped.ReportCount("members", 50)
	scoped.ReportDebug("ignored")

	require.Equal(t, []Report{{ID: "clan: crawler: fetch", Params: []any{1}}}, rec.Broken)
	require.Len(t, rec.WarningsWithSuffix("lookup"), 1)
	require.Empty(t, rec.BrokenWithSuffix("lookup"))
	require.Equal(t, int64(50), rec.Counts["clan: crawler: members"])
}

func TestInstrumentResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.Header().Set("X-Reason", "gone")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("no such clan"))
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	rec := NewRecorder()
	client := resty.New()
	InstrumentResty(client, rec)

	_, err := client.R().Get(server.URL + "/roster")
	if err != nil {
		t.Fatal(err)
	}
	require.Empty(t, rec.Warnings)

	_, err = client.R().Get(server.URL + "/missing")
	if err != nil {
		t.Fatal(err)
	}
	warnings := rec.WarningsWithSuffix(report_resty_response)
	require.Len(t, warnings, 1)
	message := warnings[0].Params[1].(string)
	require.Contains(t, message, "no such clan")
	require.Contains(t, message, "X-Reason: gone")

	_, err = client.R().Get("http://127.0.0.1:0/unreachable")
	require.Error(t, err)
	require.Len(t, rec.BrokenWithSuffix(report_resty_response), 1)
}

func TestFormatRequestBody(t *testing.T) {
	require.Equal(t, "<NO BODY AVAILABLE>", formatRequestBody(nil))

	get := httptest.NewRequest(http.MethodGet, "/roster/7", nil)
	get.GetBody = func() (io.ReadCloser, error) { return nil, nil }
	require.Equal(t, "<NO BODY AVAILABLE>", formatRequestBody(get))

	post := httptest.NewRequest(http.MethodPost, "/profile", strings.NewReader("id=42"))
	post.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("id=42")), nil
	}
	require.Equal(t, "id=42", formatRequestBody(post))
}

func TestInstrumentRestyErrorStatusWithoutBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	rec := NewRecorder()
	client := resty.New()
	InstrumentResty(client, rec)

	res, err := client.R().Get(server.URL + "/roster/7")
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, http.StatusInternalServerError, res.StatusCode())
	warnings := rec.WarningsWithSuffix(report_resty_response)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Params[1].(string), "500")
}
