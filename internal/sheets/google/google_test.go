package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"tesoro/internal/core"
	ports "tesoro/internal/sheets"
)

// fakeSheets records the calls the client makes to the Sheets API.
type fakeSheets struct {
	mu       sync.Mutex
	titles   []string
	added    []string
	cleared  []string
	written  map[string][][]any
	failGets bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sheet-id"):
		if f.failGets {
			http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
			return
		}
		ss := gsheet.Spreadsheet{}
		for _, t := range f.titles {
			ss.Sheets = append(ss.Sheets, &gsheet.Sheet{Properties: &gsheet.SheetProperties{Title: t}})
		}
		json.NewEncoder(w).Encode(ss)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.added = append(f.added, rq.AddSheet.Properties.Title)
				f.titles = append(f.titles, rq.AddSheet.Properties.Title)
			}
		}
		w.Write([]byte(`{"spreadsheetId":"sheet-id"}`))
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.cleared = append(f.cleared, path[strings.Index(path, "/values/")+len("/values/"):strings.LastIndex(path, ":clear")])
		w.Write([]byte(`{}`))
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		var vr gsheet.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		if r.URL.Query().Get("valueInputOption") != "USER_ENTERED" {
			http.Error(w, `{"error":{"code":400,"message":"valueInputOption"}}`, http.StatusBadRequest)
			return
		}
		rng := path[strings.Index(path, "/values/")+len("/values/"):]
		f.written[rng] = vr.Values
		w.Write([]byte(`{}`))
	default:
		http.Error(w, `{"error":{"code":404,"message":"unexpected call"}}`, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), "sheet-id", nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func testReport() ports.Report {
	return ports.Report{
		List:         core.ExpensesList{ID: 7, Name: "Ski trip", Currency: "EUR"},
		Participants: []core.Participant{{ID: 1, Name: "Ann"}, {ID: 2, Name: "Ben"}},
		Resolution: core.ExpensesListResolution{
			Currency: "EUR",
			Status:   core.Balance{1: core.Cents(500), 2: core.Cents(-500)},
			Settle:   []core.Settlement{{Payer: 2, Payee: 1, Amount: core.Cents(500)}},
		},
		GeneratedAt: time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestClient_ExportResolution_CreatesSheet(t *testing.T) {
	fake := &fakeSheets{titles: []string{"Sheet1"}, written: map[string][][]any{}}
	c := newTestClient(t, fake)

	ref, err := c.ExportResolution(context.Background(), testReport())
	if err != nil {
		t.Fatalf("ExportResolution() error = %v", err)
	}
	if ref != "'7 Ski trip'!A1:C10" {
		t.Errorf("ref = %q", ref)
	}
	if len(fake.added) != 1 || fake.added[0] != "7 Ski trip" {
		t.Errorf("added sheets = %v", fake.added)
	}
	if len(fake.cleared) != 1 || fake.cleared[0] != "'7 Ski trip'" {
		t.Errorf("cleared = %v", fake.cleared)
	}
	rows, ok := fake.written[ref]
	if !ok {
		t.Fatalf("nothing written at %s: %v", ref, fake.written)
	}
	if len(rows) != 10 || rows[9][0] != "Ben" || rows[9][2] != "5.00" {
		t.Errorf("unexpected rows %v", rows)
	}
}

func TestClient_ExportResolution_ReusesSheet(t *testing.T) {
	fake := &fakeSheets{titles: []string{"7 Ski trip"}, written: map[string][][]any{}}
	c := newTestClient(t, fake)

	if _, err := c.ExportResolution(context.Background(), testReport()); err != nil {
		t.Fatalf("ExportResolution() error = %v", err)
	}
	if len(fake.added) != 0 {
		t.Errorf("sheet should not be added again, added = %v", fake.added)
	}
}

func TestClient_ExportResolution_APIError(t *testing.T) {
	fake := &fakeSheets{failGets: true, written: map[string][][]any{}}
	c := newTestClient(t, fake)

	_, err := c.ExportResolution(context.Background(), testReport())
	if err == nil || !strings.Contains(err.Error(), "get spreadsheet") {
		t.Errorf("expected get spreadsheet error, got %v", err)
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "  ", nil, goption.WithoutAuthentication())
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(file, []byte(`{"type":"service_account"}`), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		inline  string
		file    string
		want    string
		wantErr string
	}{
		{name: "inline wins", inline: `{"a":1}`, file: file, want: `{"a":1}`},
		{name: "from file", file: file, want: `{"type":"service_account"}`},
		{name: "missing file", file: "/does/not/exist.json", wantErr: "read service account file"},
		{name: "nothing configured", wantErr: "missing service account credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loadCredentials(tt.inline, tt.file)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("loadCredentials() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil || string(got) != tt.want {
				t.Errorf("loadCredentials() = %q, %v", got, err)
			}
		})
	}
}

func TestQuoteTitle(t *testing.T) {
	if got := quoteTitle("Ann's trip"); got != "'Ann''s trip'" {
		t.Errorf("quoteTitle() = %q", got)
	}
}
