// client_test.go - Tests for the form-data service client
package dataservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestListEntries_Pagination(t *testing.T) {
	var requests []listRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Path != "/entry/data/list" {
			t.Errorf("path = %s", r.URL.Path)
		}

		var req listRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		requests = append(requests, req)

		// First page is full, second page is short.
		count := pageSize
		if req.DataID != "" {
			count = 3
		}
		entries := make([]map[string]any, count)
		for i := range entries {
			entries[i] = map[string]any{"_id": fmt.Sprintf("%s-%d", req.DataID, i)}
		}
		json.NewEncoder(w).Encode(listResponse{Data: entries})
	}))
	defer server.Close()

	c := New(server.URL, "test-key", "app-1")
	entries, err := c.ListEntries(context.Background(), "entry-9", nil)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}

	if len(entries) != pageSize+3 {
		t.Errorf("entries = %d, want %d", len(entries), pageSize+3)
	}
	if len(requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(requests))
	}
	if requests[0].DataID != "" {
		t.Errorf("first request carried a cursor: %q", requests[0].DataID)
	}
	if want := fmt.Sprintf("-%d", pageSize-1); requests[1].DataID != want {
		t.Errorf("second cursor = %q, want %q", requests[1].DataID, want)
	}
	if requests[0].AppID != "app-1" || requests[0].EntryID != "entry-9" {
		t.Errorf("request identity = %+v", requests[0])
	}
}

func TestListEntries_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := New(server.URL, "test-key", "app-1")
	_, err := c.ListEntries(context.Background(), "entry-9", nil)
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should carry status code: %v", err)
	}
}

func TestUploadFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/file/upload" {
			t.Errorf("path = %s", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		defer file.Close()
		if header.Filename != "plc_table.csv" {
			t.Errorf("filename = %s", header.Filename)
		}
		content, _ := io.ReadAll(file)
		if string(content) != "Tag,Address\n" {
			t.Errorf("content = %q", content)
		}
		json.NewEncoder(w).Encode(uploadResponse{FileID: "f-42"})
	}))
	defer server.Close()

	c := New(server.URL, "test-key", "app-1")
	id, err := c.UploadFile(context.Background(), "plc_table.csv", strings.NewReader("Tag,Address\n"))
	if err != nil {
		t.Fatalf("UploadFile failed: %v", err)
	}
	if id != "f-42" {
		t.Errorf("file id = %s", id)
	}
}
