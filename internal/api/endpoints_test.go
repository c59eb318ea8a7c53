package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"
)

func TestGetKeyPublishes(t *testing.T) {
	resourceID := []byte("0123456789abcdef")
	blockBytes := []byte{0x07, 0x01, 0x02, 0x03}

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/key-publishes/query" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req struct {
			ResourceIDs []string `json:"resource_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if len(req.ResourceIDs) != 1 || req.ResourceIDs[0] != base64.StdEncoding.EncodeToString(resourceID) {
			t.Errorf("resource ids on the wire: %v", req.ResourceIDs)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"blocks": []string{base64.StdEncoding.EncodeToString(blockBytes)},
		})
	}))

	blocks, err := client.GetKeyPublishes(context.Background(), [][]byte{resourceID})
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 1 || string(blocks[0]) != string(blockBytes) {
		t.Errorf("got blocks %v", blocks)
	}
}

func TestGetUserHistories(t *testing.T) {
	root := []byte{0x01}
	blk := []byte{0x02}

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/user-histories/query" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"root_block": base64.StdEncoding.EncodeToString(root),
			"blocks":     []string{base64.StdEncoding.EncodeToString(blk)},
		})
	}))

	got, err := client.GetUserHistories(context.Background(), [][]byte{[]byte("user")})
	if err != nil {
		t.Fatal(err)
	}
	if string(got.RootBlock) != string(root) {
		t.Error("root block mangled in transit")
	}
	if len(got.Blocks) != 1 || string(got.Blocks[0]) != string(blk) {
		t.Error("history blocks mangled in transit")
	}
}

func TestGroupEndpoints_Paths(t *testing.T) {
	var gotMethod, gotPath string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		if r.URL.Path == "/v2/group-histories/query" {
			json.NewEncoder(w).Encode(map[string]any{"blocks": []string{}})
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	ctx := context.Background()

	if err := client.CreateGroup(ctx, Block{0x0b}); err != nil {
		t.Fatal(err)
	}
	if gotMethod != "POST" || gotPath != "/v2/groups" {
		t.Errorf("CreateGroup hit %s %s", gotMethod, gotPath)
	}

	if err := client.PatchGroup(ctx, Block{0x0c}); err != nil {
		t.Fatal(err)
	}
	if gotMethod != "PATCH" || gotPath != "/v2/groups" {
		t.Errorf("PatchGroup hit %s %s", gotMethod, gotPath)
	}

	if _, err := client.GetGroupHistories(ctx, [][]byte{[]byte("gid")}); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/v2/group-histories/query" {
		t.Errorf("GetGroupHistories hit %s", gotPath)
	}

	if _, err := client.GetGroupHistoriesByPublicKeys(ctx, [][]byte{[]byte("gpk")}); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/v2/group-histories/query" {
		t.Errorf("GetGroupHistoriesByPublicKeys hit %s", gotPath)
	}
}

func TestPushBlockAndPublishKeys(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody = nil
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	ctx := context.Background()

	if err := client.PushBlock(ctx, Block("blockdata")); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/v2/blocks" {
		t.Errorf("PushBlock hit %s", gotPath)
	}
	if gotBody["block"] != base64.StdEncoding.EncodeToString([]byte("blockdata")) {
		t.Errorf("block on the wire: %v", gotBody["block"])
	}

	if err := client.PublishKeys(ctx, []Block{Block("kp")}); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/v2/key-publishes" {
		t.Errorf("PublishKeys hit %s", gotPath)
	}
}
